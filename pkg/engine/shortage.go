package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/reem20050/workforce-intel/pkg/models"
	"github.com/reem20050/workforce-intel/pkg/signals"
)

type slotKey struct {
	siteID  string
	weekday time.Weekday
}

// AnalyzeShortage aggregates the historical understaffing rate per
// (site, weekday) slot. An occurrence counts as understaffed when the headcount
// assigned at its scheduled start was below the required headcount. Slots with
// no observed occurrences are omitted. Rates are exact integers; presentation
// bucketing belongs to the caller.
func AnalyzeShortage(occ []signals.Occupancy) []models.ShortagePattern {
	groups := make(map[slotKey][]signals.Occupancy)
	for _, o := range occ {
		k := slotKey{siteID: o.Shift.SiteID, weekday: o.Shift.Start.Weekday()}
		groups[k] = append(groups[k], o)
	}

	keys := make([]slotKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	patterns := make([]models.ShortagePattern, len(keys))
	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k slotKey) {
			defer wg.Done()
			patterns[i] = slotShortage(k, groups[k])
		}(i, k)
	}
	wg.Wait()

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Rate != patterns[j].Rate {
			return patterns[i].Rate > patterns[j].Rate
		}
		if patterns[i].SiteID != patterns[j].SiteID {
			return patterns[i].SiteID < patterns[j].SiteID
		}
		return patterns[i].Weekday < patterns[j].Weekday
	})
	return patterns
}

func slotShortage(k slotKey, occ []signals.Occupancy) models.ShortagePattern {
	p := models.ShortagePattern{SiteID: k.siteID, Weekday: k.weekday}
	for _, o := range occ {
		p.Total++
		if AssignedHeadcount(o.Assignments) < o.Shift.Required {
			p.Understaffed++
		}
	}
	p.Rate = int(math.Round(100 * float64(p.Understaffed) / float64(p.Total)))
	return p
}

// AssignedHeadcount counts employees still assigned at shift start.
// Cancelled assignments are excluded; no-shows were assigned at start and count.
func AssignedHeadcount(assignments []models.ShiftAssignment) int {
	n := 0
	for _, a := range assignments {
		if a.Status != models.StatusCancelled {
			n++
		}
	}
	return n
}
