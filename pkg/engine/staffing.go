package engine

import (
	"math"
	"sort"
	"sync"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
	"github.com/reem20050/workforce-intel/pkg/signals"
)

// OptimizeStaffing compares configured headcount against historical no-show
// behavior per (site, weekday) slot and emits advisory adjustments. It never
// mutates shift requirements; applying a suggestion is a human decision made
// outside the engine.
func OptimizeStaffing(occ []signals.Occupancy, cfg config.Engine) []models.StaffingSuggestion {
	groups := make(map[slotKey][]signals.Occupancy)
	for _, o := range occ {
		k := slotKey{siteID: o.Shift.SiteID, weekday: o.Shift.Start.Weekday()}
		groups[k] = append(groups[k], o)
	}

	keys := make([]slotKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	results := make([]*models.StaffingSuggestion, len(keys))
	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k slotKey) {
			defer wg.Done()
			results[i] = slotStaffing(k, groups[k], cfg.Staffing)
		}(i, k)
	}
	wg.Wait()

	var out []models.StaffingSuggestion
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SiteID != out[j].SiteID {
			return out[i].SiteID < out[j].SiteID
		}
		return out[i].Weekday < out[j].Weekday
	})
	return out
}

// slotStaffing returns nil when the slot needs no adjustment
func slotStaffing(k slotKey, occ []signals.Occupancy, policy config.StaffingPolicy) *models.StaffingSuggestion {
	var latest *signals.Occupancy
	totalAssignments, noShows, assignedSum := 0, 0, 0
	for i := range occ {
		o := &occ[i]
		if latest == nil || o.Shift.Start.After(latest.Shift.Start) {
			latest = o
		}
		assignedSum += AssignedHeadcount(o.Assignments)
		for _, a := range o.Assignments {
			if a.Status == models.StatusCancelled {
				continue
			}
			totalAssignments++
			if a.Status == models.StatusNoShow {
				noShows++
			}
		}
	}
	if totalAssignments == 0 {
		return nil
	}

	s := models.StaffingSuggestion{
		SiteID:          k.siteID,
		Weekday:         k.weekday,
		CurrentRequired: latest.Shift.Required,
		NoShowRate:      float64(noShows) / float64(totalAssignments),
		AvgAssigned:     float64(assignedSum) / float64(len(occ)),
	}

	switch {
	case s.NoShowRate > policy.NoShowIncreaseThreshold:
		// Cover the expected shortfall, always at least one extra head.
		delta := int(math.Ceil(float64(s.CurrentRequired) * s.NoShowRate))
		if delta < 1 {
			delta = 1
		}
		s.SuggestedRequired = s.CurrentRequired + delta
	case s.NoShowRate <= policy.NoShowDecreaseCeiling &&
		float64(s.CurrentRequired)-s.AvgAssigned >= policy.UnderAssignedSlack:
		suggested := int(math.Round(s.AvgAssigned))
		if suggested < 1 {
			suggested = 1
		}
		if suggested >= s.CurrentRequired {
			return nil
		}
		s.SuggestedRequired = suggested
	default:
		return nil
	}
	return &s
}
