package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
)

// SuggestRequest describes the target shift being staffed
type SuggestRequest struct {
	Date           time.Time
	Start          time.Time
	End            time.Time
	RequiresWeapon bool
	SiteID         string
	TemplateID     string
	Site           *models.Site // nil when unknown; location terms degrade to zero
}

// Candidate pairs an eligible employee with the signals needed to score them.
// The caller has already filtered the pool for availability and leave.
type Candidate struct {
	Employee models.Employee
	// History holds the employee's assignments over the lookback window:
	// ratings, no-shows and site visits are derived from it.
	History []models.ShiftAssignment
	// WeekAssignments holds shifts already scheduled in the target week.
	WeekAssignments []models.ShiftAssignment
}

// RankCandidates scores every candidate against the request and returns
// suggestions ordered by descending score, ties broken by employee ID.
// Pure and deterministic: identical inputs produce identical output.
// Employees lacking a valid weapon license for an armed shift are excluded
// before scoring, never down-scored.
func RankCandidates(req SuggestRequest, pool []Candidate, cfg config.Engine) []models.Suggestion {
	var eligible []Candidate
	for _, c := range pool {
		if req.RequiresWeapon && !c.Employee.ArmedOn(req.Date) {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return []models.Suggestion{}
	}

	// Candidates share no mutable state, so score them in parallel and
	// restore deterministic order afterward.
	suggestions := make([]models.Suggestion, len(eligible))
	var wg sync.WaitGroup
	for i := range eligible {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			suggestions[i] = scoreCandidate(req, eligible[i], cfg)
		}(i)
	}
	wg.Wait()

	sort.SliceStable(suggestions, func(i, j int) bool {
		ti, tj := suggestions[i].Breakdown.Total(), suggestions[j].Breakdown.Total()
		if ti != tj {
			return ti > tj
		}
		return suggestions[i].EmployeeID < suggestions[j].EmployeeID
	})
	return suggestions
}

func scoreCandidate(req SuggestRequest, cand Candidate, cfg config.Engine) models.Suggestion {
	w := cfg.Score
	emp := cand.Employee

	s := models.Suggestion{
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
	}
	b := models.ScoreBreakdown{Base: w.Base}

	if req.SiteID != "" && contains(emp.PreferredSites, req.SiteID) {
		b.Preferred = w.Preferred
	}

	if dist := distanceToSite(emp, req.Site); dist != nil {
		s.DistanceKm = dist
		switch {
		case *dist <= w.GeoNearKm:
			b.Geographic = w.GeoNearBonus
		case *dist <= w.GeoMidKm:
			b.Geographic = w.GeoMidBonus
		default:
			b.Geographic = w.GeoFarPenalty
		}
	}

	b.Performance, s.AvgRating = performanceTerm(cand.History, w)

	worked := scheduledCount(cand.WeekAssignments)
	b.Workload = worked * w.WorkloadPerShift
	if b.Workload < w.WorkloadFloor {
		b.Workload = w.WorkloadFloor
	}

	// The fatigue window is anchored at the target shift date so interactive
	// and batch paths agree on the same inputs.
	fatigue := AssessFatigue(emp, cand.History, req.Date, cfg)
	switch fatigue.RiskLevel {
	case models.RiskHigh:
		b.Fatigue = w.FatigueHighPen
		s.FatigueWarning = true
	case models.RiskMedium:
		b.Fatigue = w.FatigueMediumPen
	}

	if req.Site != nil && req.Site.SiteType != "" && contains(emp.Certifications, req.Site.SiteType) {
		b.Specialization = w.Specialization
	}

	if req.SiteID != "" {
		visits := siteVisits(cand.History, req.SiteID)
		b.TeamCohesion = visits * w.CohesionPerVisit
		if b.TeamCohesion > w.CohesionCap {
			b.TeamCohesion = w.CohesionCap
		}
	}

	b.Reliability = reliabilityTerm(cand.History, w)

	if req.RequiresWeapon {
		b.WeaponBonus = w.WeaponBonus
	}

	s.Breakdown = b
	s.Score = clampScore(b.Total())
	s.Reasons = reasonsFor(b, w.ReasonVisibleFrom)
	return s
}

// performanceTerm scales the rolling average rating against the 3.0 midpoint.
// Below MinRatings observations the term stays zero (cold start), though the
// average is still reported when any rating exists.
func performanceTerm(history []models.ShiftAssignment, w config.ScoreWeights) (int, *float64) {
	var sum float64
	var n int
	for _, a := range history {
		if a.Rating != nil {
			sum += *a.Rating
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	avg := sum / float64(n)
	if n < w.MinRatings {
		return 0, &avg
	}
	term := int(math.Round((avg - 3.0) * float64(w.PerformancePerPt)))
	if term > w.PerformanceMax {
		term = w.PerformanceMax
	}
	if term < -w.PerformanceMax {
		term = -w.PerformanceMax
	}
	return term, &avg
}

// reliabilityTerm penalizes historical no-shows proportionally.
// No history means no penalty.
func reliabilityTerm(history []models.ShiftAssignment, w config.ScoreWeights) int {
	total, noShows := 0, 0
	for _, a := range history {
		if a.Status == models.StatusCancelled {
			continue
		}
		total++
		if a.Status == models.StatusNoShow {
			noShows++
		}
	}
	if total == 0 {
		return 0
	}
	rate := float64(noShows) / float64(total)
	return -int(math.Round(rate * float64(w.ReliabilityScale)))
}

func scheduledCount(assignments []models.ShiftAssignment) int {
	n := 0
	for _, a := range assignments {
		if a.Status == models.StatusAssigned || a.Status == models.StatusCheckedIn {
			n++
		}
	}
	return n
}

func siteVisits(history []models.ShiftAssignment, siteID string) int {
	n := 0
	for _, a := range history {
		if a.SiteID == siteID && a.Status == models.StatusCheckedOut {
			n++
		}
	}
	return n
}

func distanceToSite(emp models.Employee, site *models.Site) *float64 {
	if site == nil || site.Lat == nil || site.Lon == nil || emp.HomeLat == nil || emp.HomeLon == nil {
		return nil
	}
	d := haversineKm(*emp.HomeLat, *emp.HomeLon, *site.Lat, *site.Lon)
	return &d
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// reasonsFor derives the closed-set reason codes from the breakdown alone.
// Components below the visibility threshold stay unexplained; base never
// produces a reason.
func reasonsFor(b models.ScoreBreakdown, threshold int) []models.ReasonCode {
	var reasons []models.ReasonCode
	add := func(v int, positive, negative models.ReasonCode) {
		if v >= threshold && positive != "" {
			reasons = append(reasons, positive)
		}
		if v <= -threshold && negative != "" {
			reasons = append(reasons, negative)
		}
	}
	add(b.Preferred, models.ReasonPreferredGuard, "")
	add(b.Geographic, models.ReasonCloseToSite, models.ReasonFarFromSite)
	add(b.Performance, models.ReasonHighRating, models.ReasonLowRating)
	add(b.Workload, "", models.ReasonHeavyWeek)
	add(b.Fatigue, "", models.ReasonFatigueRisk)
	add(b.Specialization, models.ReasonSpecialized, "")
	add(b.TeamCohesion, models.ReasonKnowsSite, "")
	add(b.Reliability, "", models.ReasonUnreliable)
	add(b.WeaponBonus, models.ReasonArmed, "")
	return reasons
}

func clampScore(total int) int {
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
