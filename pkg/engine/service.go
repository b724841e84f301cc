package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
	"github.com/reem20050/workforce-intel/pkg/signals"
)

// Service gathers signals and runs the analyzers over them. It holds no state
// between calls; every result is derived from a fresh snapshot plus the
// versioned configuration it was constructed with.
type Service struct {
	reader signals.Reader
	cfg    config.Engine
}

// NewService returns a Service bound to a signal reader and configuration
func NewService(reader signals.Reader, cfg config.Engine) *Service {
	return &Service{reader: reader, cfg: cfg}
}

// Config returns the configuration the service scores with
func (s *Service) Config() config.Engine { return s.cfg }

// Suggest ranks eligible employees for the requested shift. The second return
// value carries per-candidate warnings: a failed signal fetch degrades that
// candidate to zero-weight terms instead of aborting the pool.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) ([]models.Suggestion, []string, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	var warnings []string
	if req.SiteID != "" && req.Site == nil {
		site, err := s.reader.SiteByID(ctx, req.SiteID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("site %s unavailable, location terms skipped: %v", req.SiteID, err))
		} else {
			req.Site = site
		}
	}

	pool, err := s.reader.EligibleEmployees(ctx, req.Date, req.Start, req.End, req.RequiresWeapon, nil)
	if err != nil {
		return nil, warnings, &DataUnavailableError{Source: "eligible employees", Err: err}
	}
	if len(pool) == 0 {
		return []models.Suggestion{}, warnings, nil
	}

	weekStart := startOfWeek(req.Date)
	weekEnd := weekStart.AddDate(0, 0, 7)

	candidates := make([]Candidate, len(pool))
	candWarnings := make([]string, len(pool))
	var wg sync.WaitGroup
	for i := range pool {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			emp := pool[i]
			cand := Candidate{Employee: emp}

			history, err := s.reader.RecentAssignments(ctx, emp.ID, s.cfg.LookbackDays)
			if err != nil {
				candWarnings[i] = fmt.Sprintf("history for %s unavailable, scored without it: %v", emp.ID, err)
			} else {
				cand.History = history
			}

			week, err := s.reader.AssignmentsBetween(ctx, emp.ID, weekStart, weekEnd)
			if err != nil {
				candWarnings[i] = fmt.Sprintf("week load for %s unavailable, scored without it: %v", emp.ID, err)
			} else {
				cand.WeekAssignments = week
			}
			candidates[i] = cand
		}(i)
	}
	wg.Wait()

	for _, w := range candWarnings {
		if w != "" {
			warnings = append(warnings, w)
		}
	}
	return RankCandidates(req, candidates, s.cfg), warnings, nil
}

// FatigueRisks assesses the whole active roster and returns only employees at
// medium or high risk, ordered by severity then employee ID.
func (s *Service) FatigueRisks(ctx context.Context, now time.Time) ([]models.FatigueRisk, []string, error) {
	roster, err := s.reader.ActiveEmployees(ctx)
	if err != nil {
		return nil, nil, &DataUnavailableError{Source: "roster", Err: err}
	}

	risks := make([]*models.FatigueRisk, len(roster))
	rosterWarnings := make([]string, len(roster))
	var wg sync.WaitGroup
	for i := range roster {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			emp := roster[i]
			history, err := s.reader.RecentAssignments(ctx, emp.ID, s.cfg.Fatigue.WindowDays)
			if err != nil {
				rosterWarnings[i] = fmt.Sprintf("fatigue signals for %s unavailable: %v", emp.ID, err)
				return
			}
			r := AssessFatigue(emp, history, now, s.cfg)
			if r.RiskLevel != models.RiskLow {
				risks[i] = &r
			}
		}(i)
	}
	wg.Wait()

	var out []models.FatigueRisk
	for _, r := range risks {
		if r != nil {
			out = append(out, *r)
		}
	}
	sortFatigueRisks(out)

	var warnings []string
	for _, w := range rosterWarnings {
		if w != "" {
			warnings = append(warnings, w)
		}
	}
	return out, warnings, nil
}

// Heatmap returns the exact understaffing rate per (site, weekday) slot
func (s *Service) Heatmap(ctx context.Context) ([]models.ShortagePattern, error) {
	occ, err := s.reader.HistoricalOccupancy(ctx, "", s.cfg.LookbackDays)
	if err != nil {
		return nil, &DataUnavailableError{Source: "occupancy history", Err: err}
	}
	patterns := AnalyzeShortage(occ)
	names := s.siteNames(ctx)
	for i := range patterns {
		patterns[i].SiteName = names[patterns[i].SiteID]
	}
	return patterns, nil
}

// StaffingSuggestions returns advisory headcount adjustments per (site, weekday) slot
func (s *Service) StaffingSuggestions(ctx context.Context) ([]models.StaffingSuggestion, error) {
	occ, err := s.reader.HistoricalOccupancy(ctx, "", s.cfg.LookbackDays)
	if err != nil {
		return nil, &DataUnavailableError{Source: "occupancy history", Err: err}
	}
	suggestions := OptimizeStaffing(occ, s.cfg)
	names := s.siteNames(ctx)
	for i := range suggestions {
		suggestions[i].SiteName = names[suggestions[i].SiteID]
	}
	return suggestions, nil
}

// siteNames is best effort; a failure leaves names blank rather than failing
// the analysis.
func (s *Service) siteNames(ctx context.Context) map[string]string {
	sites, err := s.reader.Sites(ctx)
	if err != nil {
		return nil
	}
	names := make(map[string]string, len(sites))
	for _, site := range sites {
		names[site.ID] = site.Name
	}
	return names
}

func validateRequest(req SuggestRequest) error {
	if req.Date.IsZero() {
		return &ValidationError{Field: "date", Msg: "required"}
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return &ValidationError{Field: "time window", Msg: "start and end are required"}
	}
	if !req.End.After(req.Start) {
		return &ValidationError{Field: "time window", Msg: "end must be after start"}
	}
	return nil
}

func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func sortFatigueRisks(risks []models.FatigueRisk) {
	rank := map[models.RiskLevel]int{models.RiskHigh: 0, models.RiskMedium: 1, models.RiskLow: 2}
	sort.SliceStable(risks, func(i, j int) bool {
		if rank[risks[i].RiskLevel] != rank[risks[j].RiskLevel] {
			return rank[risks[i].RiskLevel] < rank[risks[j].RiskLevel]
		}
		return risks[i].EmployeeID < risks[j].EmployeeID
	})
}
