package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
)

func suggestReq() SuggestRequest {
	return SuggestRequest{
		Date:   shiftDate,
		Start:  shiftDate.Add(8 * time.Hour),
		End:    shiftDate.Add(16 * time.Hour),
		SiteID: "site-a",
	}
}

func TestServiceSuggest_IncompleteParamsAreValidationErrors(t *testing.T) {
	svc := NewService(quietPortfolio(), config.Default())

	cases := []struct {
		name string
		req  SuggestRequest
	}{
		{"missing date", SuggestRequest{Start: shiftDate, End: shiftDate.Add(8 * time.Hour)}},
		{"missing window", SuggestRequest{Date: shiftDate}},
		{"inverted window", SuggestRequest{Date: shiftDate, Start: shiftDate.Add(8 * time.Hour), End: shiftDate}},
	}
	for _, tc := range cases {
		if _, _, err := svc.Suggest(context.Background(), tc.req); !IsValidation(err) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestServiceSuggest_EmptyPoolIsNotAnError(t *testing.T) {
	reader := quietPortfolio()
	reader.employees = nil
	svc := NewService(reader, config.Default())

	suggestions, _, err := svc.Suggest(context.Background(), suggestReq())
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("expected no suggestions, got %d", len(suggestions))
	}
}

func TestServiceSuggest_RosterFailureIsDataUnavailable(t *testing.T) {
	reader := quietPortfolio()
	reader.employeesErr = errors.New("replica down")
	svc := NewService(reader, config.Default())

	if _, _, err := svc.Suggest(context.Background(), suggestReq()); !IsDataUnavailable(err) {
		t.Errorf("expected DataUnavailableError, got %v", err)
	}
}

func TestServiceSuggest_CandidateSignalFailureDegrades(t *testing.T) {
	reader := quietPortfolio()
	reader.employees = []models.Employee{
		{ID: "e1", Name: "Able", Active: true},
		{ID: "e2", Name: "Baker", Active: true},
	}
	reader.assignmentsErr = map[string]error{"e2": errors.New("history shard offline")}
	svc := NewService(reader, config.Default())

	suggestions, warnings, err := svc.Suggest(context.Background(), suggestReq())
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected both candidates scored, got %d", len(suggestions))
	}
	if len(warnings) == 0 {
		t.Errorf("expected a warning about e2's missing history")
	}
	for _, s := range suggestions {
		if s.EmployeeID == "e2" && s.Breakdown.Performance != 0 {
			t.Errorf("expected e2 scored with zero-weight history terms")
		}
	}
}

func TestServiceFatigueRisks_OnlyNonLowReturned(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	var heavy []models.ShiftAssignment
	for i := 0; i < 7; i++ {
		start := now.AddDate(0, 0, -i).Add(-2 * time.Hour)
		heavy = append(heavy, models.ShiftAssignment{
			Status:     models.StatusCheckedOut,
			ShiftStart: start,
			ShiftEnd:   start.Add(8 * time.Hour),
		})
	}

	reader := quietPortfolio()
	reader.employees = []models.Employee{
		{ID: "e1", Name: "Rested", Active: true},
		{ID: "e2", Name: "Worn", Active: true},
	}
	reader.assignments = map[string][]models.ShiftAssignment{"e2": heavy}
	svc := NewService(reader, config.Default())

	risks, _, err := svc.FatigueRisks(context.Background(), now)
	if err != nil {
		t.Fatalf("fatigue risks: %v", err)
	}
	if len(risks) != 1 {
		t.Fatalf("expected only the overworked employee, got %d entries", len(risks))
	}
	if risks[0].EmployeeID != "e2" || risks[0].RiskLevel != models.RiskHigh {
		t.Errorf("expected e2 at high risk, got %+v", risks[0])
	}
}

func TestServiceHeatmap_FillsSiteNames(t *testing.T) {
	monday := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	reader := quietPortfolio()
	reader.occupancy = append(reader.occupancy, occurrence("site-a", monday.AddDate(0, 0, 7), 3, 1))
	svc := NewService(reader, config.Default())

	patterns, err := svc.Heatmap(context.Background())
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if len(patterns) == 0 {
		t.Fatal("expected patterns")
	}
	for _, p := range patterns {
		if p.SiteName != "Harbor Gate" {
			t.Errorf("expected site name filled, got %q", p.SiteName)
		}
	}
}
