package engine

import (
	"testing"
	"time"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
)

var fatigueNow = time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

func dayShift(daysAgo int, startHour, hours int) models.ShiftAssignment {
	start := fatigueNow.AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour).Add(time.Duration(startHour) * time.Hour)
	return models.ShiftAssignment{
		Status:     models.StatusCheckedOut,
		ShiftStart: start,
		ShiftEnd:   start.Add(time.Duration(hours) * time.Hour),
	}
}

func hasRule(rules []models.FatigueRule, want models.FatigueRule) bool {
	for _, r := range rules {
		if r == want {
			return true
		}
	}
	return false
}

func TestAssessFatigue_SevenShiftsIsHigh(t *testing.T) {
	// 7 daily shifts with 16h between them: the count rule fires even though
	// every rest gap is comfortable
	var history []models.ShiftAssignment
	for i := 0; i < 7; i++ {
		history = append(history, dayShift(i, 8, 8))
	}

	risk := AssessFatigue(models.Employee{ID: "e1"}, history, fatigueNow, config.Default())

	if risk.RiskLevel != models.RiskHigh {
		t.Fatalf("expected high risk, got %s", risk.RiskLevel)
	}
	if risk.ShiftCount != 7 {
		t.Errorf("expected 7 shifts in window, got %d", risk.ShiftCount)
	}
	if !hasRule(risk.TriggeredRules, models.RuleShiftCount) {
		t.Errorf("expected shift_count rule to fire, got %v", risk.TriggeredRules)
	}
	if hasRule(risk.TriggeredRules, models.RuleRestGap) {
		t.Errorf("rest_gap rule should not fire with 16h gaps, got %v", risk.TriggeredRules)
	}
}

func TestAssessFatigue_LightWeekIsLow(t *testing.T) {
	// Two 8h shifts, 10h apart, 16 total hours
	first := dayShift(1, 8, 8)
	second := models.ShiftAssignment{
		Status:     models.StatusCheckedOut,
		ShiftStart: first.ShiftEnd.Add(10 * time.Hour),
		ShiftEnd:   first.ShiftEnd.Add(18 * time.Hour),
	}

	risk := AssessFatigue(models.Employee{ID: "e1"}, []models.ShiftAssignment{first, second}, fatigueNow, config.Default())

	if risk.RiskLevel != models.RiskLow {
		t.Fatalf("expected low risk, got %s (rules %v)", risk.RiskLevel, risk.TriggeredRules)
	}
	if risk.TotalHours != 16 {
		t.Errorf("expected 16 total hours, got %.1f", risk.TotalHours)
	}
	if risk.MinRestGapHours == nil || *risk.MinRestGapHours != 10 {
		t.Errorf("expected 10h min rest gap, got %v", risk.MinRestGapHours)
	}
}

func TestAssessFatigue_ShortRestIsHigh(t *testing.T) {
	first := dayShift(1, 8, 8) // ends 16:00
	second := models.ShiftAssignment{
		Status:     models.StatusCheckedOut,
		ShiftStart: first.ShiftEnd.Add(5 * time.Hour),
		ShiftEnd:   first.ShiftEnd.Add(13 * time.Hour),
	}

	risk := AssessFatigue(models.Employee{ID: "e1"}, []models.ShiftAssignment{first, second}, fatigueNow, config.Default())

	if risk.RiskLevel != models.RiskHigh {
		t.Fatalf("expected high risk for 5h rest gap, got %s", risk.RiskLevel)
	}
	if !hasRule(risk.TriggeredRules, models.RuleRestGap) {
		t.Errorf("expected rest_gap rule, got %v", risk.TriggeredRules)
	}
}

func TestAssessFatigue_MediumTier(t *testing.T) {
	// 5 shifts trips the warn threshold but not the hard one
	var history []models.ShiftAssignment
	for i := 0; i < 5; i++ {
		history = append(history, dayShift(i, 8, 7))
	}

	risk := AssessFatigue(models.Employee{ID: "e1"}, history, fatigueNow, config.Default())

	if risk.RiskLevel != models.RiskMedium {
		t.Fatalf("expected medium risk, got %s (rules %v)", risk.RiskLevel, risk.TriggeredRules)
	}
	if !hasRule(risk.TriggeredRules, models.RuleShiftCount) {
		t.Errorf("expected shift_count warn rule, got %v", risk.TriggeredRules)
	}
}

func TestAssessFatigue_WindowIsRolling(t *testing.T) {
	// Shifts older than the window and cancelled/no-show rows are ignored
	history := []models.ShiftAssignment{
		dayShift(10, 8, 8),
		dayShift(9, 8, 8),
		{Status: models.StatusNoShow, ShiftStart: fatigueNow.Add(-24 * time.Hour), ShiftEnd: fatigueNow.Add(-16 * time.Hour)},
		{Status: models.StatusCancelled, ShiftStart: fatigueNow.Add(-48 * time.Hour), ShiftEnd: fatigueNow.Add(-40 * time.Hour)},
		dayShift(2, 8, 8),
	}

	risk := AssessFatigue(models.Employee{ID: "e1"}, history, fatigueNow, config.Default())

	if risk.ShiftCount != 1 {
		t.Errorf("expected 1 shift counted in window, got %d", risk.ShiftCount)
	}
	if risk.RiskLevel != models.RiskLow {
		t.Errorf("expected low risk, got %s", risk.RiskLevel)
	}
	if risk.MinRestGapHours != nil {
		t.Errorf("expected nil rest gap with a single shift, got %v", risk.MinRestGapHours)
	}
}
