package engine

import (
	"sort"
	"time"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
)

// AssessFatigue classifies one employee's fatigue risk from their assignment
// history over the trailing window ending at now. The window is rolling, not
// calendar-aligned. Pure per employee, so callers may fan out freely.
func AssessFatigue(emp models.Employee, history []models.ShiftAssignment, now time.Time, cfg config.Engine) models.FatigueRisk {
	windowStart := now.AddDate(0, 0, -cfg.Fatigue.WindowDays)

	var worked []models.ShiftAssignment
	for _, a := range history {
		if a.Status == models.StatusCancelled || a.Status == models.StatusNoShow {
			continue
		}
		if a.ShiftStart.Before(windowStart) || a.ShiftStart.After(now) {
			continue
		}
		worked = append(worked, a)
	}
	sort.Slice(worked, func(i, j int) bool {
		return worked[i].ShiftStart.Before(worked[j].ShiftStart)
	})

	risk := models.FatigueRisk{
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		ShiftCount:   len(worked),
		RiskLevel:    models.RiskLow,
	}

	for _, a := range worked {
		risk.TotalHours += a.ShiftEnd.Sub(a.ShiftStart).Hours()
	}

	for i := 1; i < len(worked); i++ {
		gap := worked[i].ShiftStart.Sub(worked[i-1].ShiftEnd).Hours()
		if gap < 0 {
			gap = 0
		}
		if risk.MinRestGapHours == nil || gap < *risk.MinRestGapHours {
			g := gap
			risk.MinRestGapHours = &g
		}
	}

	// Ordered rule chain, first match wins. Each tier records every rule
	// that fired within it.
	lim := cfg.Fatigue
	if rules := firedRules(risk, lim.MaxShifts, lim.MinRestHours, lim.MaxHours); len(rules) > 0 {
		risk.RiskLevel = models.RiskHigh
		risk.TriggeredRules = rules
		return risk
	}
	if rules := firedRules(risk, lim.WarnShifts, lim.WarnRestHours, lim.WarnHours); len(rules) > 0 {
		risk.RiskLevel = models.RiskMedium
		risk.TriggeredRules = rules
	}
	return risk
}

func firedRules(r models.FatigueRisk, maxShifts int, minRest, maxHours float64) []models.FatigueRule {
	var rules []models.FatigueRule
	if r.ShiftCount >= maxShifts {
		rules = append(rules, models.RuleShiftCount)
	}
	if r.MinRestGapHours != nil && *r.MinRestGapHours < minRest {
		rules = append(rules, models.RuleRestGap)
	}
	if r.TotalHours > maxHours {
		rules = append(rules, models.RuleTotalHours)
	}
	return rules
}
