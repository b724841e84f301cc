package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/reem20050/workforce-intel/pkg/models"
)

// Trigger sources recorded on each snapshot
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// InsightStore persists weekly insight snapshots. Append must be atomic;
// rows are never updated or deleted by the engine.
type InsightStore interface {
	Append(ctx context.Context, insight *models.WeeklyInsight) error
	Latest(ctx context.Context) (*models.WeeklyInsight, error)
}

// Generator orchestrates all analyzers over the whole portfolio and writes one
// WeeklyInsight per run. At most one run is in flight at a time; concurrent
// triggers are rejected with ErrRunInProgress rather than queued.
type Generator struct {
	svc     *Service
	store   InsightStore
	running atomic.Bool
}

// NewGenerator returns a Generator writing snapshots through the given store
func NewGenerator(svc *Service, store InsightStore) *Generator {
	return &Generator{svc: svc, store: store}
}

// Latest returns the most recent snapshot, or nil when none exists yet
func (g *Generator) Latest(ctx context.Context) (*models.WeeklyInsight, error) {
	return g.store.Latest(ctx)
}

// Generate runs the four analyzers and appends one snapshot row. Analyzer
// failures degrade to warnings on the snapshot; only a store failure or a
// concurrent run fails the call. Scheduled and manual triggers produce the
// same snapshot shape.
func (g *Generator) Generate(ctx context.Context, trigger string) (*models.WeeklyInsight, error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer g.running.Store(false)

	now := time.Now()
	var warnings []string
	details := models.InsightDetails{}

	shortages, err := g.svc.Heatmap(ctx)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("shortage analysis skipped: %v", err))
	} else {
		details.Shortages = shortages
	}

	fatigue, fatigueWarnings, err := g.svc.FatigueRisks(ctx, now)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("fatigue analysis skipped: %v", err))
	} else {
		details.FatigueRisks = fatigue
		warnings = append(warnings, fatigueWarnings...)
	}

	staffing, err := g.svc.StaffingSuggestions(ctx)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("staffing analysis skipped: %v", err))
	} else {
		details.Staffing = staffing
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("serialize insight details: %w", err)
	}

	insight := &models.WeeklyInsight{
		RunID:                     uuid.NewString(),
		AnalysisDate:              now,
		ShortageSites:             distinctShortageSites(details.Shortages),
		FatigueRiskEmployees:      len(details.FatigueRisks),
		OptimizationOpportunities: len(details.Staffing),
		HighNoShowSites:           g.highNoShowSites(details.Staffing),
		Details:                   string(payload),
		ConfigVersion:             g.svc.cfg.Version,
		Trigger:                   trigger,
		Warnings:                  warnings,
	}
	insight.Severity = g.deriveSeverity(insight, details)

	if err := g.store.Append(ctx, insight); err != nil {
		return nil, fmt.Errorf("append insight snapshot: %w", err)
	}
	return insight, nil
}

func (g *Generator) deriveSeverity(insight *models.WeeklyInsight, details models.InsightDetails) models.Severity {
	highFatigue := 0
	for _, r := range details.FatigueRisks {
		if r.RiskLevel == models.RiskHigh {
			highFatigue++
		}
	}
	if highFatigue >= g.svc.cfg.Insight.CriticalFatigueCount {
		return models.SeverityCritical
	}
	for _, p := range details.Shortages {
		if p.Rate >= g.svc.cfg.Insight.CriticalShortageRate {
			return models.SeverityCritical
		}
	}
	if insight.ShortageSites > 0 || insight.FatigueRiskEmployees > 0 ||
		insight.OptimizationOpportunities > 0 || insight.HighNoShowSites > 0 {
		return models.SeverityWarning
	}
	return models.SeverityInfo
}

func (g *Generator) highNoShowSites(staffing []models.StaffingSuggestion) int {
	seen := make(map[string]bool)
	for _, s := range staffing {
		if s.NoShowRate >= g.svc.cfg.Staffing.HighNoShowThreshold {
			seen[s.SiteID] = true
		}
	}
	return len(seen)
}

func distinctShortageSites(patterns []models.ShortagePattern) int {
	seen := make(map[string]bool)
	for _, p := range patterns {
		if p.Understaffed > 0 {
			seen[p.SiteID] = true
		}
	}
	return len(seen)
}
