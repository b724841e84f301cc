package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ScoreWeights are the tunable constants of the scoring engine.
// All values are signed contributions except the band edges.
type ScoreWeights struct {
	Base              int     `yaml:"base"`
	Preferred         int     `yaml:"preferred"`
	GeoNearBonus      int     `yaml:"geo_near_bonus"`
	GeoMidBonus       int     `yaml:"geo_mid_bonus"`
	GeoFarPenalty     int     `yaml:"geo_far_penalty"`
	GeoNearKm         float64 `yaml:"geo_near_km"`
	GeoMidKm          float64 `yaml:"geo_mid_km"`
	PerformancePerPt  int     `yaml:"performance_per_point"` // per rating point off the midpoint
	PerformanceMax    int     `yaml:"performance_max"`
	MinRatings        int     `yaml:"min_ratings"` // cold start below this
	WorkloadPerShift  int     `yaml:"workload_per_shift"`
	WorkloadFloor     int     `yaml:"workload_floor"`
	FatigueHighPen    int     `yaml:"fatigue_high_penalty"`
	FatigueMediumPen  int     `yaml:"fatigue_medium_penalty"`
	Specialization    int     `yaml:"specialization"`
	CohesionPerVisit  int     `yaml:"cohesion_per_visit"`
	CohesionCap       int     `yaml:"cohesion_cap"`
	ReliabilityScale  int     `yaml:"reliability_scale"` // penalty = -round(noShowRate*scale)
	WeaponBonus       int     `yaml:"weapon_bonus"`
	ReasonVisibleFrom int     `yaml:"reason_visible_from"` // |component| must reach this to emit a reason
}

// FatigueLimits are the thresholds of the fatigue rule chain
type FatigueLimits struct {
	WindowDays    int     `yaml:"window_days"`
	MaxShifts     int     `yaml:"max_shifts"`
	MinRestHours  float64 `yaml:"min_rest_hours"`
	MaxHours      float64 `yaml:"max_hours"`
	WarnShifts    int     `yaml:"warn_shifts"`
	WarnRestHours float64 `yaml:"warn_rest_hours"`
	WarnHours     float64 `yaml:"warn_hours"`
}

// StaffingPolicy holds the advisory headcount adjustment constants.
// Inferred from operator practice rather than a fixed contract, so kept tunable.
type StaffingPolicy struct {
	NoShowIncreaseThreshold float64 `yaml:"no_show_increase_threshold"`
	NoShowDecreaseCeiling   float64 `yaml:"no_show_decrease_ceiling"`
	UnderAssignedSlack      float64 `yaml:"under_assigned_slack"`
	HighNoShowThreshold     float64 `yaml:"high_no_show_threshold"`
}

// InsightThresholds drive severity derivation of the weekly snapshot
type InsightThresholds struct {
	CriticalFatigueCount int `yaml:"critical_fatigue_count"`
	CriticalShortageRate int `yaml:"critical_shortage_rate"`
}

// Engine is the versioned configuration passed by value into every analyzer
// call. A scoring run is reproducible given (inputs, Version).
type Engine struct {
	Version      string            `yaml:"version"`
	LookbackDays int               `yaml:"lookback_days"`
	Score        ScoreWeights      `yaml:"score"`
	Fatigue      FatigueLimits     `yaml:"fatigue"`
	Staffing     StaffingPolicy    `yaml:"staffing"`
	Insight      InsightThresholds `yaml:"insight"`
}

// Default returns the built-in engine configuration
func Default() Engine {
	return Engine{
		Version:      "v1",
		LookbackDays: 90,
		Score: ScoreWeights{
			Base:              50,
			Preferred:         15,
			GeoNearBonus:      10,
			GeoMidBonus:       5,
			GeoFarPenalty:     -5,
			GeoNearKm:         5,
			GeoMidKm:          15,
			PerformancePerPt:  8,
			PerformanceMax:    16,
			MinRatings:        3,
			WorkloadPerShift:  -4,
			WorkloadFloor:     -20,
			FatigueHighPen:    -25,
			FatigueMediumPen:  -10,
			Specialization:    8,
			CohesionPerVisit:  2,
			CohesionCap:       10,
			ReliabilityScale:  30,
			WeaponBonus:       10,
			ReasonVisibleFrom: 5,
		},
		Fatigue: FatigueLimits{
			WindowDays:    7,
			MaxShifts:     6,
			MinRestHours:  8,
			MaxHours:      50,
			WarnShifts:    5,
			WarnRestHours: 10,
			WarnHours:     40,
		},
		Staffing: StaffingPolicy{
			NoShowIncreaseThreshold: 0.25,
			NoShowDecreaseCeiling:   0.05,
			UnderAssignedSlack:      1.0,
			HighNoShowThreshold:     0.3,
		},
		Insight: InsightThresholds{
			CriticalFatigueCount: 3,
			CriticalShortageRate: 50,
		},
	}
}

// Load builds the engine configuration: defaults, then the YAML file named by
// ENGINE_CONFIG if set, then individual env overrides.
func Load() (Engine, error) {
	cfg := Default()

	if path := os.Getenv("ENGINE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read engine config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse engine config %s: %w", path, err)
		}
	}

	if v := os.Getenv("ENGINE_LOOKBACK_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("ENGINE_LOOKBACK_DAYS: %w", err)
		}
		cfg.LookbackDays = days
	}
	if v := os.Getenv("ENGINE_CONFIG_VERSION"); v != "" {
		cfg.Version = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that would make analyzer output meaningless
func (c Engine) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config version is required")
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive, got %d", c.LookbackDays)
	}
	if c.Fatigue.WindowDays <= 0 {
		return fmt.Errorf("fatigue window_days must be positive, got %d", c.Fatigue.WindowDays)
	}
	if c.Fatigue.WarnShifts > c.Fatigue.MaxShifts {
		return fmt.Errorf("fatigue warn_shifts (%d) must not exceed max_shifts (%d)",
			c.Fatigue.WarnShifts, c.Fatigue.MaxShifts)
	}
	if c.Score.GeoNearKm > c.Score.GeoMidKm {
		return fmt.Errorf("geo_near_km (%.1f) must not exceed geo_mid_km (%.1f)",
			c.Score.GeoNearKm, c.Score.GeoMidKm)
	}
	if c.Staffing.NoShowDecreaseCeiling > c.Staffing.NoShowIncreaseThreshold {
		return fmt.Errorf("no_show_decrease_ceiling must not exceed no_show_increase_threshold")
	}
	return nil
}
