package models

import "time"

// AssignmentStatus is the lifecycle state of a shift assignment
type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "assigned"
	StatusCheckedIn  AssignmentStatus = "checked_in"
	StatusCheckedOut AssignmentStatus = "checked_out"
	StatusNoShow     AssignmentStatus = "no_show"
	StatusCancelled  AssignmentStatus = "cancelled"
)

// RiskLevel classifies fatigue risk
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity classifies a weekly insight snapshot
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Employee represents a guard available for shifts
type Employee struct {
	ID                  string     `gorm:"primaryKey" json:"id"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone,omitempty"`
	Certifications      []string   `gorm:"serializer:json" json:"certifications,omitempty"`
	HasWeaponLicense    bool       `json:"has_weapon_license"`
	WeaponLicenseExpiry *time.Time `json:"weapon_license_expiry,omitempty"`
	HomeLat             *float64   `json:"home_lat,omitempty"`
	HomeLon             *float64   `json:"home_lon,omitempty"`
	PreferredSites      []string   `gorm:"serializer:json" json:"preferred_sites,omitempty"`
	// No column default: gorm skips zero-value fields on insert when one is
	// set, which would silently store deactivated guards as active.
	Active bool `json:"active"`
}

// ArmedOn reports whether the employee holds a weapon license valid on the given date
func (e *Employee) ArmedOn(date time.Time) bool {
	if !e.HasWeaponLicense {
		return false
	}
	if e.WeaponLicenseExpiry != nil && e.WeaponLicenseExpiry.Before(date) {
		return false
	}
	return true
}

// Site represents a guarded location
type Site struct {
	ID       string   `gorm:"primaryKey" json:"id"`
	Name     string   `json:"name"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	SiteType string   `json:"site_type,omitempty"`
}

// Shift represents one shift occurrence at a site
type Shift struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	SiteID         string    `gorm:"index" json:"site_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Required       int       `json:"required"`
	RequiresWeapon bool      `json:"requires_weapon"`
	RequiredCerts  []string  `gorm:"serializer:json" json:"required_certs,omitempty"`
	TemplateID     *string   `json:"template_id,omitempty"`
}

// ShiftAssignment links an employee to a shift occurrence.
// ShiftStart, ShiftEnd and SiteID are denormalized from the shift by the
// signal reader so analyzers work on self-contained rows.
type ShiftAssignment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ShiftID     string           `gorm:"index" json:"shift_id"`
	EmployeeID  string           `gorm:"index" json:"employee_id"`
	Status      AssignmentStatus `json:"status"`
	ActualHours *float64         `json:"actual_hours,omitempty"`
	Rating      *float64         `json:"rating,omitempty"` // 0-5, set post hoc
	ShiftStart  time.Time        `gorm:"-" json:"shift_start"`
	ShiftEnd    time.Time        `gorm:"-" json:"shift_end"`
	SiteID      string           `gorm:"-" json:"site_id"`
}

// ScoreBreakdown holds the additive components of a suggestion score.
// The set of components is closed; the total is always their exact sum.
type ScoreBreakdown struct {
	Base           int `json:"base"`
	Preferred      int `json:"preferred"`
	Geographic     int `json:"geographic"`
	Performance    int `json:"performance"`
	Workload       int `json:"workload"`
	Fatigue        int `json:"fatigue"`
	Specialization int `json:"specialization"`
	TeamCohesion   int `json:"team_cohesion"`
	Reliability    int `json:"reliability"`
	WeaponBonus    int `json:"weapon_bonus"`
}

// Total returns the unclamped sum of all components
func (b ScoreBreakdown) Total() int {
	return b.Base + b.Preferred + b.Geographic + b.Performance + b.Workload +
		b.Fatigue + b.Specialization + b.TeamCohesion + b.Reliability + b.WeaponBonus
}

// ReasonCode is a closed-set machine-readable explanation tag.
// Display strings are generated downstream from these codes.
type ReasonCode string

const (
	ReasonPreferredGuard ReasonCode = "preferred_guard"
	ReasonCloseToSite    ReasonCode = "close_to_site"
	ReasonFarFromSite    ReasonCode = "far_from_site"
	ReasonHighRating     ReasonCode = "high_rating"
	ReasonLowRating      ReasonCode = "low_rating"
	ReasonHeavyWeek      ReasonCode = "heavy_week"
	ReasonFatigueRisk    ReasonCode = "fatigue_risk"
	ReasonSpecialized    ReasonCode = "specialized"
	ReasonKnowsSite      ReasonCode = "knows_site"
	ReasonUnreliable     ReasonCode = "unreliable"
	ReasonArmed          ReasonCode = "armed"
)

// Suggestion is one employee scored against one candidate shift
type Suggestion struct {
	EmployeeID     string         `json:"employee_id"`
	EmployeeName   string         `json:"employee_name"`
	Score          int            `json:"score"` // clamped to [0,100] for display
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Reasons        []ReasonCode   `json:"reasons"`
	DistanceKm     *float64       `json:"distance_km,omitempty"`
	AvgRating      *float64       `json:"avg_rating,omitempty"`
	FatigueWarning bool           `json:"fatigue_warning"`
}

// FatigueRule identifies which fatigue rule fired
type FatigueRule string

const (
	RuleShiftCount FatigueRule = "shift_count"
	RuleRestGap    FatigueRule = "rest_gap"
	RuleTotalHours FatigueRule = "total_hours"
)

// FatigueRisk is the trailing-window fatigue assessment for one employee
type FatigueRisk struct {
	EmployeeID      string        `json:"employee_id"`
	EmployeeName    string        `json:"employee_name,omitempty"`
	ShiftCount      int           `json:"shift_count"`
	MinRestGapHours *float64      `json:"min_rest_gap_hours,omitempty"` // nil with fewer than 2 shifts
	TotalHours      float64       `json:"total_hours"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	TriggeredRules  []FatigueRule `json:"triggered_rules,omitempty"`
}

// ShortagePattern is the historical understaffing rate for one (site, weekday) slot
type ShortagePattern struct {
	SiteID       string       `json:"site_id"`
	SiteName     string       `json:"site_name,omitempty"`
	Weekday      time.Weekday `json:"weekday"`
	Total        int          `json:"total"`
	Understaffed int          `json:"understaffed"`
	Rate         int          `json:"rate"` // round(100*understaffed/total)
}

// StaffingSuggestion is an advisory headcount adjustment for one (site, weekday) slot
type StaffingSuggestion struct {
	SiteID            string       `json:"site_id"`
	SiteName          string       `json:"site_name,omitempty"`
	Weekday           time.Weekday `json:"weekday"`
	CurrentRequired   int          `json:"current_required"`
	NoShowRate        float64      `json:"no_show_rate"`
	AvgAssigned       float64      `json:"avg_assigned"`
	SuggestedRequired int          `json:"suggested_required"`
}

// InsightDetails is the full analyzer payload serialized into a WeeklyInsight row
type InsightDetails struct {
	Shortages    []ShortagePattern    `json:"shortages"`
	FatigueRisks []FatigueRisk        `json:"fatigue_risks"`
	Staffing     []StaffingSuggestion `json:"staffing"`
}

// WeeklyInsight is an immutable periodic snapshot of all analyzer outputs.
// Rows are append-only; a new run supersedes rather than overwrites.
type WeeklyInsight struct {
	ID                        uint      `gorm:"primaryKey" json:"id"`
	RunID                     string    `gorm:"uniqueIndex" json:"run_id"`
	AnalysisDate              time.Time `json:"analysis_date"`
	ShortageSites             int       `json:"shortage_sites"`
	FatigueRiskEmployees      int       `json:"fatigue_risk_employees"`
	OptimizationOpportunities int       `json:"optimization_opportunities"`
	HighNoShowSites           int       `json:"high_no_show_sites"`
	Severity                  Severity  `json:"severity"`
	Details                   string    `gorm:"type:text" json:"details"` // InsightDetails as JSON
	ConfigVersion             string    `json:"config_version"`
	Trigger                   string    `json:"trigger"` // "scheduled" or "manual"
	Warnings                  []string  `gorm:"serializer:json" json:"warnings,omitempty"`
	CreatedAt                 time.Time `json:"created_at"`
}
