package signals

import (
	"context"
	"time"

	"github.com/reem20050/workforce-intel/pkg/models"
	"gorm.io/gorm"
)

// Occupancy pairs one historical shift occurrence with its assignments
type Occupancy struct {
	Shift       models.Shift             `json:"shift"`
	Assignments []models.ShiftAssignment `json:"assignments"`
}

// Reader is the engine's view of the surrounding system's data. The engine
// never writes through it; everything it returns is a snapshot for one call.
type Reader interface {
	// EligibleEmployees returns active employees able to take the shift.
	// Weapon-licensing and availability are hard filters applied here, before
	// any scoring: an employee with a non-cancelled assignment overlapping
	// [start, end) is not eligible.
	EligibleEmployees(ctx context.Context, date, start, end time.Time, requiresWeapon bool, requiredCerts []string) ([]models.Employee, error)

	// ActiveEmployees returns the whole active roster, for portfolio-wide analysis
	ActiveEmployees(ctx context.Context) ([]models.Employee, error)

	// RecentAssignments returns the employee's assignments whose shift started
	// within the trailing window, denormalized with shift times and site
	RecentAssignments(ctx context.Context, employeeID string, windowDays int) ([]models.ShiftAssignment, error)

	// AssignmentsBetween returns the employee's assignments with shift start in [from, to)
	AssignmentsBetween(ctx context.Context, employeeID string, from, to time.Time) ([]models.ShiftAssignment, error)

	// HistoricalOccupancy returns shifts (optionally for one site) that started
	// within the lookback window, each with its assignments
	HistoricalOccupancy(ctx context.Context, siteID string, lookbackDays int) ([]Occupancy, error)

	Sites(ctx context.Context) ([]models.Site, error)
	SiteByID(ctx context.Context, id string) (*models.Site, error)
}

// GormReader reads signals from the application's relational store
type gormReader struct {
	db *gorm.DB
}

// NewGormReader returns a Reader backed by the given gorm connection
func NewGormReader(db *gorm.DB) Reader {
	return &gormReader{db: db}
}

func (r *gormReader) EligibleEmployees(ctx context.Context, date, start, end time.Time, requiresWeapon bool, requiredCerts []string) ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&employees).Error; err != nil {
		return nil, err
	}

	busy, err := r.busyEmployees(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var eligible []models.Employee
	for _, e := range employees {
		if busy[e.ID] {
			continue
		}
		if requiresWeapon && !e.ArmedOn(date) {
			continue
		}
		if !hasAll(e.Certifications, requiredCerts) {
			continue
		}
		eligible = append(eligible, e)
	}
	return eligible, nil
}

// busyEmployees returns the IDs of employees holding a non-cancelled
// assignment on a shift overlapping [start, end)
func (r *gormReader) busyEmployees(ctx context.Context, start, end time.Time) (map[string]bool, error) {
	if start.IsZero() || end.IsZero() {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.ShiftAssignment{}).
		Joins("JOIN shifts ON shifts.id = shift_assignments.shift_id").
		Where("shift_assignments.status <> ?", models.StatusCancelled).
		Where(`shifts.start < ? AND shifts."end" > ?`, end, start).
		Distinct().
		Pluck("shift_assignments.employee_id", &ids).Error
	if err != nil {
		return nil, err
	}
	busy := make(map[string]bool, len(ids))
	for _, id := range ids {
		busy[id] = true
	}
	return busy, nil
}

func (r *gormReader) ActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *gormReader) RecentAssignments(ctx context.Context, employeeID string, windowDays int) ([]models.ShiftAssignment, error) {
	now := time.Now()
	return r.AssignmentsBetween(ctx, employeeID, now.AddDate(0, 0, -windowDays), now)
}

func (r *gormReader) AssignmentsBetween(ctx context.Context, employeeID string, from, to time.Time) ([]models.ShiftAssignment, error) {
	var rows []models.ShiftAssignment
	if err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Find(&rows).Error; err != nil {
		return nil, err
	}
	rows, err := r.fillShiftFields(ctx, rows)
	if err != nil {
		return nil, err
	}

	var out []models.ShiftAssignment
	for _, a := range rows {
		if a.ShiftStart.Before(from) || !a.ShiftStart.Before(to) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// fillShiftFields denormalizes shift start/end/site onto assignment rows.
// Assignments pointing at missing shifts are dropped rather than returned
// half-filled.
func (r *gormReader) fillShiftFields(ctx context.Context, rows []models.ShiftAssignment) ([]models.ShiftAssignment, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ShiftID)
	}
	var shifts []models.Shift
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&shifts).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Shift, len(shifts))
	for _, s := range shifts {
		byID[s.ID] = s
	}

	var out []models.ShiftAssignment
	for _, a := range rows {
		s, ok := byID[a.ShiftID]
		if !ok {
			continue
		}
		a.ShiftStart = s.Start
		a.ShiftEnd = s.End
		a.SiteID = s.SiteID
		out = append(out, a)
	}
	return out, nil
}

func (r *gormReader) HistoricalOccupancy(ctx context.Context, siteID string, lookbackDays int) ([]Occupancy, error) {
	cutoff := time.Now().AddDate(0, 0, -lookbackDays)
	q := r.db.WithContext(ctx).Where("start >= ? AND start < ?", cutoff, time.Now())
	if siteID != "" {
		q = q.Where("site_id = ?", siteID)
	}
	var shifts []models.Shift
	if err := q.Find(&shifts).Error; err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(shifts))
	for _, s := range shifts {
		ids = append(ids, s.ID)
	}
	var assignments []models.ShiftAssignment
	if err := r.db.WithContext(ctx).Where("shift_id IN ?", ids).Find(&assignments).Error; err != nil {
		return nil, err
	}
	byShift := make(map[string][]models.ShiftAssignment)
	for _, a := range assignments {
		byShift[a.ShiftID] = append(byShift[a.ShiftID], a)
	}

	occ := make([]Occupancy, 0, len(shifts))
	for _, s := range shifts {
		rows := byShift[s.ID]
		for i := range rows {
			rows[i].ShiftStart = s.Start
			rows[i].ShiftEnd = s.End
			rows[i].SiteID = s.SiteID
		}
		occ = append(occ, Occupancy{Shift: s, Assignments: rows})
	}
	return occ, nil
}

func (r *gormReader) Sites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := r.db.WithContext(ctx).Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *gormReader) SiteByID(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
