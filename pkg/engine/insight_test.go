package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reem20050/workforce-intel/pkg/config"
	"github.com/reem20050/workforce-intel/pkg/models"
	"github.com/reem20050/workforce-intel/pkg/signals"
)

// fakeReader is an in-memory signal reader for engine tests
type fakeReader struct {
	employees      []models.Employee
	assignments    map[string][]models.ShiftAssignment
	occupancy      []signals.Occupancy
	sites          []models.Site
	employeesErr   error
	occupancyErr   error
	assignmentsErr map[string]error

	// when set, HistoricalOccupancy signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (f *fakeReader) EligibleEmployees(_ context.Context, date, start, end time.Time, requiresWeapon bool, _ []string) ([]models.Employee, error) {
	if f.employeesErr != nil {
		return nil, f.employeesErr
	}
	var out []models.Employee
	for _, e := range f.employees {
		if !e.Active {
			continue
		}
		if requiresWeapon && !e.ArmedOn(date) {
			continue
		}
		if f.busy(e.ID, start, end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeReader) busy(employeeID string, start, end time.Time) bool {
	for _, a := range f.assignments[employeeID] {
		if a.Status == models.StatusCancelled {
			continue
		}
		if a.ShiftStart.Before(end) && a.ShiftEnd.After(start) {
			return true
		}
	}
	return false
}

func (f *fakeReader) ActiveEmployees(context.Context) ([]models.Employee, error) {
	if f.employeesErr != nil {
		return nil, f.employeesErr
	}
	return f.employees, nil
}

func (f *fakeReader) RecentAssignments(_ context.Context, employeeID string, _ int) ([]models.ShiftAssignment, error) {
	if err := f.assignmentsErr[employeeID]; err != nil {
		return nil, err
	}
	return f.assignments[employeeID], nil
}

func (f *fakeReader) AssignmentsBetween(_ context.Context, employeeID string, from, to time.Time) ([]models.ShiftAssignment, error) {
	if err := f.assignmentsErr[employeeID]; err != nil {
		return nil, err
	}
	var out []models.ShiftAssignment
	for _, a := range f.assignments[employeeID] {
		if !a.ShiftStart.Before(from) && a.ShiftStart.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeReader) HistoricalOccupancy(context.Context, string, int) ([]signals.Occupancy, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.occupancyErr != nil {
		return nil, f.occupancyErr
	}
	return f.occupancy, nil
}

func (f *fakeReader) Sites(context.Context) ([]models.Site, error) {
	return f.sites, nil
}

func (f *fakeReader) SiteByID(_ context.Context, id string) (*models.Site, error) {
	for _, s := range f.sites {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, errors.New("site not found")
}

// fakeStore records appended snapshots in memory
type fakeStore struct {
	mu        sync.Mutex
	rows      []models.WeeklyInsight
	appendErr error
}

func (s *fakeStore) Append(_ context.Context, insight *models.WeeklyInsight) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *insight)
	return nil
}

func (s *fakeStore) Latest(context.Context) (*models.WeeklyInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, nil
	}
	row := s.rows[len(s.rows)-1]
	return &row, nil
}

func quietPortfolio() *fakeReader {
	monday := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	return &fakeReader{
		employees: []models.Employee{{ID: "e1", Name: "Able", Active: true}},
		occupancy: []signals.Occupancy{occurrence("site-a", monday, 2, 2)},
		sites:     []models.Site{{ID: "site-a", Name: "Harbor Gate"}},
	}
}

func TestGenerate_QuietPortfolioIsInfo(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(NewService(quietPortfolio(), config.Default()), store)

	insight, err := gen.Generate(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if insight.Severity != models.SeverityInfo {
		t.Errorf("expected info severity, got %s", insight.Severity)
	}
	if insight.RunID == "" {
		t.Errorf("expected a run ID")
	}
	if insight.ConfigVersion != config.Default().Version {
		t.Errorf("expected config version stamped, got %q", insight.ConfigVersion)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected exactly one appended row, got %d", len(store.rows))
	}

	var details models.InsightDetails
	if err := json.Unmarshal([]byte(insight.Details), &details); err != nil {
		t.Fatalf("details payload is not valid JSON: %v", err)
	}
}

func TestGenerate_TroubledPortfolioEscalates(t *testing.T) {
	monday := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	reader := quietPortfolio()
	// Every Monday understaffed pushes the shortage rate past critical
	reader.occupancy = []signals.Occupancy{
		occurrence("site-a", monday, 3, 1),
		occurrence("site-a", monday.AddDate(0, 0, 7), 3, 1),
	}

	store := &fakeStore{}
	gen := NewGenerator(NewService(reader, config.Default()), store)

	insight, err := gen.Generate(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if insight.Severity != models.SeverityCritical {
		t.Errorf("expected critical severity at 100%% shortage, got %s", insight.Severity)
	}
	if insight.ShortageSites != 1 {
		t.Errorf("expected 1 shortage site, got %d", insight.ShortageSites)
	}
	if insight.Trigger != TriggerScheduled {
		t.Errorf("expected scheduled trigger recorded, got %s", insight.Trigger)
	}
}

func TestGenerate_ConcurrentRunsConflict(t *testing.T) {
	reader := quietPortfolio()
	reader.entered = make(chan struct{}, 2)
	reader.release = make(chan struct{})

	store := &fakeStore{}
	gen := NewGenerator(NewService(reader, config.Default()), store)

	done := make(chan error, 1)
	go func() {
		_, err := gen.Generate(context.Background(), TriggerManual)
		done <- err
	}()

	<-reader.entered // first run is now inside the lock

	if _, err := gen.Generate(context.Background(), TriggerManual); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress for concurrent trigger, got %v", err)
	}

	close(reader.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(store.rows) != 1 {
		t.Errorf("expected exactly one snapshot, got %d", len(store.rows))
	}

	// The lock is released once the first run completes
	reader.entered = nil
	if _, err := gen.Generate(context.Background(), TriggerManual); err != nil {
		t.Errorf("expected follow-up run to succeed, got %v", err)
	}
}

func TestGenerate_AnalyzerFailureDegradesToWarning(t *testing.T) {
	reader := quietPortfolio()
	reader.occupancyErr = errors.New("replica lagging")

	store := &fakeStore{}
	gen := NewGenerator(NewService(reader, config.Default()), store)

	insight, err := gen.Generate(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}
	if len(insight.Warnings) == 0 {
		t.Errorf("expected warnings about the failed analyzers")
	}
	if len(store.rows) != 1 {
		t.Errorf("expected the degraded snapshot to still be written")
	}
}

func TestGenerate_RowsAreAppendOnly(t *testing.T) {
	store := &fakeStore{}
	gen := NewGenerator(NewService(quietPortfolio(), config.Default()), store)

	first, err := gen.Generate(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 appended rows, got %d", len(store.rows))
	}
	if first.RunID == second.RunID {
		t.Errorf("expected distinct run IDs")
	}
	latest, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.RunID != second.RunID {
		t.Errorf("expected latest to return the newest run")
	}
}
