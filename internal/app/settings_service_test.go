package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/domain/schedule"
	idb "routine_notification_bot/internal/infra/database"
)

func TestCreateSettingsSchedulesJobs(t *testing.T) {
	repo := newFakeSettingsRepo()
	registrar := &recordingRegistrar{}
	svc := NewSettingsServiceImpl(repo, &fakeDirectory{}, registrar, schedule.SystemClock{}, quietLog())

	s, err := svc.CreateSettings(context.Background(), "acme", "0 9 * * 1", []string{"ops"})
	if err != nil {
		t.Fatalf("CreateSettings: %v", err)
	}
	if s.ID == "" || s.Cron != "0 9 * * 1" {
		t.Errorf("settings = %+v", s)
	}
	if len(registrar.scheduled) != 1 || registrar.scheduled[0].CompanyID != "acme" {
		t.Errorf("scheduled = %+v", registrar.scheduled)
	}
}

func TestCreateSettingsRejectsInvalidCron(t *testing.T) {
	registrar := &recordingRegistrar{}
	svc := NewSettingsServiceImpl(newFakeSettingsRepo(), &fakeDirectory{}, registrar, schedule.SystemClock{}, quietLog())

	_, err := svc.CreateSettings(context.Background(), "acme", "every monday", nil)
	if !errors.Is(err, schedule.ErrInvalidCadence) {
		t.Fatalf("expected ErrInvalidCadence, got %v", err)
	}
	if len(registrar.scheduled) != 0 {
		t.Errorf("invalid settings must not be scheduled")
	}
}

func TestUpdateDisabledTeams(t *testing.T) {
	repo := newFakeSettingsRepo()
	registrar := &recordingRegistrar{}
	svc := NewSettingsServiceImpl(repo, &fakeDirectory{}, registrar, schedule.SystemClock{}, quietLog())

	if _, err := svc.UpdateDisabledTeams(context.Background(), "acme", []string{"eng"}); !errors.Is(err, idb.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}

	if _, err := svc.CreateSettings(context.Background(), "acme", "0 0 * * 5", nil); err != nil {
		t.Fatal(err)
	}
	s, err := svc.UpdateDisabledTeams(context.Background(), "acme", []string{"eng"})
	if err != nil {
		t.Fatalf("UpdateDisabledTeams: %v", err)
	}
	if len(s.DisabledTeams) != 1 || s.DisabledTeams[0] != "eng" {
		t.Errorf("DisabledTeams = %v", s.DisabledTeams)
	}
	if len(registrar.scheduled) != 2 {
		t.Errorf("jobs should be rescheduled after an update, got %d registrations", len(registrar.scheduled))
	}
}

func TestSeedAllCompanies(t *testing.T) {
	repo := newFakeSettingsRepo()
	dir := &fakeDirectory{companies: []directory.Team{{ID: "acme"}, {ID: "globex"}}}
	svc := NewSettingsServiceImpl(repo, dir, nil, schedule.SystemClock{}, quietLog())

	n, err := svc.SeedAllCompanies(context.Background(), "0 0 * * 1", nil)
	if err != nil {
		t.Fatalf("SeedAllCompanies: %v", err)
	}
	if n != 2 {
		t.Fatalf("seeded %d companies, want 2", n)
	}
	all, _ := svc.ListSettings(context.Background())
	if len(all) != 2 || all[0].CompanyID != "acme" || all[1].Cron != "0 0 * * 1" {
		t.Errorf("settings = %+v", all)
	}
}

type countingClock struct {
	at    time.Time
	calls int
}

func (c *countingClock) Now() time.Time {
	c.calls++
	return c.at
}

func TestCreateSettingsReadsInjectedClock(t *testing.T) {
	clock := &countingClock{at: day(2024, 3, 1, 9)}
	svc := NewSettingsServiceImpl(newFakeSettingsRepo(), &fakeDirectory{}, nil, clock, quietLog())

	if _, err := svc.CreateSettings(context.Background(), "acme", "0 9 * * 1", nil); err != nil {
		t.Fatalf("CreateSettings: %v", err)
	}
	if clock.calls == 0 {
		t.Errorf("cadence was validated without the service clock")
	}
}
