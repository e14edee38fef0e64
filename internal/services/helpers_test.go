package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-mission-scheduler/internal/clock"
	"github.com/tbourn/go-mission-scheduler/internal/config"
	"github.com/tbourn/go-mission-scheduler/internal/delivery"
	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/slots"
)

// ----- DB -----

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// One connection: shared-cache sqlite reports table locks instead of
	// waiting when writers overlap.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// ----- Fake delivery channel -----

type fakeChannel struct {
	mu   sync.Mutex
	sent []delivery.Message
	// fail, when set, decides the outcome of each Send.
	fail func(ctx context.Context, msg delivery.Message) error
}

func (c *fakeChannel) Send(ctx context.Context, msg delivery.Message) error {
	if c.fail != nil {
		if err := c.fail(ctx, msg); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) messages() []delivery.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivery.Message(nil), c.sent...)
}

func (c *fakeChannel) count(typ domain.NotificationType) int {
	n := 0
	for _, m := range c.messages() {
		if m.Type == string(typ) {
			n++
		}
	}
	return n
}

// ----- Stack -----

type stack struct {
	db       *gorm.DB
	clk      *clock.FakeClock
	ch       *fakeChannel
	detector *ConflictDetector
	missions *MissionService
	notif    *NotificationService
	leases   *LeaseService
	jobs     *Jobs
}

func testNotificationConfig() config.NotificationConfig {
	return config.NotificationConfig{
		ReminderLeadDays:  10,
		OverdueGrace:      2 * time.Hour,
		RealertInterval:   24 * time.Hour,
		Retention:         30 * 24 * time.Hour,
		DeliveryTimeout:   time.Second,
		ClaimTTL:          5 * time.Minute,
		WorkerLimit:       4,
		BatchSize:         100,
		OpsUserIDs:        []string{"ops-a", "ops-b"},
		IncidentSweepWait: 24 * time.Hour,
	}
}

func newStack(t *testing.T, now time.Time) *stack {
	t.Helper()
	db := newServiceDB(t)
	clk := clock.Fake(now)
	ch := &fakeChannel{}
	log := zerolog.Nop()
	cfg := testNotificationConfig()

	detector := NewConflictDetector(db, slots.DefaultGrid, 0)
	missions := NewMissionService(db, detector, clk, log)
	notif := NewNotificationService(db, ch, clk, log, time.UTC, cfg)
	leases := NewLeaseService(db, missions, notif, clk, log, cfg.IncidentSweepWait)
	return &stack{
		db:       db,
		clk:      clk,
		ch:       ch,
		detector: detector,
		missions: missions,
		notif:    notif,
		leases:   leases,
		jobs:     &Jobs{DB: db, Notifications: notif, Leases: leases, Log: log},
	}
}

// t0 is the default "now" of service tests.
var t0 = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

// newLease creates a lease window with unassigned missions on its start and
// end dates.
func (s *stack) newLease(t *testing.T, start, end string) *LeaseWindowResult {
	t.Helper()
	res, err := s.leases.Create(context.Background(), LeaseWindowInput{
		TenantName: "Jane Doe",
		Address:    "12 rue de la Paix, Paris",
		StartDate:  start,
		EndDate:    end,
		OwnerID:    "owner-1",
	})
	if err != nil {
		t.Fatalf("create lease window: %v", err)
	}
	return res
}

// bookAt creates a lease window whose entry mission is assigned to agent
// on date at clock.
func (s *stack) bookAt(t *testing.T, agent, date, at string) *domain.Mission {
	t.Helper()
	res := s.newLease(t, date, "2025-12-31")
	m, err := s.missions.Assign(context.Background(), res.Entry.ID, AssignInput{AgentID: agent, Time: at, By: "ops-a"})
	if err != nil {
		t.Fatalf("assign %s %s %s: %v", agent, date, at, err)
	}
	return m
}

// walkTo moves a mission forward along assigned → in_progress → completed.
func (s *stack) walkTo(t *testing.T, id string, to domain.MissionStatus) {
	t.Helper()
	ctx := context.Background()
	for _, st := range []domain.MissionStatus{domain.MissionInProgress, domain.MissionCompleted} {
		if _, err := s.missions.UpdateStatus(ctx, id, st, nil); err != nil {
			t.Fatalf("status %s: %v", st, err)
		}
		if st == to {
			return
		}
	}
}

func stateErr(t *testing.T, err error) *StateError {
	t.Helper()
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StateError, got %T %v", err, err)
	}
	return se
}

func countNotifications(t *testing.T, db *gorm.DB, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Notification{}).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}
