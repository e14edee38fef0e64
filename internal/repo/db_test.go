package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newBareDB opens an in-memory database without any tables.
func newBareDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:bare_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_SetsPragmas_Pool_AndAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missions.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var journalMode string
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}
	var busyMS int
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil || busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d (%v)", busyMS, err)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// Idempotent.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate (second run): %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&domain.LeaseWindow{}, &domain.Mission{}, &domain.Checklist{}, &domain.IncidentReport{}, &domain.Notification{}, &domain.Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&domain.Notification{}, domain.PendingNotificationIndex) {
		t.Fatalf("expected partial unique index %s", domain.PendingNotificationIndex)
	}
}

func TestAutoMigrate_PendingIndexRejectsSecondPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lw := "lw-1"
	mk := func(status domain.NotificationStatus) *domain.Notification {
		return &domain.Notification{
			Type:          domain.NotifyExitReminder,
			RecipientID:   "ops",
			ScheduledAt:   time.Now().UTC(),
			Status:        status,
			LeaseWindowID: &lw,
		}
	}
	if err := CreateNotification(ctx, db, mk(domain.NotificationPending)); err != nil {
		t.Fatalf("first pending: %v", err)
	}
	if err := CreateNotification(ctx, db, mk(domain.NotificationPending)); err != ErrDuplicate {
		t.Fatalf("second pending should be ErrDuplicate, got %v", err)
	}
	// Non-pending rows are not constrained.
	if err := CreateNotification(ctx, db, mk(domain.NotificationSent)); err != nil {
		t.Fatalf("sent row: %v", err)
	}
	if err := CreateNotification(ctx, db, mk(domain.NotificationCancelled)); err != nil {
		t.Fatalf("cancelled row: %v", err)
	}
}

func TestIsDuplicate(t *testing.T) {
	if IsDuplicate(nil) {
		t.Fatalf("nil is not a duplicate")
	}
	if !IsDuplicate(ErrDuplicate) || !IsDuplicate(gorm.ErrDuplicatedKey) {
		t.Fatalf("sentinels must be duplicates")
	}
	if !IsDuplicate(fmt.Errorf("UNIQUE constraint failed: notifications.type")) {
		t.Fatalf("sqlite text error must be detected")
	}
	if IsDuplicate(fmt.Errorf("disk I/O error")) {
		t.Fatalf("unrelated error must not be a duplicate")
	}
}

// Compile-time guard to ensure signature stability.
var _ func(string) (*gorm.DB, error) = OpenSQLite
