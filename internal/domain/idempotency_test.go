package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestIdempotency_MigrateAndUniqueKey(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:domain_idem?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if got := (Idempotency{}).TableName(); got != "idempotency" {
		t.Fatalf("TableName() = %q", got)
	}
	if !db.Migrator().HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected unique index ux_user_scope_key")
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first := Idempotency{
		ID: "idem-1", UserID: "ops-a", Scope: "/api/v1/lease-windows", Key: "k1",
		ResourceID: "lw-1", Status: 201, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "idem-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.ResourceID != "lw-1" || got.Status != 201 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected row: %+v", got)
	}

	dup := first
	dup.ID, dup.ResourceID = "idem-2", "lw-2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("same (user, scope, key) must be rejected")
	}

	// The same key is free for another caller or another route.
	other := first
	other.ID, other.UserID = "idem-3", "ops-b"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("other user: %v", err)
	}
	other.ID, other.UserID, other.Scope = "idem-4", "ops-a", "/api/v1/missions/:id/assign"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("other scope: %v", err)
	}
}
