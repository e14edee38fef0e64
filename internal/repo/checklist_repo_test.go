package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

func TestUpsertChecklist_ReplacesUntilValidated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &domain.Checklist{MissionID: "m1", Completed: false, SubmittedBy: "a1", SubmittedAt: time.Now().UTC()}
	if err := UpsertChecklist(ctx, db, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := &domain.Checklist{MissionID: "m1", Completed: true, KeysReturned: true, DamageCount: 2, SubmittedBy: "a1", SubmittedAt: time.Now().UTC()}
	if err := UpsertChecklist(ctx, db, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := GetChecklistByMission(ctx, db, "m1")
	if err != nil {
		t.Fatalf("GetChecklistByMission: %v", err)
	}
	if !got.Completed || !got.KeysReturned || got.DamageCount != 2 || got.ID != first.ID {
		t.Fatalf("upsert must update the existing row in place: %+v", got)
	}

	if err := MarkChecklistValidated(ctx, db, "m1", "ops-1", time.Now().UTC()); err != nil {
		t.Fatalf("MarkChecklistValidated: %v", err)
	}
	if err := MarkChecklistValidated(ctx, db, "m1", "ops-1", time.Now().UTC()); !errors.Is(err, ErrStale) {
		t.Fatalf("second validation must be ErrStale, got %v", err)
	}

	third := &domain.Checklist{MissionID: "m1", Completed: false, SubmittedAt: time.Now().UTC()}
	if err := UpsertChecklist(ctx, db, third); !errors.Is(err, ErrStale) {
		t.Fatalf("validated checklist must not be replaced, got %v", err)
	}
	got, _ = GetChecklistByMission(ctx, db, "m1")
	if !got.Completed || !got.Validated || got.ValidatedBy != "ops-1" {
		t.Fatalf("validated checklist changed: %+v", got)
	}
}

func TestGetChecklistByMission_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetChecklistByMission(context.Background(), db, "none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncidentReports_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := CreateIncidentReports(ctx, db, nil); err != nil {
		t.Fatalf("empty batch must be a no-op: %v", err)
	}
	reports := []domain.IncidentReport{
		{LeaseWindowID: "lw", MissionID: "x", Type: domain.IncidentKeysNotReturned, Severity: domain.SeverityHigh, Message: "keys", DetectedAt: at},
		{LeaseWindowID: "lw", MissionID: "x", Type: domain.IncidentChecklistIncomplete, Severity: domain.SeverityMedium, Message: "incomplete", DetectedAt: at},
	}
	if err := CreateIncidentReports(ctx, db, reports); err != nil {
		t.Fatalf("CreateIncidentReports: %v", err)
	}
	got, err := ListIncidentReports(ctx, db, "lw")
	if err != nil || len(got) != 2 {
		t.Fatalf("ListIncidentReports: %v %d", err, len(got))
	}
	if reports[0].ID == "" || reports[1].ID == "" {
		t.Fatalf("ids must be assigned")
	}
}
