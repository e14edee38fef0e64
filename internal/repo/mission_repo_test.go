package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/search"
)

func strp(s string) *string { return &s }

func newLease(tenant, address string) *domain.LeaseWindow {
	return &domain.LeaseWindow{
		TenantName: tenant,
		Address:    address,
		StartDate:  "2025-02-01",
		EndDate:    "2025-02-28",
		Status:     domain.LeaseAssigned,
		OwnerID:    "ops-1",
		SearchText: search.Document(tenant, address),
	}
}

func TestCreateAndGetMission(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	m := &domain.Mission{LeaseWindowID: "lw", Type: domain.MissionEntry, ScheduledDate: "2025-02-01", Status: domain.MissionUnassigned}
	if err := CreateMission(ctx, db, m); err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	if m.ID == "" || m.Version != 1 {
		t.Fatalf("expected id and version 1, got %+v", m)
	}
	got, err := GetMission(ctx, db, m.ID)
	if err != nil || got.Type != domain.MissionEntry {
		t.Fatalf("GetMission: %v %+v", err, got)
	}
	if _, err := GetMission(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveMission_VersionCheck(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	m := &domain.Mission{LeaseWindowID: "lw", Type: domain.MissionExit, ScheduledDate: "2025-02-28", Status: domain.MissionUnassigned}
	if err := CreateMission(ctx, db, m); err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	stale := *m

	m.AssignedAgentID, m.ScheduledTime, m.Status = strp("a1"), strp("10:00"), domain.MissionAssigned
	if err := SaveMission(ctx, db, m); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}
	if m.Version != 2 {
		t.Fatalf("expected version 2, got %d", m.Version)
	}

	stale.Notes = "late writer"
	if err := SaveMission(ctx, db, &stale); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale for stale version, got %v", err)
	}

	got, _ := GetMission(ctx, db, m.ID)
	if got.Status != domain.MissionAssigned || got.Notes != "" || *got.ScheduledTime != "10:00" {
		t.Fatalf("unexpected stored mission: %+v", got)
	}
}

func TestSoftDeleteMission(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	m := &domain.Mission{LeaseWindowID: "lw", Type: domain.MissionEntry, ScheduledDate: "2025-02-01", Status: domain.MissionAssigned,
		AssignedAgentID: strp("a1"), ScheduledTime: strp("09:00")}
	if err := CreateMission(ctx, db, m); err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	if err := SoftDeleteMission(ctx, db, m.ID, 99); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale on wrong version, got %v", err)
	}
	if err := SoftDeleteMission(ctx, db, m.ID, m.Version); err != nil {
		t.Fatalf("SoftDeleteMission: %v", err)
	}
	if _, err := GetMission(ctx, db, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted mission must be hidden, got %v", err)
	}
	busy, err := ListAgentMissionsOn(ctx, db, "a1", "2025-02-01", "")
	if err != nil || len(busy) != 0 {
		t.Fatalf("deleted mission must not occupy the calendar: %v %v", busy, err)
	}
}

func TestListAgentMissionsOn_FiltersCancelledAndExcluded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mk := func(id, agent, date, clock string, st domain.MissionStatus) {
		m := &domain.Mission{ID: id, LeaseWindowID: "lw", Type: domain.MissionEntry, ScheduledDate: date, Status: st,
			AssignedAgentID: strp(agent), ScheduledTime: strp(clock)}
		if err := CreateMission(ctx, db, m); err != nil {
			t.Fatalf("CreateMission %s: %v", id, err)
		}
	}
	mk("m1", "a1", "2025-02-18", "10:00", domain.MissionAssigned)
	mk("m2", "a1", "2025-02-18", "14:00", domain.MissionCancelled)
	mk("m3", "a1", "2025-02-19", "10:00", domain.MissionAssigned)
	mk("m4", "a2", "2025-02-18", "10:00", domain.MissionInProgress)
	mk("m5", "a1", "2025-02-18", "08:00", domain.MissionCompleted)

	got, err := ListAgentMissionsOn(ctx, db, "a1", "2025-02-18", "")
	if err != nil {
		t.Fatalf("ListAgentMissionsOn: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m5" || got[1].ID != "m1" {
		t.Fatalf("unexpected missions: %+v", got)
	}
	got, _ = ListAgentMissionsOn(ctx, db, "a1", "2025-02-18", "m1")
	if len(got) != 1 || got[0].ID != "m5" {
		t.Fatalf("exclusion failed: %+v", got)
	}

	all, err := ListTimedMissionsOn(ctx, db, "2025-02-18")
	if err != nil || len(all) != 3 {
		t.Fatalf("ListTimedMissionsOn: %v %d", err, len(all))
	}
}

func TestListMissionsPage_FiltersAndSearch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lw1 := newLease("Élodie Durand", "12 Rue de l'Église")
	lw2 := newLease("John Smith", "8 Baker Street")
	for _, lw := range []*domain.LeaseWindow{lw1, lw2} {
		if err := CreateLeaseWindow(ctx, db, lw); err != nil {
			t.Fatalf("CreateLeaseWindow: %v", err)
		}
	}
	mk := func(lw, date string, typ domain.MissionType, notes string) {
		m := &domain.Mission{LeaseWindowID: lw, Type: typ, ScheduledDate: date, Status: domain.MissionUnassigned, Notes: notes}
		if err := CreateMission(ctx, db, m); err != nil {
			t.Fatalf("CreateMission: %v", err)
		}
	}
	mk(lw1.ID, "2025-02-01", domain.MissionEntry, "")
	mk(lw1.ID, "2025-02-28", domain.MissionExit, "")
	mk(lw2.ID, "2025-02-03", domain.MissionEntry, "bring the spare keys")
	mk(lw2.ID, "2025-03-10", domain.MissionExit, "")

	page, total, err := ListMissionsPage(ctx, db, MissionFilter{From: "2025-02-01", To: "2025-02-28"}, 0, 10)
	if err != nil || total != 3 || len(page) != 3 {
		t.Fatalf("date range: total=%d len=%d err=%v", total, len(page), err)
	}
	if page[0].ScheduledDate != "2025-02-01" || page[2].ScheduledDate != "2025-02-28" {
		t.Fatalf("expected date ordering, got %v..%v", page[0].ScheduledDate, page[2].ScheduledDate)
	}

	// Accent- and case-insensitive match on the tenant.
	page, total, err = ListMissionsPage(ctx, db, MissionFilter{Query: "elodie EGLISE"}, 0, 10)
	if err != nil || total != 2 {
		t.Fatalf("search tenant: total=%d err=%v", total, err)
	}
	for _, m := range page {
		if m.LeaseWindowID != lw1.ID {
			t.Fatalf("search returned foreign mission %+v", m)
		}
	}

	// Notes are searched too.
	_, total, _ = ListMissionsPage(ctx, db, MissionFilter{Query: "spare"}, 0, 10)
	if total != 1 {
		t.Fatalf("notes search total=%d", total)
	}

	// Punctuation-only queries do not filter.
	_, total, _ = ListMissionsPage(ctx, db, MissionFilter{Query: "%"}, 0, 10)
	if total != 4 {
		t.Fatalf("punctuation-only query must not filter, total=%d", total)
	}

	_, total, _ = ListMissionsPage(ctx, db, MissionFilter{Type: domain.MissionExit, Statuses: []domain.MissionStatus{domain.MissionUnassigned}}, 0, 10)
	if total != 2 {
		t.Fatalf("type/status filter total=%d", total)
	}

	// Pagination.
	page, total, _ = ListMissionsPage(ctx, db, MissionFilter{}, 2, 2)
	if total != 4 || len(page) != 2 {
		t.Fatalf("pagination: total=%d len=%d", total, len(page))
	}
}

func TestListAssignedMissionsUpTo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mk := func(id, date string, st domain.MissionStatus) {
		m := &domain.Mission{ID: id, LeaseWindowID: "lw", Type: domain.MissionEntry, ScheduledDate: date, Status: st,
			AssignedAgentID: strp("a1"), ScheduledTime: strp("09:00")}
		if err := CreateMission(ctx, db, m); err != nil {
			t.Fatalf("CreateMission: %v", err)
		}
	}
	mk("old", "2025-01-01", domain.MissionAssigned)
	mk("today", "2025-01-05", domain.MissionAssigned)
	mk("future", "2025-01-06", domain.MissionAssigned)
	mk("started", "2025-01-01", domain.MissionInProgress)

	got, err := ListAssignedMissionsUpTo(ctx, db, "2025-01-05", nil, 10)
	if err != nil || len(got) != 2 || got[0].ID != "old" || got[1].ID != "today" {
		t.Fatalf("unexpected: %v %+v", err, got)
	}
}

func TestListAssignedMissionsUpTo_KeysetPages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := []struct{ id, date, at string }{
		{"m-3", "2025-01-02", "09:00"},
		{"m-1", "2025-01-01", "10:00"},
		{"m-2", "2025-01-01", "10:00"},
		{"m-0", "2025-01-01", "09:30"},
		{"m-4", "2025-01-03", "08:00"},
	}
	for _, r := range rows {
		m := &domain.Mission{ID: r.id, LeaseWindowID: "lw", Type: domain.MissionEntry, ScheduledDate: r.date,
			Status: domain.MissionAssigned, AssignedAgentID: strp("a1"), ScheduledTime: strp(r.at)}
		if err := CreateMission(ctx, db, m); err != nil {
			t.Fatalf("CreateMission: %v", err)
		}
	}

	var (
		got   []string
		after *MissionCursor
	)
	for {
		page, err := ListAssignedMissionsUpTo(ctx, db, "2025-01-02", after, 2)
		if err != nil {
			t.Fatalf("ListAssignedMissionsUpTo: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			got = append(got, m.ID)
		}
		after = CursorAfter(&page[len(page)-1])
	}
	want := []string{"m-0", "m-1", "m-2", "m-3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v; want %v", got, want)
	}
}
