package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/slots"
)

func TestAssign_SetsAgentAndAlerts(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	lease := s.newLease(t, "2025-02-18", "2025-02-28")

	notes := "bring keys"
	m, err := s.missions.Assign(ctx, lease.Entry.ID, AssignInput{AgentID: "agent-1", Time: "10:00", Notes: &notes, By: "ops-a"})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if m.Status != domain.MissionAssigned || *m.AssignedAgentID != "agent-1" || *m.ScheduledTime != "10:00" {
		t.Fatalf("unexpected mission: %+v", m)
	}
	if m.AssignedBy != "ops-a" || m.AssignedAt == nil || !m.AssignedAt.Equal(t0) {
		t.Fatalf("assignment not stamped: %+v", m)
	}
	if m.Notes != "bring keys" || m.Version != 2 {
		t.Fatalf("notes=%q version=%d", m.Notes, m.Version)
	}

	msgs := s.ch.messages()
	if len(msgs) != 1 || msgs[0].Type != string(domain.NotifyMissionAssigned) || msgs[0].RecipientID != "agent-1" {
		t.Fatalf("expected one mission_assigned alert to agent-1, got %+v", msgs)
	}
	if n := countNotifications(t, s.db, "type = ? AND status = ?", domain.NotifyMissionAssigned, domain.NotificationSent); n != 1 {
		t.Fatalf("alert should be recorded as sent, got %d", n)
	}
}

func TestAssign_Errors(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	s.bookAt(t, "agent-1", "2025-02-18", "10:00")
	lease := s.newLease(t, "2025-02-18", "2025-02-28")

	// Overlap on the agent's calendar.
	_, err := s.missions.Assign(ctx, lease.Entry.ID, AssignInput{AgentID: "agent-1", Time: "10:30"})
	var ce *ConflictError
	if !errors.As(err, &ce) || len(ce.Conflicts) != 1 {
		t.Fatalf("expected ConflictError with 1 conflict, got %v", err)
	}
	got, _ := s.missions.Get(ctx, lease.Entry.ID)
	if got.Status != domain.MissionUnassigned || got.HasAgent() {
		t.Fatalf("rejected assignment must not mutate: %+v", got)
	}

	// No time anywhere.
	if _, err := s.missions.Assign(ctx, lease.Entry.ID, AssignInput{AgentID: "agent-2"}); ErrorCode(err) != CodeValidation {
		t.Fatalf("expected validation error without time, got %v", err)
	}
	// Missing agent.
	if _, err := s.missions.Assign(ctx, lease.Entry.ID, AssignInput{Time: "10:00"}); ErrorCode(err) != CodeValidation {
		t.Fatalf("expected validation error without agent, got %v", err)
	}
	// Unknown mission.
	if _, err := s.missions.Assign(ctx, "nope", AssignInput{AgentID: "a", Time: "10:00"}); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("expected ErrMissionNotFound, got %v", err)
	}

	// Started missions cannot be reassigned.
	m := s.bookAt(t, "agent-3", "2025-02-19", "09:00")
	s.walkTo(t, m.ID, domain.MissionInProgress)
	_, err = s.missions.Assign(ctx, m.ID, AssignInput{AgentID: "agent-4", Time: "09:00"})
	if se := stateErr(t, err); se.Current != string(domain.MissionInProgress) {
		t.Fatalf("state error should name current status: %+v", se)
	}
}

func TestAssign_ReassignKeepsExistingTimeAndChecksNewAgentOnly(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	m := s.bookAt(t, "agent-1", "2025-02-18", "10:00")

	// Reassigning to another agent keeps the time and ignores agent-1.
	got, err := s.missions.Assign(ctx, m.ID, AssignInput{AgentID: "agent-2"})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if *got.AssignedAgentID != "agent-2" || *got.ScheduledTime != "10:00" {
		t.Fatalf("unexpected reassignment: %+v", got)
	}
	if c, _ := s.detector.DetectConflicts(ctx, "agent-1", "2025-02-18", "10:00", ""); len(c) != 0 {
		t.Fatalf("agent-1 should be free after reassignment: %v", c)
	}
}

func TestUpdateDetails_AutoPromotesAndRechecks(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	lease := s.newLease(t, "2025-02-18", "2025-02-28")

	at := "14:00"
	m, err := s.missions.UpdateDetails(ctx, lease.Entry.ID, MissionPatch{Time: &at})
	if err != nil {
		t.Fatalf("set time: %v", err)
	}
	if m.Status != domain.MissionUnassigned {
		t.Fatalf("time alone must not promote, got %s", m.Status)
	}

	agent := "agent-1"
	m, err = s.missions.UpdateDetails(ctx, lease.Entry.ID, MissionPatch{AgentID: &agent, By: "ops-a"})
	if err != nil {
		t.Fatalf("set agent: %v", err)
	}
	if m.Status != domain.MissionAssigned || m.AssignedBy != "ops-a" {
		t.Fatalf("agent + time must promote to assigned: %+v", m)
	}
	if s.ch.count(domain.NotifyMissionAssigned) != 1 {
		t.Fatalf("promotion should alert the agent once")
	}

	// Moving onto an occupied slot is rejected.
	s.bookAt(t, "agent-1", "2025-02-19", "14:30")
	day := "2025-02-19"
	if _, err := s.missions.UpdateDetails(ctx, m.ID, MissionPatch{Date: &day}); ErrorCode(err) != CodeSchedulingConflict {
		t.Fatalf("expected scheduling conflict, got %v", err)
	}

	// Empty patch and malformed values are validation errors.
	if _, err := s.missions.UpdateDetails(ctx, m.ID, MissionPatch{}); ErrorCode(err) != CodeValidation {
		t.Fatalf("empty patch: %v", err)
	}
	bad := "25:00"
	if _, err := s.missions.UpdateDetails(ctx, m.ID, MissionPatch{Time: &bad}); ErrorCode(err) != CodeValidation {
		t.Fatalf("bad time: %v", err)
	}
}

func TestUpdateDetails_InProgressOnlyNotes(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	m := s.bookAt(t, "agent-1", "2025-02-18", "10:00")
	s.walkTo(t, m.ID, domain.MissionInProgress)

	notes := "tenant late"
	got, err := s.missions.UpdateDetails(ctx, m.ID, MissionPatch{Notes: &notes})
	if err != nil || got.Notes != "tenant late" {
		t.Fatalf("notes edit on in_progress: %v %+v", err, got)
	}
	at := "11:00"
	if _, err := s.missions.UpdateDetails(ctx, m.ID, MissionPatch{Time: &at}); ErrorCode(err) != CodeInvalidState {
		t.Fatalf("reschedule of in_progress must be a state error, got %v", err)
	}

	s.walkTo(t, m.ID, domain.MissionCompleted)
	if _, err := s.missions.UpdateDetails(ctx, m.ID, MissionPatch{Notes: &notes}); ErrorCode(err) != CodeInvalidState {
		t.Fatalf("completed mission must not be editable, got %v", err)
	}
}

func TestUpdateStatus_StampsAndHook(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	m := s.bookAt(t, "agent-1", "2025-02-18", "10:00")

	got, err := s.missions.UpdateStatus(ctx, m.ID, domain.MissionInProgress, nil)
	if err != nil || got.StartedAt == nil {
		t.Fatalf("in_progress: %v %+v", err, got)
	}
	got, err = s.missions.UpdateStatus(ctx, m.ID, domain.MissionCompleted, nil)
	if err != nil || got.CompletedAt == nil {
		t.Fatalf("completed: %v %+v", err, got)
	}

	msgs := s.ch.messages()
	last := msgs[len(msgs)-1]
	if last.Type != string(domain.NotifyChecklistValidation) || last.RecipientID != "owner-1" || last.MissionID != m.ID {
		t.Fatalf("completion should ask the owner to validate, got %+v", last)
	}

	if _, err := s.missions.UpdateStatus(ctx, m.ID, "bogus", nil); ErrorCode(err) != CodeValidation {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestUpdateStatus_ClosureOfTerminalStates(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()

	done := s.bookAt(t, "agent-1", "2025-02-18", "10:00")
	s.walkTo(t, done.ID, domain.MissionCompleted)
	cancelled := s.bookAt(t, "agent-1", "2025-02-18", "14:00")
	if _, err := s.missions.UpdateStatus(ctx, cancelled.ID, domain.MissionCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	all := []domain.MissionStatus{domain.MissionUnassigned, domain.MissionAssigned, domain.MissionInProgress, domain.MissionCompleted, domain.MissionCancelled}
	for _, id := range []string{done.ID, cancelled.ID} {
		before, _ := s.missions.Get(ctx, id)
		for _, to := range all {
			_, err := s.missions.UpdateStatus(ctx, id, to, nil)
			stateErr(t, err)
		}
		after, _ := s.missions.Get(ctx, id)
		if after.Status != before.Status || after.Version != before.Version {
			t.Fatalf("terminal mission mutated: %+v -> %+v", before, after)
		}
	}

	// assigned → unassigned is not a transition.
	m := s.bookAt(t, "agent-2", "2025-02-18", "10:00")
	stateErr(t, func() error { _, err := s.missions.UpdateStatus(ctx, m.ID, domain.MissionUnassigned, nil); return err }())
}

func TestDelete_Guard(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()

	m := s.bookAt(t, "agent-1", "2025-02-18", "10:00")
	s.walkTo(t, m.ID, domain.MissionInProgress)
	err := s.missions.Delete(ctx, m.ID)
	se := stateErr(t, err)
	if se.Current != "in_progress" || se.Error() != "mission is in_progress, cannot delete" {
		t.Fatalf("unexpected state error: %v", se)
	}
	if got, err := s.missions.Get(ctx, m.ID); err != nil || got.Status != domain.MissionInProgress {
		t.Fatalf("mission must be untouched: %v %+v", err, got)
	}

	lease := s.newLease(t, "2025-02-18", "2025-02-28")
	if err := s.missions.Delete(ctx, lease.Entry.ID); err != nil {
		t.Fatalf("delete unassigned: %v", err)
	}
	if _, err := s.missions.Get(ctx, lease.Entry.ID); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("deleted mission should be hidden, got %v", err)
	}
	if err := s.missions.Delete(ctx, lease.Entry.ID); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestBulkUpdate_PartialFailure(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	a := s.newLease(t, "2025-02-18", "2025-02-28")
	b := s.newLease(t, "2025-02-19", "2025-02-28")

	// Give b's entry a time so bulk assign can place it.
	at := "14:00"
	if _, err := s.missions.UpdateDetails(ctx, b.Entry.ID, MissionPatch{Time: &at}); err != nil {
		t.Fatalf("set time: %v", err)
	}

	res, err := s.missions.BulkUpdate(ctx, []string{a.Entry.ID, b.Entry.ID, "missing"}, BulkAssign, BulkParams{AgentID: "agent-1", Time: "", By: "ops-a"})
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if len(res.Successes) != 1 || res.Successes[0] != b.Entry.ID {
		t.Fatalf("successes = %v", res.Successes)
	}
	codes := map[string]string{}
	for _, e := range res.Errors {
		codes[e.MissionID] = e.Code
	}
	if codes[a.Entry.ID] != CodeValidation || codes["missing"] != CodeNotFound || len(codes) != 2 {
		t.Fatalf("errors = %+v", res.Errors)
	}

	// Three existing ids and one missing, deleted independently.
	res, err = s.missions.BulkUpdate(ctx, []string{a.Entry.ID, a.Exit.ID, b.Exit.ID, "ghost"}, BulkDelete, BulkParams{})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if len(res.Successes) != 3 || len(res.Errors) != 1 || res.Errors[0].MissionID != "ghost" || res.Errors[0].Code != CodeNotFound {
		t.Fatalf("unexpected bulk delete result: %+v", res)
	}
}

func TestBulkUpdate_RejectsMalformedRequest(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	cases := []struct {
		ids    []string
		action string
		params BulkParams
	}{
		{nil, BulkDelete, BulkParams{}},
		{[]string{"x"}, "explode", BulkParams{}},
		{[]string{"x"}, BulkAssign, BulkParams{}},
		{[]string{"x"}, BulkUpdateStatus, BulkParams{Status: "later"}},
	}
	for i, tc := range cases {
		if _, err := s.missions.BulkUpdate(ctx, tc.ids, tc.action, tc.params); ErrorCode(err) != CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

// Concurrent random assignments never leave an agent with overlapping
// missions.
func TestAssign_NoDoubleBookingUnderConcurrency(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	const n = 40
	ids := make([]string, n)
	for i := range ids {
		ids[i] = s.newLease(t, "2025-03-03", "2025-03-31").Entry.ID
	}
	agents := []string{"agent-1", "agent-2", "agent-3"}
	labels := slots.DefaultGrid.Labels()

	var wg sync.WaitGroup
	for _, id := range ids {
		agent := agents[rng.Intn(len(agents))]
		at := labels[rng.Intn(len(labels))]
		wg.Add(1)
		go func(id, agent, at string) {
			defer wg.Done()
			_, err := s.missions.Assign(ctx, id, AssignInput{AgentID: agent, Time: at})
			if err != nil && ErrorCode(err) != CodeSchedulingConflict {
				t.Errorf("assign %s to %s at %s: %v", id, agent, at, err)
			}
		}(id, agent, at)
	}
	wg.Wait()

	for _, agent := range agents {
		list, _, err := s.missions.ListPage(ctx, repo.MissionFilter{AgentID: agent, From: "2025-03-03", To: "2025-03-03"}, 1, 100)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i := range list {
			for j := i + 1; j < len(list); j++ {
				a, _ := slots.ParseClock(*list[i].ScheduledTime)
				b, _ := slots.ParseClock(*list[j].ScheduledTime)
				if slots.DefaultGrid.Window(a).Overlaps(slots.DefaultGrid.Window(b)) {
					t.Fatalf("%s double-booked: %s and %s", agent, *list[i].ScheduledTime, *list[j].ScheduledTime)
				}
			}
		}
	}
}

// missionSnapshot renders the fields a rejected operation must not touch.
func missionSnapshot(m *domain.Mission) string {
	agent, at := "-", "-"
	if m.HasAgent() {
		agent = *m.AssignedAgentID
	}
	if m.HasTime() {
		at = *m.ScheduledTime
	}
	return fmt.Sprintf("%s %s %s %s v%d", m.Status, agent, m.ScheduledDate, at, m.Version)
}

// A random sequence of assignments, reschedules and status changes keeps
// every agent's calendar free of overlaps, and rejected operations leave the
// mission as it was.
func TestMissionOps_RandomSequenceKeepsCalendarsConsistent(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	var ids []string
	for i := 0; i < 8; i++ {
		lease := s.newLease(t, "2025-03-03", "2025-03-31")
		ids = append(ids, lease.Entry.ID, lease.Exit.ID)
	}
	agents := []string{"agent-1", "agent-2", "agent-3"}
	labels := slots.DefaultGrid.Labels()
	statuses := []domain.MissionStatus{
		domain.MissionAssigned, domain.MissionInProgress, domain.MissionCompleted, domain.MissionCancelled,
	}

	rejected := 0
	for step := 0; step < 300; step++ {
		id := ids[rng.Intn(len(ids))]
		agent := agents[rng.Intn(len(agents))]
		at := labels[rng.Intn(len(labels))]

		before, err := s.missions.Get(ctx, id)
		if err != nil {
			t.Fatalf("step %d: get: %v", step, err)
		}

		var (
			op    string
			opErr error
		)
		switch rng.Intn(4) {
		case 0:
			op = "assign " + agent + " " + at
			_, opErr = s.missions.Assign(ctx, id, AssignInput{AgentID: agent, Time: at})
		case 1:
			op = "move to " + agent + " " + at
			_, opErr = s.missions.UpdateDetails(ctx, id, MissionPatch{AgentID: &agent, Time: &at})
		case 2:
			op = "retime " + at
			_, opErr = s.missions.UpdateDetails(ctx, id, MissionPatch{Time: &at})
		default:
			to := statuses[rng.Intn(len(statuses))]
			op = "status " + string(to)
			_, opErr = s.missions.UpdateStatus(ctx, id, to, nil)
		}

		if opErr != nil {
			switch ErrorCode(opErr) {
			case CodeSchedulingConflict, CodeInvalidState, CodeValidation:
			default:
				t.Fatalf("step %d: %s: unexpected error %v", step, op, opErr)
			}
			rejected++
			after, err := s.missions.Get(ctx, id)
			if err != nil {
				t.Fatalf("step %d: get: %v", step, err)
			}
			if got, want := missionSnapshot(after), missionSnapshot(before); got != want {
				t.Fatalf("step %d: rejected %s changed the mission: %s -> %s", step, op, want, got)
			}
		}

		for _, id := range ids {
			m, err := s.missions.Get(ctx, id)
			if err != nil {
				t.Fatalf("step %d: get: %v", step, err)
			}
			switch m.Status {
			case domain.MissionAssigned, domain.MissionInProgress, domain.MissionCompleted:
				if !m.HasAgent() || !m.HasTime() {
					t.Fatalf("step %d: %s mission without agent or time: %s", step, m.Status, missionSnapshot(m))
				}
			}
		}
		for _, a := range agents {
			assertNoOverlap(t, s, a, "2025-03-03")
			assertNoOverlap(t, s, a, "2025-03-31")
		}
	}
	if rejected == 0 {
		t.Fatalf("sequence never exercised a rejection")
	}
}

// assertNoOverlap fails when two live missions of agent on date overlap.
func assertNoOverlap(t *testing.T, s *stack, agent, date string) {
	t.Helper()
	list, _, err := s.missions.ListPage(context.Background(), repo.MissionFilter{AgentID: agent, From: date, To: date}, 1, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var live []domain.Mission
	for _, m := range list {
		if m.Status != domain.MissionCancelled && m.HasTime() {
			live = append(live, m)
		}
	}
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			a, _ := slots.ParseClock(*live[i].ScheduledTime)
			b, _ := slots.ParseClock(*live[j].ScheduledTime)
			if slots.DefaultGrid.Window(a).Overlaps(slots.DefaultGrid.Window(b)) {
				t.Fatalf("%s double-booked on %s: %s and %s", agent, date, *live[i].ScheduledTime, *live[j].ScheduledTime)
			}
		}
	}
}

func TestListPage_FiltersAndSearch(t *testing.T) {
	s := newStack(t, t0)
	ctx := context.Background()
	s.bookAt(t, "agent-1", "2025-02-18", "10:00")
	res, err := s.leases.Create(ctx, LeaseWindowInput{
		TenantName: "Élodie Martin",
		Address:    "3 avenue Foch, Lyon",
		StartDate:  "2025-02-20",
		EndDate:    "2025-02-27",
		OwnerID:    "owner-2",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items, total, err := s.missions.ListPage(ctx, repo.MissionFilter{Query: "elodie"}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].ID != res.Entry.ID {
		t.Fatalf("accent-insensitive search should find both missions of the lease, got %d %v", total, items)
	}

	items, _, _ = s.missions.ListPage(ctx, repo.MissionFilter{Statuses: []domain.MissionStatus{domain.MissionAssigned}}, 1, 10)
	if len(items) != 1 {
		t.Fatalf("status filter: %v", items)
	}

	bad := []repo.MissionFilter{
		{From: "2025-02-30"},
		{From: "2025-02-20", To: "2025-02-10"},
		{Statuses: []domain.MissionStatus{"nope"}},
		{Type: "visit"},
	}
	for i, f := range bad {
		if _, _, err := s.missions.ListPage(ctx, f, 1, 10); ErrorCode(err) != CodeValidation {
			t.Fatalf("filter %d: expected validation error, got %v", i, err)
		}
	}
}

func TestAgentLocks_SortedAndReentrantAcrossCalls(t *testing.T) {
	var l agentLocks
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := []string{"b", "a"}
			if i%2 == 0 {
				ids = []string{"a", "b", "a", ""}
			}
			unlock := l.lock(ids...)
			counter++
			unlock()
		}(i)
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d", counter)
	}
	if got := fmt.Sprint(dedupe([]string{" x", "y", "x", ""})); got != "[x y]" {
		t.Fatalf("dedupe = %s", got)
	}
}
