// Package services – MissionService
//
// This file implements MissionService, which owns the mission lifecycle:
// assignment, detail edits, status transitions, soft deletion and bulk
// operations. Every write that can change an agent's calendar runs the
// conflict check and the update in one transaction while holding that
// agent's in-process lock; the row update itself is conditioned on the
// mission version, so a concurrent writer surfaces as ErrConcurrentUpdate
// instead of a lost update.
//
// Observability: public methods are OpenTelemetry-instrumented; rejected
// assignments increment observability.ConflictsTotal.
package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/clock"
	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/observability"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/slots"
	"github.com/tbourn/go-mission-scheduler/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxBulkSize bounds the number of missions one bulk request may touch.
const MaxBulkSize = 500

// Bulk actions.
const (
	BulkAssign       = "assign"
	BulkUpdateStatus = "update_status"
	BulkDelete       = "delete"
)

// Alerter sends immediate notifications. Delivery problems are absorbed by
// the implementation; callers never see them.
type Alerter interface {
	SendImmediateAlert(ctx context.Context, a Alert) *domain.Notification
}

// CompletionHook is told about missions that just reached completed.
type CompletionHook interface {
	MissionCompleted(ctx context.Context, m *domain.Mission)
}

// MissionSpec describes one mission of a new pair. Empty strings mean
// "not supplied".
type MissionSpec struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	AgentID string `json:"agent_id"`
	Notes   string `json:"notes"`
}

// AssignInput carries an assignment request.
type AssignInput struct {
	AgentID string
	Time    string // optional when the mission already has a time
	Notes   *string
	By      string
}

// MissionPatch carries a partial detail update; nil fields are untouched.
type MissionPatch struct {
	Date    *string
	Time    *string
	AgentID *string
	Notes   *string
	By      string
}

func (p MissionPatch) empty() bool {
	return p.Date == nil && p.Time == nil && p.AgentID == nil && p.Notes == nil
}

func (p MissionPatch) reschedules() bool {
	return p.Date != nil || p.Time != nil || p.AgentID != nil
}

// BulkParams are the action parameters of a bulk request.
type BulkParams struct {
	AgentID string               `json:"agent_id"`
	Time    string               `json:"time"`
	Status  domain.MissionStatus `json:"status"`
	Notes   *string              `json:"notes"`
	By      string               `json:"-"`
}

// BulkItemError is the per-mission failure of a bulk request.
type BulkItemError struct {
	MissionID string `json:"mission_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BulkResult partitions the requested missions into successes and errors.
type BulkResult struct {
	Successes []string        `json:"successes"`
	Errors    []BulkItemError `json:"errors"`
}

// MissionService coordinates mission writes and queries.
type MissionService struct {
	DB        *gorm.DB
	Conflicts *ConflictDetector
	Clock     clock.Clock
	Log       zerolog.Logger

	// Optional collaborators.
	Alerts Alerter
	Hook   CompletionHook

	locks agentLocks
}

// NewMissionService constructs a MissionService.
func NewMissionService(db *gorm.DB, conflicts *ConflictDetector, clk clock.Clock, log zerolog.Logger) *MissionService {
	return &MissionService{DB: db, Conflicts: conflicts, Clock: clk, Log: log}
}

func (s *MissionService) now() time.Time { return s.Clock.Now().UTC() }

// LockAgents acquires the calendar locks of the given agents and returns
// the release function. Empty ids are ignored.
func (s *MissionService) LockAgents(ids ...string) func() {
	return s.locks.lock(ids...)
}

// CreatePair inserts the entry and exit missions of lw inside tx. A spec
// with both agent and time starts assigned after a conflict check; any
// other spec starts unassigned. Callers hold LockAgents for both agents.
func (s *MissionService) CreatePair(ctx context.Context, tx *gorm.DB, lw *domain.LeaseWindow, entry, exit MissionSpec, by string) (*domain.Mission, *domain.Mission, error) {
	var fe fieldErrors
	validateSpec(&fe, "entry", entry)
	validateSpec(&fe, "exit", exit)
	if err := fe.err(); err != nil {
		return nil, nil, err
	}

	now := s.now()
	build := func(typ domain.MissionType, spec MissionSpec) (*domain.Mission, error) {
		m := &domain.Mission{
			LeaseWindowID: lw.ID,
			Type:          typ,
			ScheduledDate: spec.Date,
			Status:        domain.MissionUnassigned,
			Notes:         strings.TrimSpace(spec.Notes),
		}
		if spec.Time != "" {
			m.ScheduledTime = strptr(spec.Time)
		}
		if spec.AgentID != "" {
			m.AssignedAgentID = strptr(spec.AgentID)
			conflicts, err := s.Conflicts.detect(ctx, tx, spec.AgentID, spec.Date, spec.Time, "")
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				observability.ConflictsTotal.Inc()
				return nil, &ConflictError{Conflicts: conflicts}
			}
			m.Status = domain.MissionAssigned
			m.AssignedBy = by
			m.AssignedAt = &now
		}
		if err := repo.CreateMission(ctx, tx, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	em, err := build(domain.MissionEntry, entry)
	if err != nil {
		return nil, nil, err
	}
	xm, err := build(domain.MissionExit, exit)
	if err != nil {
		return nil, nil, err
	}
	return em, xm, nil
}

func validateSpec(fe *fieldErrors, prefix string, spec MissionSpec) {
	if _, err := slots.ParseDate(spec.Date, nil); err != nil {
		fe.add(prefix+".date", err.Error())
	}
	if spec.Time != "" {
		if _, err := slots.ParseClock(spec.Time); err != nil {
			fe.add(prefix+".time", err.Error())
		}
	}
	if spec.AgentID != "" && spec.Time == "" {
		fe.add(prefix+".time", "is required when agent_id is set")
	}
}

// Get returns a mission by id.
func (s *MissionService) Get(ctx context.Context, id string) (*domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("mission.id", id)))
	defer span.End()

	m, err := repo.GetMission(ctx, s.DB, id)
	return m, translate(err, ErrMissionNotFound)
}

// Assign gives the mission to agentID. The mission must be unassigned or
// assigned; only the new agent's calendar is checked for overlaps.
func (s *MissionService) Assign(ctx context.Context, id string, in AssignInput) (*domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Assign",
		trace.WithAttributes(
			attribute.String("mission.id", id),
			attribute.String("agent.id", in.AgentID),
		),
	)
	defer span.End()

	var fe fieldErrors
	in.AgentID = strings.TrimSpace(in.AgentID)
	if in.AgentID == "" {
		fe.add("agent_id", "is required")
	}
	if in.Time != "" {
		if _, err := slots.ParseClock(in.Time); err != nil {
			fe.add("time", err.Error())
		}
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	unlock := s.LockAgents(in.AgentID)
	defer unlock()

	var out *domain.Mission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.GetMission(ctx, tx, id)
		if err != nil {
			return translate(err, ErrMissionNotFound)
		}
		if !m.Status.Editable() {
			return &StateError{Entity: "mission", Current: string(m.Status), Attempted: "assign"}
		}

		at := in.Time
		if at == "" && m.HasTime() {
			at = *m.ScheduledTime
		}
		if at == "" {
			return invalid("time", "is required when the mission has no scheduled time")
		}
		if err := s.checkConflicts(ctx, tx, in.AgentID, m.ScheduledDate, at, m.ID); err != nil {
			return err
		}

		now := s.now()
		m.AssignedAgentID = strptr(in.AgentID)
		m.ScheduledTime = strptr(at)
		m.Status = domain.MissionAssigned
		m.AssignedBy = in.By
		m.AssignedAt = &now
		if in.Notes != nil {
			m.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := repo.SaveMission(ctx, tx, m); err != nil {
			return translate(err, ErrMissionNotFound)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, out)
	return out, nil
}

// UpdateDetails applies a partial edit. Date, time and agent may only change
// while the mission is unassigned or assigned; notes may change in any
// non-terminal status. A mission that ends up with both agent and time is
// promoted to assigned.
func (s *MissionService) UpdateDetails(ctx context.Context, id string, p MissionPatch) (*domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "UpdateDetails", trace.WithAttributes(attribute.String("mission.id", id)))
	defer span.End()

	if err := validatePatch(p); err != nil {
		return nil, err
	}

	// The lock must cover the agent whose calendar the edit lands on.
	agent := ""
	if p.AgentID != nil {
		agent = strings.TrimSpace(*p.AgentID)
	} else if p.reschedules() {
		cur, err := repo.GetMission(ctx, s.DB, id)
		if err != nil {
			return nil, translate(err, ErrMissionNotFound)
		}
		if cur.HasAgent() {
			agent = *cur.AssignedAgentID
		}
	}
	unlock := s.LockAgents(agent)
	defer unlock()

	var (
		out      *domain.Mission
		assigned bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.GetMission(ctx, tx, id)
		if err != nil {
			return translate(err, ErrMissionNotFound)
		}
		if m.Status.Terminal() {
			return &StateError{Entity: "mission", Current: string(m.Status), Attempted: "edit"}
		}
		if p.reschedules() && !m.Status.Editable() {
			return &StateError{Entity: "mission", Current: string(m.Status), Attempted: "reschedule"}
		}

		prevAgent := ""
		if m.HasAgent() {
			prevAgent = *m.AssignedAgentID
		}
		if p.Date != nil {
			m.ScheduledDate = *p.Date
		}
		if p.Time != nil {
			m.ScheduledTime = strptr(*p.Time)
		}
		if p.AgentID != nil {
			m.AssignedAgentID = strptr(strings.TrimSpace(*p.AgentID))
		}
		if p.Notes != nil {
			m.Notes = strings.TrimSpace(*p.Notes)
		}

		if p.reschedules() && m.HasAgent() {
			if !m.HasTime() {
				return invalid("time", "is required when agent_id is set")
			}
			if err := s.checkConflicts(ctx, tx, *m.AssignedAgentID, m.ScheduledDate, *m.ScheduledTime, m.ID); err != nil {
				return err
			}
		}

		now := s.now()
		if m.Status == domain.MissionUnassigned && m.HasAgent() && m.HasTime() {
			m.Status = domain.MissionAssigned
			m.AssignedBy = p.By
			m.AssignedAt = &now
			assigned = true
		} else if m.HasAgent() && *m.AssignedAgentID != prevAgent {
			m.AssignedBy = p.By
			m.AssignedAt = &now
			assigned = true
		}

		if err := repo.SaveMission(ctx, tx, m); err != nil {
			return translate(err, ErrMissionNotFound)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assigned {
		s.notifyAssigned(ctx, out)
	}
	return out, nil
}

func validatePatch(p MissionPatch) error {
	if p.empty() {
		return invalid("body", "at least one of date, time, assigned_agent_id, notes is required")
	}
	var fe fieldErrors
	if p.Date != nil {
		if _, err := slots.ParseDate(*p.Date, nil); err != nil {
			fe.add("date", err.Error())
		}
	}
	if p.Time != nil {
		if _, err := slots.ParseClock(*p.Time); err != nil {
			fe.add("time", err.Error())
		}
	}
	if p.AgentID != nil && strings.TrimSpace(*p.AgentID) == "" {
		fe.add("assigned_agent_id", "must not be empty")
	}
	return fe.err()
}

// UpdateStatus moves the mission along its state machine, stamping
// started_at / completed_at. Completion fires the completion hook after the
// write is committed.
func (s *MissionService) UpdateStatus(ctx context.Context, id string, to domain.MissionStatus, notes *string) (*domain.Mission, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("mission.id", id),
			attribute.String("mission.status", string(to)),
		),
	)
	defer span.End()

	if !to.Valid() {
		return nil, invalid("status", "must be one of unassigned, assigned, in_progress, completed, cancelled")
	}

	// Entering assigned occupies the calendar; hold the agent's lock.
	if to == domain.MissionAssigned {
		cur, err := repo.GetMission(ctx, s.DB, id)
		if err != nil {
			return nil, translate(err, ErrMissionNotFound)
		}
		if cur.HasAgent() {
			unlock := s.LockAgents(*cur.AssignedAgentID)
			defer unlock()
		}
	}

	var out *domain.Mission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.GetMission(ctx, tx, id)
		if err != nil {
			return translate(err, ErrMissionNotFound)
		}
		if !m.Status.CanTransitionTo(to) {
			return &StateError{Entity: "mission", Current: string(m.Status), Attempted: "transition to " + string(to)}
		}

		now := s.now()
		switch to {
		case domain.MissionAssigned:
			if !m.HasAgent() || !m.HasTime() {
				return invalid("status", "assigned requires an agent and a scheduled time")
			}
			if err := s.checkConflicts(ctx, tx, *m.AssignedAgentID, m.ScheduledDate, *m.ScheduledTime, m.ID); err != nil {
				return err
			}
			m.AssignedAt = &now
		case domain.MissionInProgress:
			m.StartedAt = &now
		case domain.MissionCompleted:
			m.CompletedAt = &now
		}
		m.Status = to
		if notes != nil {
			m.Notes = strings.TrimSpace(*notes)
		}
		if err := repo.SaveMission(ctx, tx, m); err != nil {
			return translate(err, ErrMissionNotFound)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Status == domain.MissionCompleted && s.Hook != nil {
		s.Hook.MissionCompleted(ctx, out)
	}
	return out, nil
}

// Delete soft-deletes a mission that has not started yet.
func (s *MissionService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("mission.id", id)))
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.GetMission(ctx, tx, id)
		if err != nil {
			return translate(err, ErrMissionNotFound)
		}
		if !m.Status.Deletable() {
			return &StateError{Entity: "mission", Current: string(m.Status), Attempted: "delete"}
		}
		return translate(repo.SoftDeleteMission(ctx, tx, m.ID, m.Version), ErrMissionNotFound)
	})
}

// BulkUpdate applies action to every id independently. One mission failing
// never affects the others; the returned error is only for a malformed
// request as a whole.
func (s *MissionService) BulkUpdate(ctx context.Context, ids []string, action string, params BulkParams) (*BulkResult, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "BulkUpdate",
		trace.WithAttributes(
			attribute.String("bulk.action", action),
			attribute.Int("bulk.size", len(ids)),
		),
	)
	defer span.End()

	var fe fieldErrors
	ids = dedupe(ids)
	switch {
	case len(ids) == 0:
		fe.add("mission_ids", "must not be empty")
	case len(ids) > MaxBulkSize:
		fe.add("mission_ids", "too many ids")
	}
	switch action {
	case BulkAssign:
		if strings.TrimSpace(params.AgentID) == "" {
			fe.add("params.agent_id", "is required for assign")
		}
	case BulkUpdateStatus:
		if !params.Status.Valid() {
			fe.add("params.status", "is required for update_status")
		}
	case BulkDelete:
	default:
		fe.add("action", "must be one of assign, update_status, delete")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	res := &BulkResult{Successes: []string{}, Errors: []BulkItemError{}}
	for _, id := range ids {
		var err error
		switch action {
		case BulkAssign:
			_, err = s.Assign(ctx, id, AssignInput{AgentID: params.AgentID, Time: params.Time, Notes: params.Notes, By: params.By})
		case BulkUpdateStatus:
			_, err = s.UpdateStatus(ctx, id, params.Status, params.Notes)
		case BulkDelete:
			err = s.Delete(ctx, id)
		}
		if err != nil {
			code := ErrorCode(err)
			if code == CodeInternal {
				s.Log.Error().Err(err).Str("mission_id", id).Str("action", action).Msg("bulk item failed")
			}
			res.Errors = append(res.Errors, BulkItemError{MissionID: id, Code: code, Message: err.Error()})
			continue
		}
		res.Successes = append(res.Successes, id)
	}
	return res, nil
}

// ListPage returns one page of missions matching f plus the total count.
func (s *MissionService) ListPage(ctx context.Context, f repo.MissionFilter, page, pageSize int) ([]domain.Mission, int64, error) {
	tr := otel.Tracer("services/MissionService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := validateMissionFilter(f); err != nil {
		return nil, 0, err
	}
	offset, limit := utils.PageWindow(page, pageSize)
	return repo.ListMissionsPage(ctx, s.DB, f, offset, limit)
}

// Stats returns count and newest updated_at of the missions matching f,
// used to derive list ETags.
func (s *MissionService) Stats(ctx context.Context, f repo.MissionFilter) (int64, *time.Time, error) {
	return repo.MissionsStats(ctx, s.DB, f)
}

func validateMissionFilter(f repo.MissionFilter) error {
	var fe fieldErrors
	if f.From != "" {
		if _, err := slots.ParseDate(f.From, nil); err != nil {
			fe.add("from", err.Error())
		}
	}
	if f.To != "" {
		if _, err := slots.ParseDate(f.To, nil); err != nil {
			fe.add("to", err.Error())
		}
	}
	if f.From != "" && f.To != "" && f.To < f.From {
		fe.add("to", "must not be before from")
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			fe.add("status", "unknown status "+string(st))
		}
	}
	if f.Type != "" && !f.Type.Valid() {
		fe.add("type", "must be entry or exit")
	}
	return fe.err()
}

// checkConflicts runs detection inside tx and converts hits into a
// ConflictError.
func (s *MissionService) checkConflicts(ctx context.Context, tx *gorm.DB, agentID, date, at, excludeID string) error {
	conflicts, err := s.Conflicts.detect(ctx, tx, agentID, date, at, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		observability.ConflictsTotal.Inc()
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// notifyAssigned tells the agent about a fresh assignment. Best effort.
func (s *MissionService) notifyAssigned(ctx context.Context, m *domain.Mission) {
	if s.Alerts == nil || m == nil || !m.HasAgent() {
		return
	}
	payload := map[string]any{
		"mission_id":      m.ID,
		"lease_window_id": m.LeaseWindowID,
		"mission_type":    m.Type,
		"scheduled_date":  m.ScheduledDate,
	}
	if m.HasTime() {
		payload["scheduled_time"] = *m.ScheduledTime
	}
	s.Alerts.SendImmediateAlert(ctx, Alert{
		RecipientID:   *m.AssignedAgentID,
		Type:          domain.NotifyMissionAssigned,
		LeaseWindowID: m.LeaseWindowID,
		MissionID:     m.ID,
		Payload:       payload,
	})
}

// agentLocks serializes calendar writes per agent within this process.
type agentLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock acquires the mutexes of ids in sorted order, so callers locking
// overlapping sets cannot deadlock.
func (l *agentLocks) lock(ids ...string) func() {
	keys := dedupe(ids)
	sort.Strings(keys)

	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		mu, ok := l.m[k]
		if !ok {
			mu = &sync.Mutex{}
			l.m[k] = mu
		}
		held = append(held, mu)
	}
	l.mu.Unlock()

	for _, mu := range held {
		mu.Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func strptr(s string) *string { return &s }
