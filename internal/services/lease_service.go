// Package services – LeaseService
//
// This file implements the lease-window orchestrator. A lease window moves
// assigned → in_progress → {completed | incident}; the moves are driven by
// ops users validating the checklists of the entry and exit missions, and
// by the overdue sweep. Each move is a conditional update on the current
// status, so two validators racing on the same window cannot both win.
//
// Side effects that talk to the outside world (alerts, the exit reminder)
// run after the owning transaction commits.
package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/clock"
	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/observability"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/search"
	"github.com/tbourn/go-mission-scheduler/internal/slots"
	"github.com/tbourn/go-mission-scheduler/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LeaseWindowInput is a create request.
type LeaseWindowInput struct {
	TenantName  string
	TenantEmail string
	TenantPhone string
	Address     string
	StartDate   string
	EndDate     string
	OwnerID     string
	Entry       MissionSpec
	Exit        MissionSpec
	CreatedBy   string
}

// LeaseWindowResult is a lease window with its mission pair.
type LeaseWindowResult struct {
	LeaseWindow *domain.LeaseWindow `json:"lease_window"`
	Entry       *domain.Mission     `json:"entry_mission"`
	Exit        *domain.Mission     `json:"exit_mission"`
}

// ChecklistInput is the field data submitted for a mission.
type ChecklistInput struct {
	Completed         bool
	KeysReturned      bool
	DamageCount       int
	UnresolvedDamages int
	Notes             string
	SubmittedBy       string
}

// ValidationOutcome reports what validating a checklist did.
type ValidationOutcome struct {
	LeaseWindow *domain.LeaseWindow `json:"lease_window"`
	Incidents   []domain.Incident   `json:"incidents"`
	Reminder    *ScheduleResult     `json:"reminder,omitempty"`
}

// DatesOutcome reports what a date change did.
type DatesOutcome struct {
	LeaseWindow *domain.LeaseWindow `json:"lease_window"`
	Cancelled   int64               `json:"cancelled_notifications"`
	Reminder    *ScheduleResult     `json:"reminder,omitempty"`
}

// SweepReport summarizes one incident sweep.
type SweepReport struct {
	Scanned        int      `json:"scanned"`
	Escalated      int      `json:"escalated"`
	LeaseWindowIDs []string `json:"lease_window_ids"`
}

// LeaseService orchestrates lease windows, their missions and checklists.
type LeaseService struct {
	DB            *gorm.DB
	Missions      *MissionService
	Notifications *NotificationService
	Incidents     *IncidentDetector
	Clock         clock.Clock
	Log           zerolog.Logger

	// OverdueGrace is how long after end_date an unfinished exit is
	// escalated by SweepIncidents.
	OverdueGrace time.Duration
}

// NewLeaseService wires a LeaseService and registers it as the missions'
// completion hook.
func NewLeaseService(db *gorm.DB, missions *MissionService, notifications *NotificationService, clk clock.Clock, log zerolog.Logger, overdueGrace time.Duration) *LeaseService {
	s := &LeaseService{
		DB:            db,
		Missions:      missions,
		Notifications: notifications,
		Incidents:     NewIncidentDetector(),
		Clock:         clk,
		Log:           log,
		OverdueGrace:  overdueGrace,
	}
	if missions != nil {
		missions.Hook = s
		if missions.Alerts == nil && notifications != nil {
			missions.Alerts = notifications
		}
	}
	return s
}

func (s *LeaseService) now() time.Time { return s.Clock.Now().UTC() }

// Create validates in and stores the lease window with its entry and exit
// missions in one transaction. The entry defaults to start_date and the
// exit to end_date.
func (s *LeaseService) Create(ctx context.Context, in LeaseWindowInput) (*LeaseWindowResult, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("owner.id", in.OwnerID)))
	defer span.End()

	in.TenantName = strings.TrimSpace(in.TenantName)
	in.TenantEmail = strings.TrimSpace(in.TenantEmail)
	in.TenantPhone = strings.TrimSpace(in.TenantPhone)
	in.Address = strings.TrimSpace(in.Address)
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	if in.Entry.Date == "" {
		in.Entry.Date = in.StartDate
	}
	if in.Exit.Date == "" {
		in.Exit.Date = in.EndDate
	}
	if err := validateLeaseInput(in); err != nil {
		return nil, err
	}

	lw := &domain.LeaseWindow{
		TenantName:  in.TenantName,
		TenantEmail: in.TenantEmail,
		TenantPhone: in.TenantPhone,
		Address:     in.Address,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      domain.LeaseAssigned,
		OwnerID:     in.OwnerID,
		SearchText:  search.Document(in.TenantName, in.TenantEmail, in.Address),
	}

	unlock := s.Missions.LockAgents(in.Entry.AgentID, in.Exit.AgentID)
	defer unlock()

	res := &LeaseWindowResult{LeaseWindow: lw}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateLeaseWindow(ctx, tx, lw); err != nil {
			return err
		}
		entry, exit, err := s.Missions.CreatePair(ctx, tx, lw, in.Entry, in.Exit, in.CreatedBy)
		if err != nil {
			return err
		}
		if err := repo.SetLeaseMissions(ctx, tx, lw.ID, entry.ID, exit.ID); err != nil {
			return err
		}
		lw.EntryMissionID, lw.ExitMissionID = entry.ID, exit.ID
		res.Entry, res.Exit = entry, exit
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Missions.notifyAssigned(ctx, res.Entry)
	s.Missions.notifyAssigned(ctx, res.Exit)
	s.Log.Info().Str("lease_window_id", lw.ID).Str("owner_id", lw.OwnerID).Msg("lease window created")
	return res, nil
}

func validateLeaseInput(in LeaseWindowInput) error {
	var fe fieldErrors
	if in.TenantName == "" {
		fe.add("tenant_name", "is required")
	}
	if in.TenantEmail != "" {
		if _, err := mail.ParseAddress(in.TenantEmail); err != nil {
			fe.add("tenant_email", "is not a valid email address")
		}
	}
	if in.Address == "" {
		fe.add("address", "is required")
	}
	if in.OwnerID == "" {
		fe.add("owner_id", "is required")
	}
	validateDates(&fe, in.StartDate, in.EndDate)
	validateSpec(&fe, "entry", in.Entry)
	validateSpec(&fe, "exit", in.Exit)
	return fe.err()
}

func validateDates(fe *fieldErrors, start, end string) {
	_, serr := slots.ParseDate(start, nil)
	if serr != nil {
		fe.add("start_date", serr.Error())
	}
	_, eerr := slots.ParseDate(end, nil)
	if eerr != nil {
		fe.add("end_date", eerr.Error())
	}
	if serr == nil && eerr == nil && end < start {
		fe.add("end_date", "must not be before start_date")
	}
}

// Get returns a lease window by id.
func (s *LeaseService) Get(ctx context.Context, id string) (*domain.LeaseWindow, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("lease_window.id", id)))
	defer span.End()

	lw, err := repo.GetLeaseWindow(ctx, s.DB, id)
	return lw, translate(err, ErrLeaseWindowNotFound)
}

// Details returns a lease window, its missions and its incident reports.
func (s *LeaseService) Details(ctx context.Context, id string) (*LeaseWindowResult, []domain.IncidentReport, error) {
	lw, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	res := &LeaseWindowResult{LeaseWindow: lw}
	if lw.EntryMissionID != "" {
		if res.Entry, err = repo.GetMission(ctx, s.DB, lw.EntryMissionID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, nil, err
		}
	}
	if lw.ExitMissionID != "" {
		if res.Exit, err = repo.GetMission(ctx, s.DB, lw.ExitMissionID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, nil, err
		}
	}
	reps, err := repo.ListIncidentReports(ctx, s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	return res, reps, nil
}

// ListPage returns one page of lease windows matching f plus the total.
func (s *LeaseService) ListPage(ctx context.Context, f repo.LeaseWindowFilter, page, pageSize int) ([]domain.LeaseWindow, int64, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	var fe fieldErrors
	if f.Status != "" && !f.Status.Valid() {
		fe.add("status", "unknown status "+string(f.Status))
	}
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
	if err := fe.err(); err != nil {
		return nil, 0, err
	}
	offset, limit := utils.PageWindow(page, pageSize)
	return repo.ListLeaseWindowsPage(ctx, s.DB, f, offset, limit)
}

// Stats returns count and newest updated_at of lease windows matching f.
func (s *LeaseService) Stats(ctx context.Context, f repo.LeaseWindowFilter) (int64, *time.Time, error) {
	return repo.LeaseWindowsStats(ctx, s.DB, f)
}

// SubmitChecklist records the field data of a started or finished mission.
// A checklist that has already been validated cannot be replaced.
func (s *LeaseService) SubmitChecklist(ctx context.Context, missionID string, in ChecklistInput) (*domain.Checklist, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "SubmitChecklist", trace.WithAttributes(attribute.String("mission.id", missionID)))
	defer span.End()

	var fe fieldErrors
	if in.DamageCount < 0 {
		fe.add("damage_count", "must not be negative")
	}
	if in.UnresolvedDamages < 0 {
		fe.add("unresolved_damages", "must not be negative")
	}
	if in.UnresolvedDamages > in.DamageCount {
		fe.add("unresolved_damages", "must not exceed damage_count")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	m, err := repo.GetMission(ctx, s.DB, missionID)
	if err != nil {
		return nil, translate(err, ErrMissionNotFound)
	}
	if m.Status != domain.MissionInProgress && m.Status != domain.MissionCompleted {
		return nil, &StateError{Entity: "mission", Current: string(m.Status), Attempted: "submit checklist"}
	}

	c := &domain.Checklist{
		MissionID:         missionID,
		Completed:         in.Completed,
		KeysReturned:      in.KeysReturned,
		DamageCount:       in.DamageCount,
		UnresolvedDamages: in.UnresolvedDamages,
		Notes:             strings.TrimSpace(in.Notes),
		SubmittedBy:       in.SubmittedBy,
		SubmittedAt:       s.now(),
	}
	if err := repo.UpsertChecklist(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return nil, &StateError{Entity: "checklist", Current: "validated", Attempted: "resubmit"}
		}
		return nil, err
	}
	return repo.GetChecklistByMission(ctx, s.DB, missionID)
}

// ValidateChecklist is the ops checkpoint on a mission's checklist. For the
// entry mission it starts the tenancy and schedules the exit reminder; for
// the exit mission it runs the incident rules and closes the lease window
// as completed or incident, cancelling whatever is still pending.
func (s *LeaseService) ValidateChecklist(ctx context.Context, missionID, validator string) (*ValidationOutcome, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "ValidateChecklist",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.String("validator.id", validator),
		),
	)
	defer span.End()

	m, err := repo.GetMission(ctx, s.DB, missionID)
	if err != nil {
		return nil, translate(err, ErrMissionNotFound)
	}
	lw, err := repo.GetLeaseWindow(ctx, s.DB, m.LeaseWindowID)
	if err != nil {
		return nil, translate(err, ErrLeaseWindowNotFound)
	}
	c, err := repo.GetChecklistByMission(ctx, s.DB, missionID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, &StateError{Entity: "checklist", Current: "not submitted", Attempted: "validate"}
	case err != nil:
		return nil, err
	case c.Validated:
		return nil, &StateError{Entity: "checklist", Current: "validated", Attempted: "validate"}
	}

	if m.Type == domain.MissionEntry {
		return s.validateEntry(ctx, lw, m, validator)
	}
	return s.validateExit(ctx, lw, m, c, validator)
}

func (s *LeaseService) validateEntry(ctx context.Context, lw *domain.LeaseWindow, m *domain.Mission, validator string) (*ValidationOutcome, error) {
	if lw.Status != domain.LeaseAssigned {
		return nil, &StateError{Entity: "lease window", Current: string(lw.Status), Attempted: "validate entry checklist"}
	}
	if m.Status != domain.MissionCompleted {
		return nil, &StateError{Entity: "mission", Current: string(m.Status), Attempted: "validate entry checklist"}
	}

	now := s.now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkChecklistValidated(ctx, tx, m.ID, validator, now); err != nil {
			return err
		}
		return repo.TransitionLeaseWindow(ctx, tx, lw.ID, domain.LeaseAssigned, domain.LeaseInProgress, now)
	})
	if err != nil {
		return nil, translate(err, ErrLeaseWindowNotFound)
	}
	lw.Status = domain.LeaseInProgress

	out := &ValidationOutcome{LeaseWindow: lw, Incidents: []domain.Incident{}}
	if s.Notifications != nil {
		rem, err := s.Notifications.ScheduleExitReminder(ctx, lw, false)
		if err != nil {
			s.Log.Error().Err(err).Str("lease_window_id", lw.ID).Msg("schedule exit reminder")
		}
		out.Reminder = rem
	}
	s.Log.Info().Str("lease_window_id", lw.ID).Str("validator", validator).Msg("entry validated, lease in progress")
	return out, nil
}

func (s *LeaseService) validateExit(ctx context.Context, lw *domain.LeaseWindow, m *domain.Mission, c *domain.Checklist, validator string) (*ValidationOutcome, error) {
	if lw.Status != domain.LeaseInProgress {
		return nil, &StateError{Entity: "lease window", Current: string(lw.Status), Attempted: "validate exit checklist"}
	}
	if m.Status != domain.MissionCompleted {
		return nil, &StateError{Entity: "mission", Current: string(m.Status), Attempted: "validate exit checklist"}
	}

	now := s.now()
	incidents := s.Incidents.Evaluate(IncidentInput{Mission: m, Checklist: c, Now: now})
	to := domain.LeaseCompleted
	if len(incidents) > 0 {
		to = domain.LeaseIncident
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkChecklistValidated(ctx, tx, m.ID, validator, now); err != nil {
			return err
		}
		return s.closeLease(ctx, tx, lw, m.ID, to, incidents, now)
	})
	if err != nil {
		return nil, translate(err, ErrLeaseWindowNotFound)
	}

	if to == domain.LeaseIncident {
		s.raiseIncidentAlert(ctx, lw, incidents)
	}
	s.Log.Info().Str("lease_window_id", lw.ID).Str("status", string(to)).Int("incidents", len(incidents)).Msg("exit validated")
	return &ValidationOutcome{LeaseWindow: lw, Incidents: incidents}, nil
}

// closeLease moves lw from in_progress to to inside tx, persisting incident
// reports and cancelling pending notifications.
func (s *LeaseService) closeLease(ctx context.Context, tx *gorm.DB, lw *domain.LeaseWindow, missionID string, to domain.LeaseStatus, incidents []domain.Incident, now time.Time) error {
	if err := repo.TransitionLeaseWindow(ctx, tx, lw.ID, domain.LeaseInProgress, to, now); err != nil {
		return err
	}
	if err := repo.CreateIncidentReports(ctx, tx, reports(lw.ID, missionID, incidents)); err != nil {
		return err
	}
	if _, err := repo.CancelPendingNotifications(ctx, tx, lw.ID); err != nil {
		return err
	}
	lw.Status = to
	switch to {
	case domain.LeaseCompleted:
		lw.CompletedAt = &now
	case domain.LeaseIncident:
		lw.IncidentAt = &now
	}
	return nil
}

func (s *LeaseService) raiseIncidentAlert(ctx context.Context, lw *domain.LeaseWindow, incidents []domain.Incident) {
	for _, inc := range incidents {
		observability.IncidentsTotal.WithLabelValues(string(inc.Type), string(inc.Severity)).Inc()
	}
	if s.Notifications == nil {
		return
	}
	s.Notifications.SendImmediateAlert(ctx, Alert{
		RecipientID:   lw.OwnerID,
		Type:          domain.NotifyIncidentAlert,
		LeaseWindowID: lw.ID,
		MissionID:     lw.ExitMissionID,
		Payload: map[string]any{
			"lease_window_id": lw.ID,
			"address":         lw.Address,
			"incidents":       incidents,
		},
	})
}

// UpdateDates moves the tenancy dates of a lease window that has not been
// closed. All pending notifications of the window are cancelled; an
// in-progress window gets its exit reminder rescheduled against the new
// end date.
func (s *LeaseService) UpdateDates(ctx context.Context, id, start, end string) (*DatesOutcome, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "UpdateDates",
		trace.WithAttributes(
			attribute.String("lease_window.id", id),
			attribute.String("start_date", start),
			attribute.String("end_date", end),
		),
	)
	defer span.End()

	var fe fieldErrors
	validateDates(&fe, start, end)
	if err := fe.err(); err != nil {
		return nil, err
	}

	out := &DatesOutcome{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lw, err := repo.GetLeaseWindow(ctx, tx, id)
		if err != nil {
			return err
		}
		if lw.Status == domain.LeaseCompleted || lw.Status == domain.LeaseIncident {
			return &StateError{Entity: "lease window", Current: string(lw.Status), Attempted: "change dates"}
		}
		if err := repo.UpdateLeaseDates(ctx, tx, id, start, end); err != nil {
			return err
		}
		var cancelled int64
		if s.Notifications != nil {
			cancelled, err = s.Notifications.CancelAll(ctx, tx, id)
		} else {
			cancelled, err = repo.CancelPendingNotifications(ctx, tx, id)
		}
		if err != nil {
			return err
		}
		lw.StartDate, lw.EndDate = start, end
		out.LeaseWindow, out.Cancelled = lw, cancelled
		return nil
	})
	if err != nil {
		return nil, translate(err, ErrLeaseWindowNotFound)
	}

	if out.LeaseWindow.Status == domain.LeaseInProgress && s.Notifications != nil {
		rem, err := s.Notifications.ScheduleExitReminder(ctx, out.LeaseWindow, false)
		if err != nil {
			s.Log.Error().Err(err).Str("lease_window_id", id).Msg("reschedule exit reminder")
		}
		out.Reminder = rem
	}
	return out, nil
}

// MissionCompleted asks the lease owner to validate the checklist of a
// mission that just finished.
func (s *LeaseService) MissionCompleted(ctx context.Context, m *domain.Mission) {
	if s.Notifications == nil {
		return
	}
	lw, err := repo.GetLeaseWindow(ctx, s.DB, m.LeaseWindowID)
	if err != nil {
		s.Log.Error().Err(err).Str("mission_id", m.ID).Msg("completion hook: load lease window")
		return
	}
	s.Notifications.SendImmediateAlert(ctx, Alert{
		RecipientID:   lw.OwnerID,
		Type:          domain.NotifyChecklistValidation,
		LeaseWindowID: lw.ID,
		MissionID:     m.ID,
		Payload: map[string]any{
			"mission_id":      m.ID,
			"lease_window_id": lw.ID,
			"mission_type":    m.Type,
		},
	})
}

// SweepIncidents escalates in-progress lease windows whose end date is
// older than OverdueGrace and whose exit mission is not completed.
func (s *LeaseService) SweepIncidents(ctx context.Context) (*SweepReport, error) {
	tr := otel.Tracer("services/LeaseService")
	ctx, span := tr.Start(ctx, "SweepIncidents")
	defer span.End()
	defer observability.ObserveSweep("incidents", time.Now())

	loc := time.UTC
	batch := 100
	if s.Notifications != nil {
		loc = s.Notifications.Location
		batch = s.Notifications.batch()
	}
	now := s.now()
	cutoff := now.Add(-s.OverdueGrace).In(loc).Format(domain.DateLayout)

	candidates, err := repo.ListOverdueLeaseWindows(ctx, s.DB, cutoff, batch)
	if err != nil {
		return nil, err
	}
	rep := &SweepReport{Scanned: len(candidates), LeaseWindowIDs: []string{}}
	for i := range candidates {
		lw := &candidates[i]
		incidents := []domain.Incident{ExitOverdue(lw, now)}
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.closeLease(ctx, tx, lw, lw.ExitMissionID, domain.LeaseIncident, incidents, now)
		})
		if errors.Is(err, repo.ErrStale) {
			continue
		}
		if err != nil {
			return rep, err
		}
		s.raiseIncidentAlert(ctx, lw, incidents)
		rep.Escalated++
		rep.LeaseWindowIDs = append(rep.LeaseWindowIDs, lw.ID)
	}
	s.Log.Info().Int("scanned", rep.Scanned).Int("escalated", rep.Escalated).Msg("incident sweep")
	return rep, nil
}
