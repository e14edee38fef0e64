// Package services – NotificationService
//
// This file implements the notification scheduler and processor:
//
//   - ScheduleExitReminder creates the single pending exit reminder of a
//     lease window, end_date minus the lead days at local midnight.
//   - SendImmediateAlert records an alert already claimed and delivers it
//     synchronously; failures are recorded, never returned.
//   - ProcessDue is the periodic sweep: it releases stale claims, then
//     claims due rows with a compare-and-swap and delivers them on a bounded
//     worker pool, each attempt under its own timeout.
//   - DetectOverdueMissions alerts ops users about missions whose start is
//     past the grace period, at most once per re-alert interval.
//   - CleanupOld purges sent rows past retention.
//
// Every sweep is safe to run concurrently with itself: the status column is
// only ever changed by conditional updates.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/clock"
	"github.com/tbourn/go-mission-scheduler/internal/config"
	"github.com/tbourn/go-mission-scheduler/internal/delivery"
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

// Schedule outcomes.
const (
	ScheduleCreated = "scheduled"
	ScheduleSkipped = "skipped"

	SkipPast      = "notify date already passed"
	SkipDuplicate = "pending reminder exists"
)

// Alert describes an immediate notification.
type Alert struct {
	RecipientID   string
	Type          domain.NotificationType
	LeaseWindowID string
	MissionID     string
	Payload       map[string]any
}

// ScheduleResult reports what ScheduleExitReminder did.
type ScheduleResult struct {
	Status       string               `json:"status"`
	Reason       string               `json:"reason,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

// ProcessReport summarizes one ProcessDue run.
type ProcessReport struct {
	Recovered int `json:"recovered"`
	Due       int `json:"due"`
	Sent      int `json:"sent"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// OverdueReport summarizes one DetectOverdueMissions run.
type OverdueReport struct {
	Checked      int `json:"checked"`
	Overdue      int `json:"overdue"`
	Alerts       int `json:"alerts"`
	Deduplicated int `json:"deduplicated"`
}

// RecipientDirectory lists the ops users eligible for operational alerts.
type RecipientDirectory interface {
	OpsRecipients(ctx context.Context) []string
}

// StaticRecipients is a fixed RecipientDirectory, typically OPS_USER_IDS.
type StaticRecipients []string

// OpsRecipients returns a copy of the configured ids.
func (r StaticRecipients) OpsRecipients(context.Context) []string {
	return append([]string(nil), r...)
}

// NotificationService schedules, delivers and maintains notifications.
type NotificationService struct {
	DB         *gorm.DB
	Channel    delivery.Channel
	Clock      clock.Clock
	Log        zerolog.Logger
	Location   *time.Location
	Recipients RecipientDirectory

	LeadDays        int
	OverdueGrace    time.Duration
	RealertInterval time.Duration
	Retention       time.Duration
	DeliveryTimeout time.Duration
	ClaimTTL        time.Duration
	WorkerLimit     int
	BatchSize       int
}

// NewNotificationService builds a NotificationService from configuration.
func NewNotificationService(db *gorm.DB, ch delivery.Channel, clk clock.Clock, log zerolog.Logger, loc *time.Location, cfg config.NotificationConfig) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		DB:              db,
		Channel:         ch,
		Clock:           clk,
		Log:             log,
		Location:        loc,
		Recipients:      StaticRecipients(cfg.OpsUserIDs),
		LeadDays:        cfg.ReminderLeadDays,
		OverdueGrace:    cfg.OverdueGrace,
		RealertInterval: cfg.RealertInterval,
		Retention:       cfg.Retention,
		DeliveryTimeout: cfg.DeliveryTimeout,
		ClaimTTL:        cfg.ClaimTTL,
		WorkerLimit:     cfg.WorkerLimit,
		BatchSize:       cfg.BatchSize,
	}
}

func (s *NotificationService) now() time.Time { return s.Clock.Now() }

// today returns local midnight of the current day.
func (s *NotificationService) today() time.Time {
	n := s.now().In(s.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.Location)
}

func (s *NotificationService) batch() int {
	if s.BatchSize <= 0 {
		return 100
	}
	return s.BatchSize
}

// ScheduleExitReminder arranges the exit reminder of lw. It skips, without
// writing, when the notify day has passed or a pending reminder exists and
// force is false; with force the existing one is cancelled first.
func (s *NotificationService) ScheduleExitReminder(ctx context.Context, lw *domain.LeaseWindow, force bool) (*ScheduleResult, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "ScheduleExitReminder",
		trace.WithAttributes(
			attribute.String("lease_window.id", lw.ID),
			attribute.Bool("force", force),
		),
	)
	defer span.End()

	end, err := slots.ParseDate(lw.EndDate, s.Location)
	if err != nil {
		return nil, invalid("end_date", err.Error())
	}
	notifyAt := end.AddDate(0, 0, -s.LeadDays)
	if notifyAt.Before(s.today()) {
		observability.NotificationsTotal.WithLabelValues(string(domain.NotifyExitReminder), "skipped").Inc()
		return &ScheduleResult{Status: ScheduleSkipped, Reason: SkipPast}, nil
	}

	payload, err := json.Marshal(map[string]any{
		"lease_window_id": lw.ID,
		"days_remaining":  s.LeadDays,
		"end_date":        lw.EndDate,
	})
	if err != nil {
		return nil, err
	}
	n := &domain.Notification{
		Type:          domain.NotifyExitReminder,
		RecipientID:   lw.OwnerID,
		ScheduledAt:   notifyAt.UTC(),
		Status:        domain.NotificationPending,
		LeaseWindowID: strptr(lw.ID),
		Payload:       datatypes.JSON(payload),
		CreatedAt:     s.now().UTC(),
	}
	if lw.ExitMissionID != "" {
		n.MissionID = strptr(lw.ExitMissionID)
	}

	res := &ScheduleResult{Status: ScheduleCreated, Notification: n}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := repo.FindPendingNotification(ctx, tx, domain.NotifyExitReminder, lw.ID)
		switch {
		case err == nil && !force:
			res = &ScheduleResult{Status: ScheduleSkipped, Reason: SkipDuplicate, Notification: existing}
			return nil
		case err == nil && force:
			if _, err := repo.CancelPendingNotifications(ctx, tx, lw.ID, domain.NotifyExitReminder); err != nil {
				return err
			}
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		return repo.CreateNotification(ctx, tx, n)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		res, err = &ScheduleResult{Status: ScheduleSkipped, Reason: SkipDuplicate}, nil
	}
	if err != nil {
		return nil, err
	}
	outcome := "scheduled"
	if res.Status == ScheduleSkipped {
		outcome = "skipped"
	}
	observability.NotificationsTotal.WithLabelValues(string(domain.NotifyExitReminder), outcome).Inc()
	return res, nil
}

// SendImmediateAlert records and delivers a. The record is created already
// claimed so no sweep picks it up concurrently; it ends sent or failed. It
// returns nil only when the record itself could not be written.
func (s *NotificationService) SendImmediateAlert(ctx context.Context, a Alert) *domain.Notification {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "SendImmediateAlert",
		trace.WithAttributes(
			attribute.String("notification.type", string(a.Type)),
			attribute.String("recipient.id", a.RecipientID),
		),
	)
	defer span.End()

	log := s.Log.With().Str("type", string(a.Type)).Str("recipient_id", a.RecipientID).Logger()

	var payload datatypes.JSON
	if a.Payload != nil {
		b, err := json.Marshal(a.Payload)
		if err != nil {
			log.Error().Err(err).Msg("alert payload not serializable")
			return nil
		}
		payload = datatypes.JSON(b)
	}

	now := s.now().UTC()
	n := &domain.Notification{
		Type:        a.Type,
		RecipientID: a.RecipientID,
		ScheduledAt: now,
		ClaimedAt:   &now,
		Status:      domain.NotificationSending,
		Payload:     payload,
		CreatedAt:   now,
	}
	if a.LeaseWindowID != "" {
		n.LeaseWindowID = strptr(a.LeaseWindowID)
	}
	if a.MissionID != "" {
		n.MissionID = strptr(a.MissionID)
	}
	if err := repo.CreateNotification(ctx, s.DB, n); err != nil {
		log.Error().Err(err).Msg("alert not recorded")
		return nil
	}

	if err := s.deliver(ctx, n); err != nil {
		n.Status = domain.NotificationFailed
		n.LastError = err.Error()
		n.Attempts++
		if merr := repo.MarkNotificationFailed(ctx, s.DB, n.ID, err.Error()); merr != nil {
			log.Error().Err(merr).Str("notification_id", n.ID).Msg("mark alert failed")
		}
		log.Warn().Err(err).Str("notification_id", n.ID).Msg("alert delivery failed")
		observability.NotificationsTotal.WithLabelValues(string(a.Type), "failed").Inc()
		return n
	}

	sentAt := s.now().UTC()
	n.Status = domain.NotificationSent
	n.SentAt = &sentAt
	if err := repo.MarkNotificationSent(ctx, s.DB, n.ID, sentAt); err != nil {
		log.Error().Err(err).Str("notification_id", n.ID).Msg("mark alert sent")
	}
	observability.NotificationsTotal.WithLabelValues(string(a.Type), "sent").Inc()
	return n
}

// ProcessDue delivers every pending notification whose scheduled time has
// come. Rows claimed by another processor are skipped; only failures to
// list work are returned as errors.
func (s *NotificationService) ProcessDue(ctx context.Context) (*ProcessReport, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "ProcessDue")
	defer span.End()
	defer observability.ObserveSweep("process_due", time.Now())

	rep := &ProcessReport{}
	recovered, err := s.recoverStaleClaims(ctx)
	if err != nil {
		return nil, err
	}
	rep.Recovered = recovered

	// Keyset pages; a row released for retry falls behind the cursor and
	// waits for the next run.
	now := s.now()
	var after *repo.DueCursor
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		due, err := repo.ListDueNotifications(ctx, s.DB, now, after, s.batch())
		if err != nil {
			return nil, err
		}
		if len(due) == 0 {
			break
		}
		rep.Due += len(due)
		s.processPage(ctx, due, rep)
		if len(due) < s.batch() {
			break
		}
		last := due[len(due)-1]
		after = &repo.DueCursor{At: last.ScheduledAt, ID: last.ID}
	}

	span.SetAttributes(
		attribute.Int("due", rep.Due),
		attribute.Int("sent", rep.Sent),
	)
	s.Log.Info().
		Int("recovered", rep.Recovered).
		Int("due", rep.Due).
		Int("sent", rep.Sent).
		Int("retried", rep.Retried).
		Int("failed", rep.Failed).
		Int("skipped", rep.Skipped).
		Int("errors", rep.Errors).
		Msg("processed due notifications")
	return rep, nil
}

// processPage delivers one page of due notifications on the bounded
// worker pool and tallies the outcomes into rep.
func (s *NotificationService) processPage(ctx context.Context, due []domain.Notification, rep *ProcessReport) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if s.WorkerLimit > 0 {
		g.SetLimit(s.WorkerLimit)
	}
	for i := range due {
		n := due[i]
		g.Go(func() error {
			outcome := s.processOne(ctx, &n)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case "sent":
				rep.Sent++
			case "retried":
				rep.Retried++
			case "failed":
				rep.Failed++
			case "skipped":
				rep.Skipped++
			default:
				rep.Errors++
			}
			return nil
		})
	}
	_ = g.Wait()
}

// processOne claims and delivers n, returning the outcome label.
func (s *NotificationService) processOne(ctx context.Context, n *domain.Notification) string {
	log := s.Log.With().Str("notification_id", n.ID).Str("type", string(n.Type)).Logger()

	claimed, err := repo.ClaimNotification(ctx, s.DB, n.ID, s.now())
	if err != nil {
		log.Error().Err(err).Msg("claim notification")
		return "error"
	}
	if !claimed {
		return "skipped"
	}

	derr := s.deliver(ctx, n)
	var outcome string
	switch {
	case derr == nil:
		err, outcome = repo.MarkNotificationSent(ctx, s.DB, n.ID, s.now()), "sent"
	case delivery.IsPermanent(derr):
		err, outcome = repo.MarkNotificationFailed(ctx, s.DB, n.ID, derr.Error()), "failed"
		log.Warn().Err(derr).Msg("notification failed permanently")
	default:
		err, outcome = repo.ReleaseNotification(ctx, s.DB, n.ID, derr.Error()), "retried"
		log.Info().Err(derr).Int("attempts", n.Attempts+1).Msg("notification delivery will be retried")
	}
	if err != nil {
		log.Error().Err(err).Str("outcome", outcome).Msg("record delivery outcome")
		return "error"
	}
	observability.NotificationsTotal.WithLabelValues(string(n.Type), outcome).Inc()
	return outcome
}

// recoverStaleClaims returns sending rows whose claim outlived ClaimTTL to
// pending. A row that cannot go back because a newer pending row of the
// same kind exists is marked failed instead.
func (s *NotificationService) recoverStaleClaims(ctx context.Context) (int, error) {
	if s.ClaimTTL <= 0 {
		return 0, nil
	}
	stale, err := repo.ListStaleClaims(ctx, s.DB, s.now().Add(-s.ClaimTTL), s.batch())
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, n := range stale {
		err := repo.ReleaseNotification(ctx, s.DB, n.ID, "claim expired")
		if repo.IsDuplicate(err) {
			err = repo.MarkNotificationFailed(ctx, s.DB, n.ID, "claim expired; superseded by a newer pending notification")
		}
		switch {
		case err == nil:
			recovered++
		case errors.Is(err, repo.ErrStale):
			// finished by its owner in the meantime
		default:
			s.Log.Error().Err(err).Str("notification_id", n.ID).Msg("release stale claim")
		}
	}
	return recovered, nil
}

// deliver sends n through the channel under DeliveryTimeout. A missed
// deadline is a transient failure.
func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification) error {
	if s.Channel == nil {
		return delivery.Permanent(errors.New("no delivery channel configured"))
	}
	if s.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.DeliveryTimeout)
		defer cancel()
	}
	msg := delivery.Message{
		ID:          n.ID,
		Type:        string(n.Type),
		RecipientID: n.RecipientID,
		Payload:     json.RawMessage(n.Payload),
		CreatedAt:   n.CreatedAt,
	}
	if n.LeaseWindowID != nil {
		msg.LeaseWindowID = *n.LeaseWindowID
	}
	if n.MissionID != nil {
		msg.MissionID = *n.MissionID
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return s.Channel.Send(ctx, msg)
}

// DetectOverdueMissions alerts the lease owner and the ops users about
// assigned missions whose start is more than OverdueGrace in the past.
// A recipient already alerted for a mission within RealertInterval is
// skipped.
func (s *NotificationService) DetectOverdueMissions(ctx context.Context) (*OverdueReport, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "DetectOverdueMissions")
	defer span.End()
	defer observability.ObserveSweep("overdue_missions", time.Now())

	now := s.now()
	upTo := s.today().Format(domain.DateLayout)
	rep := &OverdueReport{}
	owners := map[string]string{}
	var after *repo.MissionCursor
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		page, err := repo.ListAssignedMissionsUpTo(ctx, s.DB, upTo, after, s.batch())
		if err != nil {
			return nil, err
		}
		rep.Checked += len(page)
		for i := range page {
			if err := s.alertOverdue(ctx, &page[i], now, owners, rep); err != nil {
				return rep, err
			}
		}
		if len(page) < s.batch() {
			break
		}
		after = repo.CursorAfter(&page[len(page)-1])
	}
	s.Log.Info().Int("checked", rep.Checked).Int("overdue", rep.Overdue).Int("alerts", rep.Alerts).Int("deduplicated", rep.Deduplicated).Msg("overdue mission sweep")
	return rep, nil
}

// alertOverdue sends mission_overdue alerts for m when it is past the grace
// period, skipping recipients alerted within RealertInterval.
func (s *NotificationService) alertOverdue(ctx context.Context, m *domain.Mission, now time.Time, owners map[string]string, rep *OverdueReport) error {
	start, err := slots.At(m.ScheduledDate, *m.ScheduledTime, s.Location)
	if err != nil {
		s.Log.Warn().Err(err).Str("mission_id", m.ID).Msg("skipping mission with malformed schedule")
		return nil
	}
	late := now.Sub(start)
	if late <= s.OverdueGrace {
		return nil
	}
	rep.Overdue++

	owner, ok := owners[m.LeaseWindowID]
	if !ok {
		lw, err := repo.GetLeaseWindow(ctx, s.DB, m.LeaseWindowID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if lw != nil {
			owner = lw.OwnerID
		}
		owners[m.LeaseWindowID] = owner
	}

	var recipients []string
	if s.Recipients != nil {
		recipients = s.Recipients.OpsRecipients(ctx)
	}
	for _, r := range dedupe(append([]string{owner}, recipients...)) {
		recent, err := repo.HasRecentNotification(ctx, s.DB, domain.NotifyMissionOverdue, m.ID, r, now.Add(-s.RealertInterval))
		if err != nil {
			return err
		}
		if recent {
			rep.Deduplicated++
			observability.NotificationsTotal.WithLabelValues(string(domain.NotifyMissionOverdue), "deduplicated").Inc()
			continue
		}
		payload := map[string]any{
			"mission_id":      m.ID,
			"lease_window_id": m.LeaseWindowID,
			"scheduled_date":  m.ScheduledDate,
			"scheduled_time":  *m.ScheduledTime,
			"overdue_minutes": int(late / time.Minute),
		}
		if m.HasAgent() {
			payload["agent_id"] = *m.AssignedAgentID
		}
		if s.SendImmediateAlert(ctx, Alert{
			RecipientID:   r,
			Type:          domain.NotifyMissionOverdue,
			LeaseWindowID: m.LeaseWindowID,
			MissionID:     m.ID,
			Payload:       payload,
		}) != nil {
			rep.Alerts++
		}
	}
	return nil
}

// CleanupOld deletes sent notifications older than Retention and returns
// how many were removed.
func (s *NotificationService) CleanupOld(ctx context.Context) (int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "CleanupOld")
	defer span.End()
	defer observability.ObserveSweep("cleanup", time.Now())

	n, err := repo.DeleteSentBefore(ctx, s.DB, s.now().Add(-s.Retention))
	if err != nil {
		return 0, err
	}
	s.Log.Info().Int64("deleted", n).Msg("purged sent notifications")
	return n, nil
}

// CancelAll cancels every pending notification of a lease window. Pass the
// caller's transaction as tx so later reads in it observe the change; nil
// uses the service handle.
func (s *NotificationService) CancelAll(ctx context.Context, tx *gorm.DB, leaseWindowID string) (int64, error) {
	if tx == nil {
		tx = s.DB
	}
	n, err := repo.CancelPendingNotifications(ctx, tx, leaseWindowID)
	if err == nil && n > 0 {
		observability.NotificationsTotal.WithLabelValues("all", "cancelled").Add(float64(n))
	}
	return n, err
}

// Get returns a notification by id.
func (s *NotificationService) Get(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := repo.GetNotification(ctx, s.DB, id)
	return n, translate(err, ErrNotificationNotFound)
}

// ListPage returns one page of notifications matching f plus the total.
func (s *NotificationService) ListPage(ctx context.Context, f repo.NotificationFilter, page, pageSize int) ([]domain.Notification, int64, error) {
	tr := otel.Tracer("services/NotificationService")
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
	if f.Type != "" && !f.Type.Valid() {
		fe.add("type", "unknown type "+string(f.Type))
	}
	if err := fe.err(); err != nil {
		return nil, 0, err
	}
	offset, limit := utils.PageWindow(page, pageSize)
	return repo.ListNotificationsPage(ctx, s.DB, f, offset, limit)
}
