// Package handlers exposes the REST endpoints for missions, lease windows,
// notifications and maintenance jobs. Handlers are transport-thin: they
// decode input, call the services and translate results and errors into
// HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/services"
)

//
// Service contracts (context-aware)
//

// MissionService covers mission reads and writes.
type MissionService interface {
	Get(ctx context.Context, id string) (*domain.Mission, error)
	Assign(ctx context.Context, id string, in services.AssignInput) (*domain.Mission, error)
	UpdateDetails(ctx context.Context, id string, p services.MissionPatch) (*domain.Mission, error)
	UpdateStatus(ctx context.Context, id string, to domain.MissionStatus, notes *string) (*domain.Mission, error)
	Delete(ctx context.Context, id string) error
	BulkUpdate(ctx context.Context, ids []string, action string, params services.BulkParams) (*services.BulkResult, error)
	ListPage(ctx context.Context, f repo.MissionFilter, page, pageSize int) ([]domain.Mission, int64, error)
	Stats(ctx context.Context, f repo.MissionFilter) (int64, *time.Time, error)
}

// LeaseService covers lease windows and checklists.
type LeaseService interface {
	Create(ctx context.Context, in services.LeaseWindowInput) (*services.LeaseWindowResult, error)
	Details(ctx context.Context, id string) (*services.LeaseWindowResult, []domain.IncidentReport, error)
	ListPage(ctx context.Context, f repo.LeaseWindowFilter, page, pageSize int) ([]domain.LeaseWindow, int64, error)
	Stats(ctx context.Context, f repo.LeaseWindowFilter) (int64, *time.Time, error)
	UpdateDates(ctx context.Context, id, start, end string) (*services.DatesOutcome, error)
	SubmitChecklist(ctx context.Context, missionID string, in services.ChecklistInput) (*domain.Checklist, error)
	ValidateChecklist(ctx context.Context, missionID, validator string) (*services.ValidationOutcome, error)
}

// NotificationService covers notification reads.
type NotificationService interface {
	Get(ctx context.Context, id string) (*domain.Notification, error)
	ListPage(ctx context.Context, f repo.NotificationFilter, page, pageSize int) ([]domain.Notification, int64, error)
}

// ConflictService answers calendar questions.
type ConflictService interface {
	DetectConflicts(ctx context.Context, agentID, date, clock, excludeID string) ([]services.Conflict, error)
	AvailableSlots(ctx context.Context, date, agentID string) ([]services.SlotAvailability, error)
}

// JobRunner runs maintenance sweeps.
type JobRunner interface {
	Run(ctx context.Context, names ...string) ([]services.JobResult, error)
}

// IdempotencyStore records the resource created for an Idempotency-Key.
type IdempotencyStore interface {
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	missions      MissionService
	leases        LeaseService
	notifications NotificationService
	conflicts     ConflictService
	jobs          JobRunner
	idem          IdempotencyStore
}

// New binds Handlers to the given services. idem may be nil, which disables
// recording of idempotent results.
func New(missions MissionService, leases LeaseService, notifications NotificationService, conflicts ConflictService, jobs JobRunner, idem IdempotencyStore) *Handlers {
	return &Handlers{
		missions:      missions,
		leases:        leases,
		notifications: notifications,
		conflicts:     conflicts,
		jobs:          jobs,
		idem:          idem,
	}
}
