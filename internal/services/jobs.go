// Package services – Jobs
//
// Jobs bundles the periodic sweeps behind one entry point for cron-style
// triggers (the sweep command and the /jobs endpoints).
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/repo"
)

// Job names accepted by Run.
const (
	JobProcessDue = "notifications"
	JobOverdue    = "overdue"
	JobIncidents  = "incidents"
	JobCleanup    = "cleanup"
)

// AllJobs is the default sweep order.
var AllJobs = []string{JobProcessDue, JobOverdue, JobIncidents, JobCleanup}

// JobResult is the outcome of one job.
type JobResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Summary  any           `json:"summary,omitempty"`
	Err      error         `json:"-"`
}

// Jobs runs the periodic sweeps.
type Jobs struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Leases        *LeaseService
	Log           zerolog.Logger
}

// CleanupReport summarizes the cleanup job.
type CleanupReport struct {
	Notifications int64 `json:"notifications_deleted"`
	Idempotency   int64 `json:"idempotency_purged"`
}

// Cleanup purges old sent notifications and expired idempotency records.
func (j *Jobs) Cleanup(ctx context.Context) (*CleanupReport, error) {
	n, err := j.Notifications.CleanupOld(ctx)
	if err != nil {
		return nil, err
	}
	k, err := repo.PurgeExpiredIdempotency(ctx, j.DB, j.Notifications.now())
	if err != nil {
		return nil, err
	}
	return &CleanupReport{Notifications: n, Idempotency: k}, nil
}

// Run executes the named jobs in order; an empty list runs AllJobs. A job
// failing does not stop the following ones.
func (j *Jobs) Run(ctx context.Context, names ...string) ([]JobResult, error) {
	if len(names) == 0 {
		names = AllJobs
	}
	for _, n := range names {
		switch n {
		case JobProcessDue, JobOverdue, JobIncidents, JobCleanup:
		default:
			return nil, invalid("only", fmt.Sprintf("unknown job %q", n))
		}
	}

	out := make([]JobResult, 0, len(names))
	for _, n := range names {
		start := time.Now()
		var (
			summary any
			err     error
		)
		switch n {
		case JobProcessDue:
			summary, err = j.Notifications.ProcessDue(ctx)
		case JobOverdue:
			summary, err = j.Notifications.DetectOverdueMissions(ctx)
		case JobIncidents:
			summary, err = j.Leases.SweepIncidents(ctx)
		case JobCleanup:
			summary, err = j.Cleanup(ctx)
		}
		if err != nil {
			j.Log.Error().Err(err).Str("job", n).Msg("job failed")
		}
		out = append(out, JobResult{Name: n, Duration: time.Since(start), Summary: summary, Err: err})
	}
	return out, nil
}
