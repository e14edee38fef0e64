package services

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/clock"
	"github.com/tbourn/go-mission-scheduler/internal/config"
	"github.com/tbourn/go-mission-scheduler/internal/delivery"
	"github.com/tbourn/go-mission-scheduler/internal/slots"
)

// Services is the wired service graph shared by the HTTP server and the
// CLI sweeps.
type Services struct {
	Conflicts     *ConflictDetector
	Missions      *MissionService
	Notifications *NotificationService
	Leases        *LeaseService
	Jobs          *Jobs
}

// GridFromConfig builds the slot grid from the scheduling settings.
func GridFromConfig(sc config.SchedulingConfig) slots.Grid {
	return slots.Grid{
		Start:    sc.BusinessStart,
		End:      sc.BusinessEnd,
		Step:     sc.SlotStep,
		Duration: sc.MissionDuration,
	}
}

// New wires every service over db, delivering through ch.
func New(db *gorm.DB, ch delivery.Channel, clk clock.Clock, log zerolog.Logger, cfg config.Config) *Services {
	loc := cfg.Scheduling.Location
	if loc == nil {
		loc = time.UTC
	}
	conflicts := NewConflictDetector(db, GridFromConfig(cfg.Scheduling), cfg.Scheduling.SlotCapacity)
	missions := NewMissionService(db, conflicts, clk, log.With().Str("component", "missions").Logger())
	notifications := NewNotificationService(db, ch, clk, log.With().Str("component", "notifications").Logger(), loc, cfg.Notifications)
	leases := NewLeaseService(db, missions, notifications, clk, log.With().Str("component", "leases").Logger(), cfg.Notifications.IncidentSweepWait)
	return &Services{
		Conflicts:     conflicts,
		Missions:      missions,
		Notifications: notifications,
		Leases:        leases,
		Jobs:          &Jobs{DB: db, Notifications: notifications, Leases: leases, Log: log.With().Str("component", "jobs").Logger()},
	}
}
