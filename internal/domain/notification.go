package domain

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType enumerates the kinds of notifications the scheduler
// produces. The type selects the template used by the delivery channel.
type NotificationType string

const (
	NotifyExitReminder        NotificationType = "exit_reminder"
	NotifyChecklistValidation NotificationType = "checklist_validation"
	NotifyIncidentAlert       NotificationType = "incident_alert"
	NotifyMissionAssigned     NotificationType = "mission_assigned"
	NotifyMissionOverdue      NotificationType = "mission_overdue"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyExitReminder, NotifyChecklistValidation, NotifyIncidentAlert, NotifyMissionAssigned, NotifyMissionOverdue:
		return true
	}
	return false
}

// NotificationStatus is the delivery state of a notification.
//
// Sending is the in-flight claim: a processor flips pending → sending with a
// conditional update before attempting delivery, so concurrent processors
// never deliver the same row twice.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSending   NotificationStatus = "sending"
	NotificationSent      NotificationStatus = "sent"
	NotificationCancelled NotificationStatus = "cancelled"
	NotificationFailed    NotificationStatus = "failed"
)

// Valid reports whether s is a known notification status.
func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationPending, NotificationSending, NotificationSent, NotificationCancelled, NotificationFailed:
		return true
	}
	return false
}

// Notification is a message to a recipient, either scheduled for the future
// (pending) or delivered immediately (alerts).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Type / RecipientID: what to send and to whom.
//   - ScheduledAt: earliest delivery time; the due sweep picks rows with
//     scheduled_at <= now.
//   - SentAt / ClaimedAt: delivery and in-flight claim timestamps.
//   - Status: see NotificationStatus.
//   - LeaseWindowID / MissionID: optional owning entities.
//   - Payload: opaque structured data for the delivery channel.
//   - Attempts / LastError: transient failure bookkeeping.
type Notification struct {
	ID            string             `json:"id"                  gorm:"type:char(36);primaryKey"`
	Type          NotificationType   `json:"type"                gorm:"type:varchar(32);not null;index:idx_notif_type_lease,priority:1"`
	RecipientID   string             `json:"recipient_id"        gorm:"type:varchar(64);not null;index"`
	ScheduledAt   time.Time          `json:"scheduled_at"        gorm:"not null;index:idx_notif_due,priority:2"`
	SentAt        *time.Time         `json:"sent_at,omitempty"   gorm:"index"`
	ClaimedAt     *time.Time         `json:"claimed_at,omitempty"`
	Status        NotificationStatus `json:"status"              gorm:"type:varchar(16);not null;index:idx_notif_due,priority:1;check:status IN ('pending','sending','sent','cancelled','failed')"`
	LeaseWindowID *string            `json:"lease_window_id,omitempty" gorm:"type:char(36);index:idx_notif_type_lease,priority:2"`
	MissionID     *string            `json:"mission_id,omitempty"      gorm:"type:char(36);index"`
	Payload       datatypes.JSON     `json:"payload,omitempty"`
	Attempts      int                `json:"attempts"            gorm:"not null;default:0"`
	LastError     string             `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt     time.Time          `json:"created_at"          gorm:"index"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// PendingNotificationIndex is the partial unique index backing the
// one-pending-per-(type, lease window) rule.
const PendingNotificationIndex = "ux_notifications_pending_type_lease"
