// Package domain defines the persistence models for lease windows, missions,
// checklists and incident reports. These types are mapped with GORM and form
// the core data layer of the scheduling backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Date and clock layouts used for scheduled_date / scheduled_time columns.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// MissionType distinguishes the two visits of a lease window.
type MissionType string

const (
	MissionEntry MissionType = "entry"
	MissionExit  MissionType = "exit"
)

// Valid reports whether t is a known mission type.
func (t MissionType) Valid() bool { return t == MissionEntry || t == MissionExit }

// LeaseWindow is a temporary-tenancy record. It owns exactly one entry and
// one exit mission and moves through LeaseStatus as checklists are validated.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Tenant*: tenant identity and contact details.
//   - StartDate / EndDate: inclusive tenancy dates (YYYY-MM-DD).
//   - Status: lifecycle state, see LeaseStatus.
//   - OwnerID: the ops user responsible for the lease window.
//   - EntryMissionID / ExitMissionID: the paired missions.
//   - SearchText: folded tenant/address text for free-text mission search.
type LeaseWindow struct {
	ID             string      `json:"id"               gorm:"type:char(36);primaryKey"`
	TenantName     string      `json:"tenant_name"      gorm:"type:varchar(255);not null"`
	TenantEmail    string      `json:"tenant_email,omitempty" gorm:"type:varchar(255)"`
	TenantPhone    string      `json:"tenant_phone,omitempty" gorm:"type:varchar(64)"`
	Address        string      `json:"address"          gorm:"type:text;not null"`
	StartDate      string      `json:"start_date"       gorm:"type:char(10);not null;index:idx_lease_dates,priority:1"`
	EndDate        string      `json:"end_date"         gorm:"type:char(10);not null;index:idx_lease_dates,priority:2"`
	Status         LeaseStatus `json:"status"           gorm:"type:varchar(16);not null;index;check:status IN ('assigned','in_progress','completed','incident')"`
	OwnerID        string      `json:"owner_id"         gorm:"type:varchar(64);not null;index"`
	EntryMissionID string      `json:"entry_mission_id" gorm:"type:char(36)"`
	ExitMissionID  string      `json:"exit_mission_id"  gorm:"type:char(36)"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	IncidentAt     *time.Time  `json:"incident_at,omitempty"`
	SearchText     string      `json:"-"                gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName returns the database table name for LeaseWindow.
func (LeaseWindow) TableName() string { return "lease_windows" }

// Mission is a scheduled physical visit (entry or exit) performed by an agent.
//
// An unassigned mission may carry a proposed ScheduledTime without an agent.
// Setting both promotes it to assigned, and every status from assigned on
// has an agent and a time. Version is
// bumped on every write and used for optimistic concurrency control.
// DeletedAt implements soft deletion: deleted missions are hidden from
// listings and conflict detection but kept for audit.
type Mission struct {
	ID              string         `json:"id"                gorm:"type:char(36);primaryKey"`
	LeaseWindowID   string         `json:"lease_window_id"   gorm:"type:char(36);not null;index"`
	Type            MissionType    `json:"type"              gorm:"type:varchar(8);not null;check:type IN ('entry','exit')"`
	ScheduledDate   string         `json:"scheduled_date"    gorm:"type:char(10);not null;index:idx_agent_day,priority:2"`
	ScheduledTime   *string        `json:"scheduled_time"    gorm:"type:char(5)"`
	Status          MissionStatus  `json:"status"            gorm:"type:varchar(16);not null;index;check:status IN ('unassigned','assigned','in_progress','completed','cancelled')"`
	AssignedAgentID *string        `json:"assigned_agent_id" gorm:"type:varchar(64);index:idx_agent_day,priority:1"`
	AssignedBy      string         `json:"assigned_by,omitempty" gorm:"type:varchar(64)"`
	AssignedAt      *time.Time     `json:"assigned_at,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Notes           string         `json:"notes"             gorm:"type:text"`
	Version         int            `json:"version"           gorm:"not null;default:1"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for Mission.
func (Mission) TableName() string { return "missions" }

// HasAgent reports whether an agent is set on the mission.
func (m *Mission) HasAgent() bool { return m.AssignedAgentID != nil && *m.AssignedAgentID != "" }

// HasTime reports whether a scheduled time is set on the mission.
func (m *Mission) HasTime() bool { return m.ScheduledTime != nil && *m.ScheduledTime != "" }

// Checklist is the inspection record filled in during a mission. A
// checklist is submitted by the field agent and later validated by an ops
// user; validation is what moves the lease window forward.
type Checklist struct {
	ID                string     `json:"id"                 gorm:"type:char(36);primaryKey"`
	MissionID         string     `json:"mission_id"         gorm:"type:char(36);not null;uniqueIndex"`
	Completed         bool       `json:"completed"          gorm:"not null;default:false"`
	KeysReturned      bool       `json:"keys_returned"      gorm:"not null;default:false"`
	DamageCount       int        `json:"damage_count"       gorm:"not null;default:0"`
	UnresolvedDamages int        `json:"unresolved_damages" gorm:"not null;default:0"`
	Notes             string     `json:"notes,omitempty"    gorm:"type:text"`
	SubmittedBy       string     `json:"submitted_by"       gorm:"type:varchar(64)"`
	SubmittedAt       time.Time  `json:"submitted_at"`
	Validated         bool       `json:"validated"          gorm:"not null;default:false"`
	ValidatedBy       string     `json:"validated_by,omitempty" gorm:"type:varchar(64)"`
	ValidatedAt       *time.Time `json:"validated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Checklist.
func (Checklist) TableName() string { return "checklists" }

// IncidentReport is the persisted form of a detected Incident, written when
// a lease window transitions to the incident state.
type IncidentReport struct {
	ID            string           `json:"id"              gorm:"type:char(36);primaryKey"`
	LeaseWindowID string           `json:"lease_window_id" gorm:"type:char(36);not null;index"`
	MissionID     string           `json:"mission_id"      gorm:"type:char(36)"`
	Type          IncidentType     `json:"type"            gorm:"type:varchar(32);not null"`
	Severity      IncidentSeverity `json:"severity"        gorm:"type:varchar(8);not null"`
	Message       string           `json:"message"         gorm:"type:text;not null"`
	DetectedAt    time.Time        `json:"detected_at"`
	CreatedAt     time.Time        `json:"created_at"`
}

// TableName returns the database table name for IncidentReport.
func (IncidentReport) TableName() string { return "incident_reports" }

// IncidentType enumerates the incident rules.
type IncidentType string

const (
	IncidentKeysNotReturned     IncidentType = "keys_not_returned"
	IncidentUnresolvedDamage    IncidentType = "unresolved_damage"
	IncidentChecklistIncomplete IncidentType = "checklist_incomplete"
	IncidentExitNotCompleted    IncidentType = "exit_not_completed"
	IncidentExitOverdue         IncidentType = "exit_overdue"
)

// IncidentSeverity grades an incident.
type IncidentSeverity string

const (
	SeverityLow    IncidentSeverity = "low"
	SeverityMedium IncidentSeverity = "medium"
	SeverityHigh   IncidentSeverity = "high"
)

// Incident is the ephemeral result of a detection rule.
type Incident struct {
	Type       IncidentType     `json:"type"`
	Severity   IncidentSeverity `json:"severity"`
	Message    string           `json:"message"`
	DetectedAt time.Time        `json:"detected_at"`
}
