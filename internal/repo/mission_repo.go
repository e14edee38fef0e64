// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Mission
// model.
//
// Error semantics:
//   - Missing (or soft-deleted) missions return ErrNotFound.
//   - Writes conditioned on the version column return ErrStale when another
//     writer got there first.
//   - Other DB errors are propagated raw.
//
// Soft-deleted missions are invisible to every query here: GORM adds
// "deleted_at IS NULL" through the gorm.DeletedAt field.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/search"
)

// MissionFilter narrows mission listings. Zero values are ignored. From/To
// bound scheduled_date inclusively; Query is free text matched against the
// lease window tenant/address and the mission notes.
type MissionFilter struct {
	From          string
	To            string
	Statuses      []domain.MissionStatus
	Type          domain.MissionType
	AgentID       string
	LeaseWindowID string
	Query         string
}

// CreateMission inserts m, assigning a UUID when ID is empty and starting
// the version counter at 1.
func CreateMission(ctx context.Context, db *gorm.DB, m *domain.Mission) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return db.WithContext(ctx).Create(m).Error
}

// GetMission fetches a mission by ID or returns ErrNotFound.
func GetMission(ctx context.Context, db *gorm.DB, id string) (*domain.Mission, error) {
	var m domain.Mission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func applyMissionFilter(q *gorm.DB, f MissionFilter) *gorm.DB {
	if f.From != "" {
		q = q.Where("missions.scheduled_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("missions.scheduled_date <= ?", f.To)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("missions.status IN ?", f.Statuses)
	}
	if f.Type != "" {
		q = q.Where("missions.type = ?", f.Type)
	}
	if f.AgentID != "" {
		q = q.Where("missions.assigned_agent_id = ?", f.AgentID)
	}
	if f.LeaseWindowID != "" {
		q = q.Where("missions.lease_window_id = ?", f.LeaseWindowID)
	}
	if terms := search.Terms(f.Query); len(terms) > 0 {
		q = q.Joins("JOIN lease_windows lw ON lw.id = missions.lease_window_id")
		for _, term := range terms {
			p := search.LikePattern(term)
			q = q.Where(`(lw.search_text LIKE ? ESCAPE '\' OR LOWER(missions.notes) LIKE ? ESCAPE '\')`, p, p)
		}
	}
	return q
}

// ListMissionsPage returns one page of missions matching f, ordered by
// scheduled date and time, plus the total number of matches.
func ListMissionsPage(ctx context.Context, db *gorm.DB, f MissionFilter, offset, limit int) ([]domain.Mission, int64, error) {
	var total int64
	if err := applyMissionFilter(db.WithContext(ctx).Model(&domain.Mission{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Mission
	err := applyMissionFilter(db.WithContext(ctx).Model(&domain.Mission{}), f).
		Select("missions.*").
		Order("missions.scheduled_date asc, missions.scheduled_time asc, missions.id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// ListAgentMissionsOn returns the timed, non-cancelled missions of agentID
// on date, excluding excludeID when non-empty. These are the windows a new
// assignment for that agent must not overlap.
func ListAgentMissionsOn(ctx context.Context, db *gorm.DB, agentID, date, excludeID string) ([]domain.Mission, error) {
	q := db.WithContext(ctx).
		Where("assigned_agent_id = ? AND scheduled_date = ?", agentID, date).
		Where("status <> ? AND scheduled_time IS NOT NULL", domain.MissionCancelled)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var out []domain.Mission
	err := q.Order("scheduled_time asc").Find(&out).Error
	return out, err
}

// ListTimedMissionsOn returns every timed, non-cancelled mission on date
// across all agents.
func ListTimedMissionsOn(ctx context.Context, db *gorm.DB, date string) ([]domain.Mission, error) {
	var out []domain.Mission
	err := db.WithContext(ctx).
		Where("scheduled_date = ? AND status <> ? AND scheduled_time IS NOT NULL", date, domain.MissionCancelled).
		Order("scheduled_time asc").
		Find(&out).Error
	return out, err
}

// SaveMission writes the mutable columns of m, conditioned on m.Version.
// On success the stored version is bumped and m.Version updated to match;
// when the row changed underneath it returns ErrStale.
func SaveMission(ctx context.Context, db *gorm.DB, m *domain.Mission) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Mission{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]any{
			"scheduled_date":    m.ScheduledDate,
			"scheduled_time":    m.ScheduledTime,
			"status":            m.Status,
			"assigned_agent_id": m.AssignedAgentID,
			"assigned_by":       m.AssignedBy,
			"assigned_at":       m.AssignedAt,
			"started_at":        m.StartedAt,
			"completed_at":      m.CompletedAt,
			"notes":             m.Notes,
			"version":           m.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	m.Version++
	m.UpdatedAt = now
	return nil
}

// SoftDeleteMission marks the mission deleted, conditioned on version.
func SoftDeleteMission(ctx context.Context, db *gorm.DB, id string, version int) error {
	res := db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&domain.Mission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// MissionCursor is the keyset position of the last mission of a page
// ordered by (scheduled_date, scheduled_time, id).
type MissionCursor struct {
	Date string
	Time string
	ID   string
}

// CursorAfter returns the keyset position of m.
func CursorAfter(m *domain.Mission) *MissionCursor {
	c := &MissionCursor{Date: m.ScheduledDate, ID: m.ID}
	if m.ScheduledTime != nil {
		c.Time = *m.ScheduledTime
	}
	return c
}

// ListAssignedMissionsUpTo returns assigned, timed missions scheduled on or
// before date, oldest first, at most limit rows, starting strictly after
// the given cursor (nil for the first page). Callers compare the exact
// scheduled instant against their own grace period.
func ListAssignedMissionsUpTo(ctx context.Context, db *gorm.DB, date string, after *MissionCursor, limit int) ([]domain.Mission, error) {
	var out []domain.Mission
	q := db.WithContext(ctx).
		Where("status = ? AND scheduled_date <= ? AND scheduled_time IS NOT NULL", domain.MissionAssigned, date)
	if after != nil {
		q = q.Where("(scheduled_date > ? OR (scheduled_date = ? AND (scheduled_time > ? OR (scheduled_time = ? AND id > ?))))",
			after.Date, after.Date, after.Time, after.Time, after.ID)
	}
	err := q.Order("scheduled_date asc, scheduled_time asc, id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
