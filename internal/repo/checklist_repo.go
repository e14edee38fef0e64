// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for checklists
// and incident reports, the records the validation step reads and writes.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

// GetChecklistByMission returns the checklist submitted for missionID or
// ErrNotFound.
func GetChecklistByMission(ctx context.Context, db *gorm.DB, missionID string) (*domain.Checklist, error) {
	var c domain.Checklist
	if err := db.WithContext(ctx).Where("mission_id = ?", missionID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertChecklist stores the field data of c, replacing any unvalidated
// checklist already recorded for the same mission. A validated checklist is
// never overwritten: the upsert then matches no row and ErrStale is returned.
func UpsertChecklist(ctx context.Context, db *gorm.DB, c *domain.Checklist) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed", "keys_returned", "damage_count", "unresolved_damages",
			"notes", "submitted_by", "submitted_at", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "checklists", Name: "validated"}, Value: false},
		}},
	}).Create(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// MarkChecklistValidated flags the checklist of missionID as validated.
// It returns ErrStale when the checklist is missing or already validated.
func MarkChecklistValidated(ctx context.Context, db *gorm.DB, missionID, by string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Checklist{}).
		Where("mission_id = ? AND validated = ?", missionID, false).
		Updates(map[string]any{
			"validated":    true,
			"validated_by": by,
			"validated_at": at,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// CreateIncidentReports inserts reports in one statement, assigning IDs.
func CreateIncidentReports(ctx context.Context, db *gorm.DB, reports []domain.IncidentReport) error {
	if len(reports) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range reports {
		if reports[i].ID == "" {
			reports[i].ID = uuid.NewString()
		}
		reports[i].CreatedAt = now
	}
	return db.WithContext(ctx).Create(&reports).Error
}

// ListIncidentReports returns the reports of a lease window, oldest first.
func ListIncidentReports(ctx context.Context, db *gorm.DB, leaseWindowID string) ([]domain.IncidentReport, error) {
	var out []domain.IncidentReport
	err := db.WithContext(ctx).
		Where("lease_window_id = ?", leaseWindowID).
		Order("detected_at asc, id asc").
		Find(&out).Error
	return out, err
}
