// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains small aggregate queries used for
// conditional responses (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

// MissionsStats returns the number of missions matching f and the greatest
// UpdatedAt among them. When nothing matches, the count is 0 and
// maxUpdatedAt is nil.
func MissionsStats(ctx context.Context, db *gorm.DB, f MissionFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = applyMissionFilter(db.WithContext(ctx).Model(&domain.Mission{}), f).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	err = applyMissionFilter(db.WithContext(ctx).Model(&domain.Mission{}), f).
		Select("missions.updated_at").
		Order("missions.updated_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// LeaseWindowsStats is the LeaseWindow counterpart of MissionsStats.
func LeaseWindowsStats(ctx context.Context, db *gorm.DB, f LeaseWindowFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := applyLeaseFilter(db.WithContext(ctx).Model(&domain.LeaseWindow{}), f)
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
