// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// LeaseWindow model.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a caller's transaction. Conditional writes return ErrStale when
// the row no longer matches the state they were conditioned on.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

// LeaseWindowFilter narrows lease window listings. Zero values are ignored.
// From/To select windows overlapping the inclusive [From, To] date range.
type LeaseWindowFilter struct {
	Status  domain.LeaseStatus
	OwnerID string
	From    string
	To      string
}

// CreateLeaseWindow inserts lw, assigning a UUID when ID is empty.
func CreateLeaseWindow(ctx context.Context, db *gorm.DB, lw *domain.LeaseWindow) error {
	if lw.ID == "" {
		lw.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lw.CreatedAt.IsZero() {
		lw.CreatedAt = now
	}
	lw.UpdatedAt = now
	return db.WithContext(ctx).Create(lw).Error
}

// GetLeaseWindow fetches a lease window by ID or returns ErrNotFound.
func GetLeaseWindow(ctx context.Context, db *gorm.DB, id string) (*domain.LeaseWindow, error) {
	var lw domain.LeaseWindow
	if err := db.WithContext(ctx).Where("id = ?", id).First(&lw).Error; err != nil {
		return nil, err
	}
	return &lw, nil
}

func applyLeaseFilter(q *gorm.DB, f LeaseWindowFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.From != "" {
		q = q.Where("end_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("start_date <= ?", f.To)
	}
	return q
}

// ListLeaseWindowsPage returns one page of lease windows matching f, ordered
// by start date, plus the total number of matches.
func ListLeaseWindowsPage(ctx context.Context, db *gorm.DB, f LeaseWindowFilter, offset, limit int) ([]domain.LeaseWindow, int64, error) {
	var total int64
	if err := applyLeaseFilter(db.WithContext(ctx).Model(&domain.LeaseWindow{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.LeaseWindow
	err := applyLeaseFilter(db.WithContext(ctx), f).
		Order("start_date asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// SetLeaseMissions records the entry and exit mission IDs of a lease window.
func SetLeaseMissions(ctx context.Context, db *gorm.DB, id, entryID, exitID string) error {
	res := db.WithContext(ctx).
		Model(&domain.LeaseWindow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"entry_mission_id": entryID,
			"exit_mission_id":  exitID,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionLeaseWindow moves a lease window from one status to another.
// The update only applies while the row is still in from; otherwise it
// returns ErrStale. Entering completed or incident stamps the matching
// timestamp with at.
func TransitionLeaseWindow(ctx context.Context, db *gorm.DB, id string, from, to domain.LeaseStatus, at time.Time) error {
	fields := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	switch to {
	case domain.LeaseCompleted:
		fields["completed_at"] = at
	case domain.LeaseIncident:
		fields["incident_at"] = at
	}
	res := db.WithContext(ctx).
		Model(&domain.LeaseWindow{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// UpdateLeaseDates rewrites the tenancy dates of a lease window.
func UpdateLeaseDates(ctx context.Context, db *gorm.DB, id, start, end string) error {
	res := db.WithContext(ctx).
		Model(&domain.LeaseWindow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"start_date": start,
			"end_date":   end,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOverdueLeaseWindows returns in-progress lease windows whose end date
// is strictly before cutoffDate and whose exit mission is not completed,
// oldest first, at most limit rows.
func ListOverdueLeaseWindows(ctx context.Context, db *gorm.DB, cutoffDate string, limit int) ([]domain.LeaseWindow, error) {
	var out []domain.LeaseWindow
	err := db.WithContext(ctx).
		Model(&domain.LeaseWindow{}).
		Joins("LEFT JOIN missions m ON m.id = lease_windows.exit_mission_id AND m.deleted_at IS NULL").
		Where("lease_windows.status = ? AND lease_windows.end_date < ?", domain.LeaseInProgress, cutoffDate).
		Where("(m.id IS NULL OR m.status <> ?)", domain.MissionCompleted).
		Select("lease_windows.*").
		Order("lease_windows.end_date asc, lease_windows.id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
