// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
//
// Delivery state moves through conditional updates only:
//
//	pending --ClaimNotification--> sending --MarkNotificationSent-----> sent
//	                                       --ReleaseNotification------> pending
//	                                       --MarkNotificationFailed---> failed
//	pending --CancelPendingNotifications--> cancelled
//
// Each transition is conditioned on the current status, so two processors
// racing for the same row cannot both win.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

// NotificationFilter narrows notification listings. Zero values are ignored.
type NotificationFilter struct {
	LeaseWindowID string
	MissionID     string
	RecipientID   string
	Status        domain.NotificationStatus
	Type          domain.NotificationType
}

// CreateNotification inserts n, assigning a UUID when ID is empty. A second
// pending row for the same (type, lease window) yields ErrDuplicate.
func CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetNotification fetches a notification by ID or returns ErrNotFound.
func GetNotification(ctx context.Context, db *gorm.DB, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// FindPendingNotification returns the pending notification of type typ for
// a lease window, or ErrNotFound.
func FindPendingNotification(ctx context.Context, db *gorm.DB, typ domain.NotificationType, leaseWindowID string) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).
		Where("type = ? AND lease_window_id = ? AND status = ?", typ, leaseWindowID, domain.NotificationPending).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CancelPendingNotifications cancels the pending notifications of a lease
// window, optionally restricted to types. Rows in any other status are left
// untouched. It returns the number of cancelled rows.
func CancelPendingNotifications(ctx context.Context, db *gorm.DB, leaseWindowID string, types ...domain.NotificationType) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("lease_window_id = ? AND status = ?", leaseWindowID, domain.NotificationPending)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	res := q.Updates(map[string]any{
		"status":     domain.NotificationCancelled,
		"updated_at": time.Now().UTC(),
	})
	return res.RowsAffected, res.Error
}

// DueCursor is the keyset position of the last notification of a page
// ordered by (scheduled_at, id).
type DueCursor struct {
	At time.Time
	ID string
}

// ListDueNotifications returns pending notifications scheduled at or before
// now, earliest first, at most limit rows, starting strictly after the given
// cursor (nil for the first page).
func ListDueNotifications(ctx context.Context, db *gorm.DB, now time.Time, after *DueCursor, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	q := db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", domain.NotificationPending, now.UTC())
	if after != nil {
		at := after.At.UTC()
		q = q.Where("(scheduled_at > ? OR (scheduled_at = ? AND id > ?))", at, at, after.ID)
	}
	err := q.Order("scheduled_at asc, id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimNotification atomically flips a pending notification to sending.
// It reports false, without error, when another processor claimed it first
// or the row is no longer pending.
func ClaimNotification(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	at := now.UTC()
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND status = ?", id, domain.NotificationPending).
		Updates(map[string]any{
			"status":     domain.NotificationSending,
			"claimed_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func finishClaim(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND status = ?", id, domain.NotificationSending).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// MarkNotificationSent completes a claimed notification.
func MarkNotificationSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return finishClaim(ctx, db, id, map[string]any{
		"status":     domain.NotificationSent,
		"sent_at":    at.UTC(),
		"last_error": "",
	})
}

// ReleaseNotification returns a claimed notification to pending after a
// transient failure, recording the attempt.
func ReleaseNotification(ctx context.Context, db *gorm.DB, id, reason string) error {
	return finishClaim(ctx, db, id, map[string]any{
		"status":     domain.NotificationPending,
		"claimed_at": nil,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
	})
}

// MarkNotificationFailed records a permanent delivery failure.
func MarkNotificationFailed(ctx context.Context, db *gorm.DB, id, reason string) error {
	return finishClaim(ctx, db, id, map[string]any{
		"status":     domain.NotificationFailed,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
	})
}

// ListStaleClaims returns notifications stuck in sending whose claim is
// older than cutoff, at most limit rows.
func ListStaleClaims(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("status = ? AND claimed_at < ?", domain.NotificationSending, cutoff.UTC()).
		Order("claimed_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteSentBefore purges sent notifications delivered before cutoff and
// returns the number of deleted rows.
func DeleteSentBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("status = ? AND sent_at < ?", domain.NotificationSent, cutoff.UTC()).
		Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}

// HasRecentNotification reports whether a non-cancelled notification of typ
// for (missionID, recipientID) was created at or after since.
func HasRecentNotification(ctx context.Context, db *gorm.DB, typ domain.NotificationType, missionID, recipientID string, since time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("type = ? AND mission_id = ? AND recipient_id = ?", typ, missionID, recipientID).
		Where("status <> ? AND created_at >= ?", domain.NotificationCancelled, since.UTC()).
		Count(&n).Error
	return n > 0, err
}

func applyNotificationFilter(q *gorm.DB, f NotificationFilter) *gorm.DB {
	if f.LeaseWindowID != "" {
		q = q.Where("lease_window_id = ?", f.LeaseWindowID)
	}
	if f.MissionID != "" {
		q = q.Where("mission_id = ?", f.MissionID)
	}
	if f.RecipientID != "" {
		q = q.Where("recipient_id = ?", f.RecipientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	return q
}

// ListNotificationsPage returns one page of notifications matching f, most
// recently scheduled first, plus the total number of matches.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, f NotificationFilter, offset, limit int) ([]domain.Notification, int64, error) {
	var total int64
	if err := applyNotificationFilter(db.WithContext(ctx).Model(&domain.Notification{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Notification
	err := applyNotificationFilter(db.WithContext(ctx), f).
		Order("scheduled_at desc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}
