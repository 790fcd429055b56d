package pricelock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// Repository persists price locks. Expiry is always evaluated lazily against
// expires_at in the query; rows the sweep has not flipped yet are invisible
// to every read path here.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindActiveBySession returns the session's usable locks at the given instant.
func (r *Repository) FindActiveBySession(ctx context.Context, sessionID string, now time.Time) ([]models.PriceLock, error) {
	var locks []models.PriceLock
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ? AND expires_at > ?", sessionID, enums.PriceLockStatusActive, now).
		Order("created_at ASC").
		Find(&locks).Error
	return locks, err
}

// EarliestActiveExpiry returns the expiry anchoring the session's lock
// cohort, or nil when the session holds no usable lock.
func (r *Repository) EarliestActiveExpiry(ctx context.Context, sessionID string, now time.Time) (*time.Time, error) {
	var lock models.PriceLock
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ? AND expires_at > ?", sessionID, enums.PriceLockStatusActive, now).
		Order("expires_at ASC").
		First(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	expiry := lock.ExpiresAt
	return &expiry, nil
}

// SupersedeActive flips any currently-active lock for the pair to expired.
// The conditional update plus the partial unique index give CAS semantics
// under concurrent re-locks from the same session.
func (r *Repository) SupersedeActive(ctx context.Context, sessionID string, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PriceLock{}).
		Where("session_id = ? AND product_id = ? AND status = ?", sessionID, productID, enums.PriceLockStatusActive).
		Update("status", enums.PriceLockStatusExpired).Error
}

// Create inserts a new lock row.
func (r *Repository) Create(ctx context.Context, lock *models.PriceLock) error {
	return r.db.WithContext(ctx).Create(lock).Error
}

// ExpireSession flips all of the session's active locks to expired and
// reports how many were released.
func (r *Repository) ExpireSession(ctx context.Context, sessionID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PriceLock{}).
		Where("session_id = ? AND status = ?", sessionID, enums.PriceLockStatusActive).
		Update("status", enums.PriceLockStatusExpired)
	return result.RowsAffected, result.Error
}

// MarkUsed consumes the session's usable locks for the given products. Only
// active, unexpired rows transition; the returned count lets the caller
// detect locks that expired between capture and settlement.
func (r *Repository) MarkUsed(ctx context.Context, sessionID string, productIDs []uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PriceLock{}).
		Where("session_id = ? AND product_id IN ? AND status = ? AND expires_at > ?",
			sessionID, productIDs, enums.PriceLockStatusActive, now).
		Updates(map[string]any{
			"status":  enums.PriceLockStatusUsed,
			"used_at": now,
		})
	return result.RowsAffected, result.Error
}

// SweepExpired flips stale active rows to expired. Storage hygiene only:
// reads never depend on it.
func (r *Repository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PriceLock{}).
		Where("status = ? AND expires_at <= ?", enums.PriceLockStatusActive, now).
		Update("status", enums.PriceLockStatusExpired)
	return result.RowsAffected, result.Error
}
