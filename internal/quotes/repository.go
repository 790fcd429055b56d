package quotes

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// SnapshotRepository persists and reads back point-in-time spot prices for
// rolling-window drop evaluation.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository builds a repository tied to the provided GORM DB.
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *SnapshotRepository) WithTx(tx *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: tx}
}

// Insert appends one snapshot. Snapshots are immutable once written.
func (r *SnapshotRepository) Insert(ctx context.Context, snapshot *models.MetalQuoteSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// OldestWithin returns the earliest snapshot captured at or after the given
// instant, or nil when the window holds no snapshot for the symbol.
func (r *SnapshotRepository) OldestWithin(ctx context.Context, symbol enums.MetalSymbol, since time.Time) (*models.MetalQuoteSnapshot, error) {
	var snapshot models.MetalQuoteSnapshot
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND captured_at >= ?", symbol, since).
		Order("captured_at ASC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Latest returns the most recent snapshot for the symbol, or nil when none exists.
func (r *SnapshotRepository) Latest(ctx context.Context, symbol enums.MetalSymbol) (*models.MetalQuoteSnapshot, error) {
	var snapshot models.MetalQuoteSnapshot
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("captured_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// PurgeOlderThan deletes snapshots captured before the cutoff and reports how
// many rows were removed.
func (r *SnapshotRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("captured_at < ?", cutoff).
		Delete(&models.MetalQuoteSnapshot{})
	return result.RowsAffected, result.Error
}
