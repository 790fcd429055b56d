package halt

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// Repository persists halt rules, per-symbol halt state and the audit trail.
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

// GetState returns the state row for a symbol, or nil when none exists.
func (r *Repository) GetState(ctx context.Context, symbol enums.MetalSymbol) (*models.HaltState, error) {
	var state models.HaltState
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ListStates returns every state row, ALL scope included.
func (r *Repository) ListStates(ctx context.Context) ([]models.HaltState, error) {
	var states []models.HaltState
	err := r.db.WithContext(ctx).Order("symbol ASC").Find(&states).Error
	return states, err
}

// CreateState inserts a fresh, not-halted state row.
func (r *Repository) CreateState(ctx context.Context, state *models.HaltState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

// UpdateState applies the transition columns to one state row.
func (r *Repository) UpdateState(ctx context.Context, stateID any, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.HaltState{}).
		Where("id = ?", stateID).
		Updates(updates).Error
}

// ListEnabledRules returns the auto-halt rules the monitor evaluates.
func (r *Repository) ListEnabledRules(ctx context.Context) ([]models.HaltRule, error) {
	var rules []models.HaltRule
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("symbol ASC").Find(&rules).Error
	return rules, err
}

// AppendEvent records one real halt transition in the audit trail.
func (r *Repository) AppendEvent(ctx context.Context, event *models.HaltEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns the audit trail for one symbol, newest first.
func (r *Repository) ListEvents(ctx context.Context, symbol enums.MetalSymbol, limit int) ([]models.HaltEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.HaltEvent
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
