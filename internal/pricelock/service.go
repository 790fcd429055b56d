package pricelock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/internal/pricing"
	dbpkg "github.com/southerncrossbullion/bullion-backend/pkg/db"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
	"github.com/southerncrossbullion/bullion-backend/pkg/outbox"
)

const activeLockConstraint = "ux_price_locks_session_product_active"

// HaltChecker gates lock creation on the current halt state.
type HaltChecker interface {
	IsHalted(ctx context.Context, symbol enums.MetalSymbol) (bool, error)
}

// Service manages the lifecycle of price locks.
type Service interface {
	LockPrices(ctx context.Context, input LockInput) (*LockResult, error)
	ActiveLocks(ctx context.Context, sessionID string) ([]models.PriceLock, error)
	ReleaseSession(ctx context.Context, sessionID string) (int64, error)
	MarkUsed(ctx context.Context, sessionID string, productIDs []uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// LockInput is the validated payload for creating a session's locks.
type LockInput struct {
	SessionID  string
	CustomerID *uuid.UUID
	Currency   enums.Currency
	ProductIDs []uuid.UUID
}

// LockResult carries the created locks plus the cohort expiry they share.
type LockResult struct {
	Locks     []models.PriceLock
	ExpiresAt time.Time
}

type service struct {
	db       *gorm.DB
	locks    *Repository
	products *pricing.ProductRepository
	config   *pricing.ConfigRepository
	calc     *pricing.Calculator
	halts    HaltChecker
	events   *outbox.Service
	window   time.Duration
	logg     *logger.Logger
}

// NewService validates dependencies and builds the price lock service.
func NewService(
	db *gorm.DB,
	calc *pricing.Calculator,
	halts HaltChecker,
	events *outbox.Service,
	window time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db is required")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "calculator is required")
	}
	if halts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "halt checker is required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service is required")
	}
	if window <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock window must be positive")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{
		db:       db,
		locks:    NewRepository(db),
		products: pricing.NewProductRepository(db),
		config:   pricing.NewConfigRepository(db),
		calc:     calc,
		halts:    halts,
		events:   events,
		window:   window,
		logg:     logg,
	}, nil
}

// LockPrices prices the requested products at current spot and binds the
// result to the session. The first lock of a session opens a cohort whose
// expiry every later lock joins; re-locking a product supersedes the old row
// without extending the window.
func (s *service) LockPrices(ctx context.Context, input LockInput) (*LockResult, error) {
	if input.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}
	if input.Currency == "" {
		input.Currency = enums.CurrencyUSD
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", string(input.Currency)))
	}

	ctx = s.logg.WithSessionID(ctx, input.SessionID)

	found, err := s.products.FindActiveByIDs(ctx, input.ProductIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	specs := make([]pricing.PricingSpec, 0, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		product, ok := found[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown or inactive product %s", id))
		}
		spec, err := pricing.Normalize(product)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if err := s.rejectHalted(ctx, specs); err != nil {
		return nil, err
	}

	settings, err := s.config.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	priced, err := s.calc.PriceProducts(ctx, specs, settings)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt, err := s.cohortExpiry(ctx, input.SessionID, now)
	if err != nil {
		return nil, err
	}

	result, err := s.createLocks(ctx, input, specs, priced, expiresAt)
	if err != nil && dbpkg.IsUniqueViolation(err, activeLockConstraint) {
		// Two tabs raced supersede-then-create for the same pair; the loser
		// retries once against the winner's now-active row.
		s.logg.Warn(ctx, "concurrent lock creation detected, retrying once")
		result, err = s.createLocks(ctx, input, specs, priced, expiresAt)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create price locks")
	}

	s.logg.Info(s.logg.WithField(ctx, "lock_count", len(result.Locks)), "price locks created")
	return result, nil
}

func (s *service) rejectHalted(ctx context.Context, specs []pricing.PricingSpec) error {
	checked := make(map[enums.MetalSymbol]bool, 4)
	for _, spec := range specs {
		if checked[spec.Symbol] {
			continue
		}
		checked[spec.Symbol] = true
		halted, err := s.halts.IsHalted(ctx, spec.Symbol)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check halt state")
		}
		if halted {
			return pkgerrors.New(pkgerrors.CodeMetalHalted, fmt.Sprintf("sales of %s are temporarily halted", spec.Symbol))
		}
	}
	return nil
}

// cohortExpiry anchors new locks to the session's earliest active expiry so a
// cart never holds locks with staggered windows.
func (s *service) cohortExpiry(ctx context.Context, sessionID string, now time.Time) (time.Time, error) {
	existing, err := s.locks.EarliestActiveExpiry(ctx, sessionID, now)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve lock cohort expiry")
	}
	if existing != nil {
		return *existing, nil
	}
	return now.Add(s.window), nil
}

func (s *service) createLocks(
	ctx context.Context,
	input LockInput,
	specs []pricing.PricingSpec,
	priced map[uuid.UUID]pricing.ProductPrice,
	expiresAt time.Time,
) (*LockResult, error) {
	created := make([]models.PriceLock, 0, len(specs))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.locks.WithTx(tx)
		for _, spec := range specs {
			if err := repo.SupersedeActive(ctx, input.SessionID, spec.ProductID); err != nil {
				return err
			}
			price := priced[spec.ProductID]
			lock := models.PriceLock{
				ID:             uuid.New(),
				SessionID:      input.SessionID,
				ProductID:      spec.ProductID,
				CustomerID:     input.CustomerID,
				MetalSymbol:    spec.Symbol,
				LockedPriceUSD: price.UnitPriceUSD,
				LockedPriceAUD: price.UnitPriceAUD,
				FXRate:         price.FXRate,
				FXDegraded:     price.FXDegraded,
				Currency:       input.Currency,
				Status:         enums.PriceLockStatusActive,
				ExpiresAt:      expiresAt,
			}
			if err := repo.Create(ctx, &lock); err != nil {
				return err
			}
			created = append(created, lock)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &LockResult{Locks: created, ExpiresAt: expiresAt}, nil
}

// ActiveLocks returns the session's usable locks. Expired-but-unswept rows
// never appear.
func (s *service) ActiveLocks(ctx context.Context, sessionID string) ([]models.PriceLock, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	locks, err := s.locks.FindActiveBySession(ctx, sessionID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active locks")
	}
	return locks, nil
}

// ReleaseSession expires all of the session's active locks immediately.
func (s *service) ReleaseSession(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	released, err := s.locks.ExpireSession(ctx, sessionID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release session locks")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"session_id": sessionID,
		"released":   released,
	}), "session locks released")
	return released, nil
}

// MarkUsed consumes locks after a successful payment capture and emits one
// consumption event per lock through the outbox.
func (s *service) MarkUsed(ctx context.Context, sessionID string, productIDs []uuid.UUID) (int64, error) {
	if sessionID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if len(productIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	now := time.Now().UTC()
	var used int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.locks.WithTx(tx)
		locks, err := repo.FindActiveBySession(ctx, sessionID, now)
		if err != nil {
			return err
		}
		eligible := make(map[uuid.UUID]models.PriceLock, len(locks))
		for _, lock := range locks {
			eligible[lock.ProductID] = lock
		}

		count, err := repo.MarkUsed(ctx, sessionID, productIDs, now)
		if err != nil {
			return err
		}
		used = count

		for _, id := range productIDs {
			lock, ok := eligible[id]
			if !ok {
				continue
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventPriceLockUsed,
				AggregateType: enums.AggregatePriceLock,
				AggregateID:   lock.ID,
				Data: map[string]any{
					"session_id":       sessionID,
					"product_id":       id.String(),
					"locked_price_usd": lock.LockedPriceUSD.String(),
					"currency":         string(lock.Currency),
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark locks used")
	}
	return used, nil
}

// SweepExpired flips stale active rows to expired.
func (s *service) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.locks.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sweep expired locks")
	}
	if swept > 0 {
		s.logg.Info(s.logg.WithField(ctx, "swept", swept), "expired price locks swept")
	}
	return swept, nil
}
