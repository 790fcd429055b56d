package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

var oneHundred = decimal.NewFromInt(100)

// HaltMonitorJobParams configure the rolling-window drop monitor.
type HaltMonitorJobParams struct {
	Logger    *logger.Logger
	Provider  quotes.Provider
	Snapshots snapshotStore
	Rules     ruleLister
	Halts     haltController
	Retention time.Duration
}

type snapshotStore interface {
	Insert(ctx context.Context, snapshot *models.MetalQuoteSnapshot) error
	OldestWithin(ctx context.Context, symbol enums.MetalSymbol, since time.Time) (*models.MetalQuoteSnapshot, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ruleLister interface {
	ListEnabledRules(ctx context.Context) ([]models.HaltRule, error)
}

type haltController interface {
	IsHalted(ctx context.Context, symbol enums.MetalSymbol) (bool, error)
	Halt(ctx context.Context, symbol enums.MetalSymbol, actor, reason string) (*models.HaltState, error)
}

// NewHaltMonitorJob builds the cron job that snapshots spot prices and
// auto-halts metals whose price dropped too far inside the rolling window.
func NewHaltMonitorJob(params HaltMonitorJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("quote provider required")
	}
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if params.Rules == nil {
		return nil, fmt.Errorf("rule lister required")
	}
	if params.Halts == nil {
		return nil, fmt.Errorf("halt controller required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &haltMonitorJob{
		logg:      params.Logger,
		provider:  params.Provider,
		snapshots: params.Snapshots,
		rules:     params.Rules,
		halts:     params.Halts,
		retention: retention,
		now:       time.Now,
	}, nil
}

type haltMonitorJob struct {
	logg      *logger.Logger
	provider  quotes.Provider
	snapshots snapshotStore
	rules     ruleLister
	halts     haltController
	retention time.Duration
	now       func() time.Time
}

func (j *haltMonitorJob) Name() string { return "halt-monitor" }

// Run is idempotent per tick: an already-halted symbol is skipped, so a
// re-invocation after a crash never double-halts or double-notifies.
func (j *haltMonitorJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	spot, err := j.provider.SpotPrices(ctx, enums.AllMetalSymbols())
	if err != nil {
		return fmt.Errorf("fetch spot prices: %w", err)
	}

	var errs []error
	for _, symbol := range enums.AllMetalSymbols() {
		quote, ok := spot[symbol]
		if !ok {
			continue
		}
		if err := j.snapshots.Insert(ctx, &models.MetalQuoteSnapshot{
			ID:            uuid.New(),
			Symbol:        symbol,
			PriceUSDPerOz: quote.PriceUSDPerOz,
			CapturedAt:    now,
		}); err != nil {
			errs = append(errs, fmt.Errorf("snapshot %s: %w", symbol, err))
		}
	}

	rules, err := j.rules.ListEnabledRules(ctx)
	if err != nil {
		return multierr.Append(multierr.Combine(errs...), fmt.Errorf("list halt rules: %w", err))
	}

	for _, rule := range rules {
		if err := j.evaluate(ctx, rule, spot, now); err != nil {
			errs = append(errs, err)
		}
	}

	// snapshot retention is hygiene; a failed purge never fails the tick
	if _, err := j.snapshots.PurgeOlderThan(ctx, now.Add(-j.retention)); err != nil {
		j.logg.Error(ctx, "snapshot purge failed", err)
	}

	return multierr.Combine(errs...)
}

func (j *haltMonitorJob) evaluate(ctx context.Context, rule models.HaltRule, spot map[enums.MetalSymbol]quotes.Quote, now time.Time) error {
	ctx = j.logg.WithMetal(ctx, string(rule.Symbol))

	current, ok := spot[rule.Symbol]
	if !ok {
		j.logg.Warn(ctx, "no live quote for monitored symbol, skipping")
		return nil
	}

	halted, err := j.halts.IsHalted(ctx, rule.Symbol)
	if err != nil {
		return fmt.Errorf("check halt state for %s: %w", rule.Symbol, err)
	}
	if halted {
		return nil
	}

	since := now.Add(-time.Duration(rule.WindowMinutes) * time.Minute)
	oldest, err := j.snapshots.OldestWithin(ctx, rule.Symbol, since)
	if err != nil {
		return fmt.Errorf("load window baseline for %s: %w", rule.Symbol, err)
	}
	if oldest == nil {
		// cold start or retention gap: no baseline, no judgment
		return nil
	}
	if !oldest.PriceUSDPerOz.IsPositive() {
		return nil
	}

	dropPct := oldest.PriceUSDPerOz.Sub(current.PriceUSDPerOz).
		Div(oldest.PriceUSDPerOz).
		Mul(oneHundred)
	if dropPct.LessThan(rule.DropThresholdPct) {
		return nil
	}

	reason := fmt.Sprintf("spot dropped %s%% in %dm (from %s to %s USD/oz)",
		dropPct.Round(2), rule.WindowMinutes, oldest.PriceUSDPerOz, current.PriceUSDPerOz)
	if _, err := j.halts.Halt(ctx, rule.Symbol, enums.HaltActorAuto, reason); err != nil {
		return fmt.Errorf("auto-halt %s: %w", rule.Symbol, err)
	}
	return nil
}
