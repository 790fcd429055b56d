package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

type monitorProviderStub struct {
	spot map[enums.MetalSymbol]quotes.Quote
	err  error
}

func (p *monitorProviderStub) SpotPrices(ctx context.Context, symbols []enums.MetalSymbol) (map[enums.MetalSymbol]quotes.Quote, error) {
	return p.spot, p.err
}

func (p *monitorProviderStub) FXRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

type snapshotStoreStub struct {
	inserted []models.MetalQuoteSnapshot
	oldest   map[enums.MetalSymbol]*models.MetalQuoteSnapshot
	purgeErr error
	purged   bool
}

func (s *snapshotStoreStub) Insert(ctx context.Context, snapshot *models.MetalQuoteSnapshot) error {
	s.inserted = append(s.inserted, *snapshot)
	return nil
}

func (s *snapshotStoreStub) OldestWithin(ctx context.Context, symbol enums.MetalSymbol, since time.Time) (*models.MetalQuoteSnapshot, error) {
	return s.oldest[symbol], nil
}

func (s *snapshotStoreStub) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.purged = true
	return 0, s.purgeErr
}

type ruleListerStub struct {
	rules []models.HaltRule
}

func (r *ruleListerStub) ListEnabledRules(ctx context.Context) ([]models.HaltRule, error) {
	return r.rules, nil
}

type haltControllerStub struct {
	halted  map[enums.MetalSymbol]bool
	calls   []string
	reasons []string
}

func (h *haltControllerStub) IsHalted(ctx context.Context, symbol enums.MetalSymbol) (bool, error) {
	return h.halted[symbol], nil
}

func (h *haltControllerStub) Halt(ctx context.Context, symbol enums.MetalSymbol, actor, reason string) (*models.HaltState, error) {
	h.calls = append(h.calls, string(symbol)+"/"+actor)
	h.reasons = append(h.reasons, reason)
	return &models.HaltState{Symbol: symbol, IsHalted: true}, nil
}

func monitorLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func goldRule(thresholdPct string, windowMinutes int) models.HaltRule {
	return models.HaltRule{
		Symbol:           enums.MetalGold,
		DropThresholdPct: decimal.RequireFromString(thresholdPct),
		WindowMinutes:    windowMinutes,
		Enabled:          true,
	}
}

func newMonitor(t *testing.T, provider *monitorProviderStub, snapshots *snapshotStoreStub, rules *ruleListerStub, halts *haltControllerStub) Job {
	t.Helper()
	job, err := NewHaltMonitorJob(HaltMonitorJobParams{
		Logger:    monitorLogger(),
		Provider:  provider,
		Snapshots: snapshots,
		Rules:     rules,
		Halts:     halts,
		Retention: 24 * time.Hour,
	})
	require.NoError(t, err)
	return job
}

func TestHaltMonitorTripsOnDropOverThreshold(t *testing.T) {
	t.Parallel()

	// 2000 -> 1880 is a 6% drop against a 5% threshold
	provider := &monitorProviderStub{spot: map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("1880")},
	}}
	snapshots := &snapshotStoreStub{oldest: map[enums.MetalSymbol]*models.MetalQuoteSnapshot{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("2000")},
	}}
	rules := &ruleListerStub{rules: []models.HaltRule{goldRule("5", 60)}}
	halts := &haltControllerStub{}

	job := newMonitor(t, provider, snapshots, rules, halts)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, halts.calls, 1)
	assert.Equal(t, "XAU/auto", halts.calls[0])
	assert.Contains(t, halts.reasons[0], "6%")
	assert.Contains(t, halts.reasons[0], "60m")
	require.Len(t, snapshots.inserted, 1)
	assert.True(t, snapshots.purged)
}

func TestHaltMonitorHoldsBelowThreshold(t *testing.T) {
	t.Parallel()

	// 2000 -> 1920 is 4%, under the 5% threshold
	provider := &monitorProviderStub{spot: map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("1920")},
	}}
	snapshots := &snapshotStoreStub{oldest: map[enums.MetalSymbol]*models.MetalQuoteSnapshot{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("2000")},
	}}
	rules := &ruleListerStub{rules: []models.HaltRule{goldRule("5", 60)}}
	halts := &haltControllerStub{}

	job := newMonitor(t, provider, snapshots, rules, halts)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, halts.calls)
}

func TestHaltMonitorSkipsWithoutBaseline(t *testing.T) {
	t.Parallel()

	provider := &monitorProviderStub{spot: map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("1000")},
	}}
	snapshots := &snapshotStoreStub{}
	rules := &ruleListerStub{rules: []models.HaltRule{goldRule("5", 60)}}
	halts := &haltControllerStub{}

	job := newMonitor(t, provider, snapshots, rules, halts)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, halts.calls)
}

func TestHaltMonitorSkipsAlreadyHaltedSymbol(t *testing.T) {
	t.Parallel()

	provider := &monitorProviderStub{spot: map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("1500")},
	}}
	snapshots := &snapshotStoreStub{oldest: map[enums.MetalSymbol]*models.MetalQuoteSnapshot{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("2000")},
	}}
	rules := &ruleListerStub{rules: []models.HaltRule{goldRule("5", 60)}}
	halts := &haltControllerStub{halted: map[enums.MetalSymbol]bool{enums.MetalGold: true}}

	job := newMonitor(t, provider, snapshots, rules, halts)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, halts.calls)
}

func TestHaltMonitorPurgeFailureDoesNotFailTick(t *testing.T) {
	t.Parallel()

	provider := &monitorProviderStub{spot: map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("2000")},
	}}
	snapshots := &snapshotStoreStub{purgeErr: errors.New("purge broke")}
	rules := &ruleListerStub{}
	halts := &haltControllerStub{}

	job := newMonitor(t, provider, snapshots, rules, halts)
	require.NoError(t, job.Run(context.Background()))
	assert.True(t, snapshots.purged)
}

func TestHaltMonitorStillTripsWhenVendorOmitsOtherSymbols(t *testing.T) {
	t.Parallel()

	// palladium missing from the feed must not stop gold from halting
	provider := &monitorProviderStub{spot: map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold:   {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("1880")},
		enums.MetalSilver: {Symbol: enums.MetalSilver, PriceUSDPerOz: decimal.RequireFromString("24")},
	}}
	snapshots := &snapshotStoreStub{oldest: map[enums.MetalSymbol]*models.MetalQuoteSnapshot{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString("2000")},
	}}
	rules := &ruleListerStub{rules: []models.HaltRule{
		goldRule("5", 60),
		{Symbol: enums.MetalPalladium, DropThresholdPct: decimal.RequireFromString("5"), WindowMinutes: 60, Enabled: true},
	}}
	halts := &haltControllerStub{}

	job := newMonitor(t, provider, snapshots, rules, halts)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, halts.calls, 1)
	assert.Equal(t, "XAU/auto", halts.calls[0])
	require.Len(t, snapshots.inserted, 2)
}

func TestHaltMonitorFailsWhenFeedIsDown(t *testing.T) {
	t.Parallel()

	provider := &monitorProviderStub{err: errors.New("vendor down")}
	job := newMonitor(t, provider, &snapshotStoreStub{}, &ruleListerStub{}, &haltControllerStub{})
	require.Error(t, job.Run(context.Background()))
}
