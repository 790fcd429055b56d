package pricing

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// Service exposes live pricing and pricing-config administration.
type Service interface {
	PriceProducts(ctx context.Context, productIDs []uuid.UUID) ([]ProductPrice, error)
	GetConfig(ctx context.Context) (*Config, error)
	UpdateConfig(ctx context.Context, input UpdateConfigInput) (*Config, error)
}

// Config is the admin view of the pricing knobs.
type Config struct {
	MarkupPercentage decimal.Decimal
	DefaultBaseFee   decimal.Decimal
	BrandFees        []BrandFeeEntry
	Tiers            []TierEntry
}

// BrandFeeEntry is a per-brand base fee override.
type BrandFeeEntry struct {
	Brand   string
	BaseFee decimal.Decimal
}

// TierEntry is one volume discount tier.
type TierEntry struct {
	MinQty      int
	DiscountPct decimal.Decimal
}

// UpdateConfigInput replaces the full pricing configuration.
type UpdateConfigInput struct {
	MarkupPercentage decimal.Decimal
	DefaultBaseFee   decimal.Decimal
	BrandFees        []BrandFeeEntry
	Tiers            []TierEntry
	UpdatedBy        string
}

type service struct {
	db       *gorm.DB
	products *ProductRepository
	config   *ConfigRepository
	calc     *Calculator
	logg     *logger.Logger
}

// NewService validates dependencies and builds the pricing service.
func NewService(db *gorm.DB, calc *Calculator, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db is required")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "calculator is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{
		db:       db,
		products: NewProductRepository(db),
		config:   NewConfigRepository(db),
		calc:     calc,
		logg:     logg,
	}, nil
}

// PriceProducts resolves storefront display prices for the requested catalog
// products at the current spot and settings. Any unknown, inactive or
// unpriceable product fails the whole request.
func (s *service) PriceProducts(ctx context.Context, productIDs []uuid.UUID) ([]ProductPrice, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product_id is required")
	}

	found, err := s.products.FindActiveByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	var missing []string
	specs := make([]PricingSpec, 0, len(productIDs))
	var normErr error
	for _, id := range productIDs {
		product, ok := found[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		spec, err := Normalize(product)
		if err != nil {
			normErr = multierr.Append(normErr, err)
			continue
		}
		specs = append(specs, spec)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown or inactive products").
			WithDetails(map[string]any{"product_ids": missing})
	}
	if normErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnpriceable, normErr, "one or more products cannot be priced")
	}

	settings, err := s.config.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	priced, err := s.calc.PriceProducts(ctx, specs, settings)
	if err != nil {
		return nil, err
	}

	out := make([]ProductPrice, 0, len(productIDs))
	for _, id := range productIDs {
		out = append(out, priced[id])
	}
	return out, nil
}

func (s *service) GetConfig(ctx context.Context) (*Config, error) {
	settings, err := s.config.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settingsToConfig(settings), nil
}

// UpdateConfig replaces markup, default fee, brand overrides and tiers in one
// transaction and returns the stored configuration.
func (s *service) UpdateConfig(ctx context.Context, input UpdateConfigInput) (*Config, error) {
	if input.MarkupPercentage.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "markup_percentage must not be negative")
	}
	if input.DefaultBaseFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_base_fee must not be negative")
	}
	for _, tier := range input.Tiers {
		if tier.MinQty < 2 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tier min_qty %d must be at least 2", tier.MinQty))
		}
		if tier.DiscountPct.IsNegative() || tier.DiscountPct.GreaterThanOrEqual(oneHundred) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier discount_pct must be in [0, 100)")
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.config.WithTx(tx)
		if err := repo.UpdateSettings(ctx, input.MarkupPercentage, input.DefaultBaseFee, input.UpdatedBy); err != nil {
			return err
		}

		fees := make([]models.BrandBaseFee, 0, len(input.BrandFees))
		for _, f := range input.BrandFees {
			fees = append(fees, models.BrandBaseFee{ID: uuid.New(), Brand: f.Brand, BaseFee: f.BaseFee})
		}
		if err := repo.ReplaceBrandFees(ctx, fees); err != nil {
			return err
		}

		tiers := make([]models.VolumeDiscountTier, 0, len(input.Tiers))
		for _, t := range input.Tiers {
			tiers = append(tiers, models.VolumeDiscountTier{ID: uuid.New(), MinQty: t.MinQty, DiscountPct: t.DiscountPct})
		}
		return repo.ReplaceTiers(ctx, tiers)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pricing config")
	}

	s.logg.Info(s.logg.WithField(ctx, "updated_by", input.UpdatedBy), "pricing configuration updated")
	return s.GetConfig(ctx)
}

func settingsToConfig(settings *Settings) *Config {
	cfg := &Config{
		MarkupPercentage: settings.MarkupPercentage,
		DefaultBaseFee:   settings.DefaultBaseFee,
		BrandFees:        make([]BrandFeeEntry, 0, len(settings.BrandFees)),
		Tiers:            make([]TierEntry, 0, len(settings.Tiers)),
	}
	for brand, fee := range settings.BrandFees {
		cfg.BrandFees = append(cfg.BrandFees, BrandFeeEntry{Brand: brand, BaseFee: fee})
	}
	sort.Slice(cfg.BrandFees, func(i, j int) bool { return cfg.BrandFees[i].Brand < cfg.BrandFees[j].Brand })
	for _, tier := range settings.Tiers {
		cfg.Tiers = append(cfg.Tiers, TierEntry{MinQty: tier.MinQty, DiscountPct: tier.DiscountPct})
	}
	return cfg
}
