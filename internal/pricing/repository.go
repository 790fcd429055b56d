package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
)

// Settings is the admin-mutable pricing configuration, loaded fresh at the
// start of every pricing request. Tiers come back ordered by min_qty.
type Settings struct {
	MarkupPercentage decimal.Decimal
	DefaultBaseFee   decimal.Decimal
	BrandFees        map[string]decimal.Decimal
	Tiers            []models.VolumeDiscountTier
}

// BrandFee looks up the base fee for a brand, falling back to the default.
func (s *Settings) BrandFee(brand string) decimal.Decimal {
	if brand != "" {
		if fee, ok := s.BrandFees[strings.ToLower(brand)]; ok {
			return fee
		}
	}
	return s.DefaultBaseFee
}

// ConfigRepository loads and mutates pricing settings. Reads always hit the
// database; concurrent instances must never price on a stale in-process copy.
type ConfigRepository struct {
	db *gorm.DB
}

// NewConfigRepository builds a repository tied to the provided GORM DB.
func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *ConfigRepository) WithTx(tx *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: tx}
}

// LoadSettings reads the settings row, brand fee overrides and discount tiers.
func (r *ConfigRepository) LoadSettings(ctx context.Context) (*Settings, error) {
	var row models.PricingSettings
	if err := r.db.WithContext(ctx).Order("updated_at DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing settings are not seeded")
		}
		return nil, err
	}

	var brandRows []models.BrandBaseFee
	if err := r.db.WithContext(ctx).Find(&brandRows).Error; err != nil {
		return nil, err
	}
	brandFees := make(map[string]decimal.Decimal, len(brandRows))
	for _, b := range brandRows {
		brandFees[strings.ToLower(b.Brand)] = b.BaseFee
	}

	var tiers []models.VolumeDiscountTier
	if err := r.db.WithContext(ctx).Order("min_qty ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}

	return &Settings{
		MarkupPercentage: row.MarkupPercentage,
		DefaultBaseFee:   row.DefaultBaseFee,
		BrandFees:        brandFees,
		Tiers:            tiers,
	}, nil
}

// UpdateSettings replaces the markup and default fee on the settings row.
func (r *ConfigRepository) UpdateSettings(ctx context.Context, markup, defaultFee decimal.Decimal, updatedBy string) error {
	var row models.PricingSettings
	if err := r.db.WithContext(ctx).Order("updated_at DESC").First(&row).Error; err != nil {
		return err
	}
	updates := map[string]any{
		"markup_percentage": markup,
		"default_base_fee":  defaultFee,
	}
	if updatedBy != "" {
		updates["updated_by"] = updatedBy
	}
	return r.db.WithContext(ctx).Model(&models.PricingSettings{}).
		Where("id = ?", row.ID).
		Updates(updates).Error
}

// ReplaceBrandFees swaps the full set of brand fee overrides.
func (r *ConfigRepository) ReplaceBrandFees(ctx context.Context, fees []models.BrandBaseFee) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("1 = 1").Delete(&models.BrandBaseFee{}).Error; err != nil {
		return err
	}
	if len(fees) == 0 {
		return nil
	}
	return tx.Create(&fees).Error
}

// ReplaceTiers swaps the full set of volume discount tiers.
func (r *ConfigRepository) ReplaceTiers(ctx context.Context, tiers []models.VolumeDiscountTier) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("1 = 1").Delete(&models.VolumeDiscountTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	return tx.Create(&tiers).Error
}

// ProductRepository reads catalog products for pricing.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository builds a repository tied to the provided GORM DB.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindActiveByIDs loads the active products for the given IDs, keyed by ID.
func (r *ProductRepository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}
