package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		product   models.Product
		wantSym   enums.MetalSymbol
		wantGrams string
		wantErr   bool
	}{
		{
			name: "structured metal field grams",
			product: models.Product{
				Metal:       strPtr("Gold"),
				WeightValue: decimal.RequireFromString("10"),
				WeightUnit:  "g",
			},
			wantSym:   enums.MetalGold,
			wantGrams: "10",
		},
		{
			name: "symbol label troy oz",
			product: models.Product{
				Metal:       strPtr("XAG"),
				WeightValue: decimal.RequireFromString("1"),
				WeightUnit:  "oz",
			},
			wantSym:   enums.MetalSilver,
			wantGrams: "31.1035",
		},
		{
			name: "category fallback kilograms",
			product: models.Product{
				Category:    strPtr("Platinum Bars"),
				WeightValue: decimal.RequireFromString("1"),
				WeightUnit:  "kg",
			},
			wantSym:   enums.MetalPlatinum,
			wantGrams: "1000",
		},
		{
			name: "name fallback",
			product: models.Product{
				Name:        "2025 Palladium Maple Leaf",
				WeightValue: decimal.RequireFromString("31.1035"),
				WeightUnit:  "grams",
			},
			wantSym:   enums.MetalPalladium,
			wantGrams: "31.1035",
		},
		{
			name: "structured field wins over name",
			product: models.Product{
				Name:        "Silver-plated gold round",
				Metal:       strPtr("silver"),
				WeightValue: decimal.RequireFromString("5"),
				WeightUnit:  "g",
			},
			wantSym:   enums.MetalSilver,
			wantGrams: "5",
		},
		{
			name: "invalid structured field never falls through",
			product: models.Product{
				Name:        "Gold Sovereign",
				Metal:       strPtr("electrum"),
				WeightValue: decimal.RequireFromString("7.98"),
				WeightUnit:  "g",
			},
			wantErr: true,
		},
		{
			name: "no metal anywhere",
			product: models.Product{
				Name:        "Collector display case",
				WeightValue: decimal.RequireFromString("250"),
				WeightUnit:  "g",
			},
			wantErr: true,
		},
		{
			name: "unknown weight unit",
			product: models.Product{
				Metal:       strPtr("gold"),
				WeightValue: decimal.RequireFromString("1"),
				WeightUnit:  "lb",
			},
			wantErr: true,
		},
		{
			name: "zero weight",
			product: models.Product{
				Metal:       strPtr("gold"),
				WeightValue: decimal.Zero,
				WeightUnit:  "g",
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.product.ID = uuid.New()
			tc.product.SKU = "TEST-SKU"

			spec, err := Normalize(tc.product)
			if tc.wantErr {
				require.Error(t, err)
				typed := pkgerrors.As(err)
				require.NotNil(t, typed)
				assert.Equal(t, pkgerrors.CodeUnpriceable, typed.Code())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSym, spec.Symbol)
			assert.Equal(t, tc.wantGrams, spec.WeightGrams.String())
			assert.Equal(t, tc.product.ID, spec.ProductID)
		})
	}
}
