package pricing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
)

// gramsPerTroyOunce is the conversion constant for precious metals. Spot
// feeds quote USD per troy ounce; catalog weights are canonicalized to grams.
var gramsPerTroyOunce = decimal.RequireFromString("31.1035")

// PricingSpec is the canonical pricing input derived from a catalog product.
type PricingSpec struct {
	ProductID   uuid.UUID
	Symbol      enums.MetalSymbol
	WeightGrams decimal.Decimal
	Brand       string
}

var metalLabels = map[string]enums.MetalSymbol{
	"xau":       enums.MetalGold,
	"au":        enums.MetalGold,
	"gold":      enums.MetalGold,
	"xag":       enums.MetalSilver,
	"ag":        enums.MetalSilver,
	"silver":    enums.MetalSilver,
	"xpt":       enums.MetalPlatinum,
	"pt":        enums.MetalPlatinum,
	"platinum":  enums.MetalPlatinum,
	"xpd":       enums.MetalPalladium,
	"pd":        enums.MetalPalladium,
	"palladium": enums.MetalPalladium,
}

// Normalize maps a catalog product onto a canonical pricing spec. Catalog
// imports are heterogeneous: the metal may live in a structured column, a
// category label, or only in the product name, and weights arrive in grams,
// troy ounces, or kilograms. Products that cannot be resolved are
// unpriceable; nothing here guesses.
func Normalize(product models.Product) (PricingSpec, error) {
	symbol, err := resolveMetal(product)
	if err != nil {
		return PricingSpec{}, err
	}

	grams, err := resolveWeightGrams(product)
	if err != nil {
		return PricingSpec{}, err
	}

	brand := ""
	if product.Brand != nil {
		brand = strings.TrimSpace(*product.Brand)
	}

	return PricingSpec{
		ProductID:   product.ID,
		Symbol:      symbol,
		WeightGrams: grams,
		Brand:       brand,
	}, nil
}

func resolveMetal(product models.Product) (enums.MetalSymbol, error) {
	// A populated structured field is authoritative. If it does not resolve,
	// the product is unpriceable rather than falling through to fuzzier
	// sources.
	if product.Metal != nil {
		label := strings.TrimSpace(*product.Metal)
		if label != "" {
			if symbol, ok := metalLabels[strings.ToLower(label)]; ok {
				return symbol, nil
			}
			return "", unpriceable(product, fmt.Sprintf("unrecognized metal label %q", label))
		}
	}

	if product.Category != nil {
		if symbol, ok := metalFromText(*product.Category); ok {
			return symbol, nil
		}
	}

	if symbol, ok := metalFromText(product.Name); ok {
		return symbol, nil
	}

	return "", unpriceable(product, "metal could not be determined")
}

// metalFromText scans free text for a metal token. First hit in word order wins.
func metalFromText(text string) (enums.MetalSymbol, bool) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, word := range fields {
		if symbol, ok := metalLabels[word]; ok {
			return symbol, true
		}
	}
	return "", false
}

func resolveWeightGrams(product models.Product) (decimal.Decimal, error) {
	if !product.WeightValue.IsPositive() {
		return decimal.Zero, unpriceable(product, fmt.Sprintf("non-positive weight %s", product.WeightValue))
	}

	switch strings.ToLower(strings.TrimSpace(product.WeightUnit)) {
	case "g", "gram", "grams":
		return product.WeightValue, nil
	case "oz", "ozt", "troy_oz", "troy oz", "toz":
		return product.WeightValue.Mul(gramsPerTroyOunce), nil
	case "kg", "kilogram", "kilograms":
		return product.WeightValue.Mul(decimal.NewFromInt(1000)), nil
	default:
		return decimal.Zero, unpriceable(product, fmt.Sprintf("unrecognized weight unit %q", product.WeightUnit))
	}
}

func unpriceable(product models.Product, reason string) error {
	return pkgerrors.New(pkgerrors.CodeUnpriceable, fmt.Sprintf("product %s (%s): %s", product.ID, product.SKU, reason))
}
