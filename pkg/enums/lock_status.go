package enums

import "fmt"

// PriceLockStatus describes the lifecycle of a price lock row.
type PriceLockStatus string

const (
	PriceLockStatusActive  PriceLockStatus = "active"
	PriceLockStatusUsed    PriceLockStatus = "used"
	PriceLockStatusExpired PriceLockStatus = "expired"
)

var validPriceLockStatuses = []PriceLockStatus{
	PriceLockStatusActive,
	PriceLockStatusUsed,
	PriceLockStatusExpired,
}

// IsValid reports whether the status matches the canonical lock lifecycle.
func (s PriceLockStatus) IsValid() bool {
	for _, candidate := range validPriceLockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePriceLockStatus converts the raw string to PriceLockStatus.
func ParsePriceLockStatus(value string) (PriceLockStatus, error) {
	for _, candidate := range validPriceLockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price lock status %q", value)
}
