package enums

import "fmt"

// SellerStatus is the platform-level standing of a seller account.
type SellerStatus string

const (
	SellerStatusPending  SellerStatus = "pending"
	SellerStatusVerified SellerStatus = "verified"
	SellerStatusFrozen   SellerStatus = "frozen"
)

// SellerTier drives commission rate, settlement speed and reserve percent.
type SellerTier string

const (
	SellerTierStandard     SellerTier = "standard"
	SellerTierVerifiedFast SellerTier = "verified_fast"
	SellerTierPremium      SellerTier = "premium"
)

// IsValid reports whether the value matches the canonical tier enum.
func (t SellerTier) IsValid() bool {
	switch t {
	case SellerTierStandard, SellerTierVerifiedFast, SellerTierPremium:
		return true
	default:
		return false
	}
}

// ParseSellerTier converts raw input into SellerTier.
func ParseSellerTier(value string) (SellerTier, error) {
	switch SellerTier(value) {
	case SellerTierStandard:
		return SellerTierStandard, nil
	case SellerTierVerifiedFast:
		return SellerTierVerifiedFast, nil
	case SellerTierPremium:
		return SellerTierPremium, nil
	default:
		return "", fmt.Errorf("invalid seller tier %q", value)
	}
}
