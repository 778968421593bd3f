package enums

import "fmt"

// LedgerEntryType classifies an immutable wallet ledger entry.
type LedgerEntryType string

const (
	LedgerEntrySaleCredit             LedgerEntryType = "SALE_CREDIT"
	LedgerEntryCommissionDebit        LedgerEntryType = "COMMISSION_DEBIT"
	LedgerEntryPlatformFeeDebit       LedgerEntryType = "PLATFORM_FEE_DEBIT"
	LedgerEntryReserveHold            LedgerEntryType = "RESERVE_HOLD"
	LedgerEntryReserveRelease         LedgerEntryType = "RESERVE_RELEASE"
	LedgerEntryReturnRefund           LedgerEntryType = "RETURN_REFUND"
	LedgerEntryCODRTOPenalty          LedgerEntryType = "COD_RTO_PENALTY"
	LedgerEntryCommissionLock         LedgerEntryType = "COMMISSION_LOCK"
	LedgerEntryEmergencyPayoutRelease LedgerEntryType = "EMERGENCY_PAYOUT_RELEASE"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntrySaleCredit,
	LedgerEntryCommissionDebit,
	LedgerEntryPlatformFeeDebit,
	LedgerEntryReserveHold,
	LedgerEntryReserveRelease,
	LedgerEntryReturnRefund,
	LedgerEntryCODRTOPenalty,
	LedgerEntryCommissionLock,
	LedgerEntryEmergencyPayoutRelease,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
