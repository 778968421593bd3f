package models

// All lists every persisted model for dev auto-migration.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&SellerOffer{},
		&Order{},
		&WalletLedgerEntry{},
		&IdempotencyRecord{},
		&TimelineEvent{},
		&AuditLog{},
		&PayoutRequest{},
	}
}
