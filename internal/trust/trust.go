package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

// deltas maps lifecycle events to trust score adjustments. Unknown events
// contribute nothing.
var deltas = map[enums.TrustEvent]int{
	enums.TrustEventOrderDelivered:         2,
	enums.TrustEventOrderCancelledBySeller: -5,
	enums.TrustEventOrderRefunded:          -3,
	enums.TrustEventReview5Star:            3,
	enums.TrustEventReview4Star:            2,
	enums.TrustEventReview3Star:            0,
	enums.TrustEventReview2Star:            -2,
	enums.TrustEventReview1Star:            -4,
	enums.TrustEventReturnApproved:         -4,
	enums.TrustEventReturnRejected:         1,
	enums.TrustEventSellerFaultReturn:      -8,
	enums.TrustEventCODRTO:                 -6,
}

// Delta returns the score adjustment for an event, zero when unknown.
func Delta(event enums.TrustEvent) int {
	return deltas[event]
}

// TierConfig is the per-tier commercial policy.
type TierConfig struct {
	SettlementHours int
	CommissionPct   float64
	ReservePct      float64
}

var tierConfigs = map[enums.SellerTier]TierConfig{
	enums.SellerTierStandard:     {SettlementHours: 72, CommissionPct: 8, ReservePct: 10},
	enums.SellerTierVerifiedFast: {SettlementHours: 48, CommissionPct: 6, ReservePct: 5},
	enums.SellerTierPremium:      {SettlementHours: 24, CommissionPct: 5, ReservePct: 3},
}

// TierFor returns the policy for a tier, falling back to standard.
func TierFor(tier enums.SellerTier) TierConfig {
	if cfg, ok := tierConfigs[tier]; ok {
		return cfg
	}
	return tierConfigs[enums.SellerTierStandard]
}

const (
	freezeScoreCeiling    = 30
	freezeFaultThreshold  = 3
	freezeFaultWindowDays = 30
)

// SellerStore is the slice of the users repository the engine needs.
type SellerStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateTrust(ctx context.Context, id uuid.UUID, trust types.TrustSnapshot, tier enums.SellerTier, commissionPct float64, settlementHours int) error
	FreezeSeller(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
}

// FaultCounter counts seller-fault returns inside a time window.
type FaultCounter interface {
	CountSellerFaultReturns(ctx context.Context, sellerID uuid.UUID, since time.Time) (int, error)
}

// AuditLogger records freeze decisions.
type AuditLogger interface {
	LogAudit(ctx context.Context, actorRole enums.ActorRole, actorID *uuid.UUID, action string, metadata json.RawMessage) error
}

// Service recomputes seller trust scores, tiers and freeze status.
type Service interface {
	ApplyEvent(ctx context.Context, sellerID uuid.UUID, event enums.TrustEvent) error
	Recompute(ctx context.Context, seller *models.User) (*types.TrustSnapshot, error)
}

type service struct {
	store  SellerStore
	faults FaultCounter
	audit  AuditLogger
	now    func() time.Time
}

// NewService wires the trust engine.
func NewService(store SellerStore, faults FaultCounter, audit AuditLogger, now func() time.Time) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("trust seller store required")
	}
	if faults == nil {
		return nil, fmt.Errorf("trust fault counter required")
	}
	if audit == nil {
		return nil, fmt.Errorf("trust audit logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{store: store, faults: faults, audit: audit, now: now}, nil
}

// ApplyEvent folds an event delta into the seller's base score, then runs a
// full recompute so the persisted score stays the source of truth.
func (s *service) ApplyEvent(ctx context.Context, sellerID uuid.UUID, event enums.TrustEvent) error {
	seller, err := s.store.FindByID(ctx, sellerID)
	if err != nil {
		return err
	}

	seller.Trust.BaseScore = clampScore(seller.Trust.BaseScore + Delta(event))
	bumpStats(&seller.Trust.Stats, event)

	_, err = s.Recompute(ctx, seller)
	return err
}

// Recompute derives score, badges and tier from the seller's stats and
// persists the outcome. It also applies the auto-freeze rule.
func (s *service) Recompute(ctx context.Context, seller *models.User) (*types.TrustSnapshot, error) {
	snapshot := seller.Trust
	stats := snapshot.Stats

	score := snapshot.BaseScore
	var badges []string

	if seller.SellerStatus == enums.SellerStatusVerified {
		score += 20
		badges = append(badges, "verified")
	}

	cancelRate := ratio(stats.CancelledBySeller, stats.TotalOrders)
	if stats.TotalOrders >= 10 && cancelRate <= 0.05 {
		score += 20
		badges = append(badges, "low_cancellation")
	}

	deliveryRatio := ratio(stats.Delivered, stats.TotalOrders)
	if stats.TotalOrders >= 10 && deliveryRatio >= 0.9 {
		score += 20
		badges = append(badges, "reliable_delivery")
	}

	volumeBonus := stats.Delivered / 10
	if volumeBonus > 30 {
		volumeBonus = 30
	}
	score += volumeBonus

	snapshot.Score = clampScore(score)
	snapshot.Badges = badges
	computedAt := s.now()
	snapshot.ComputedAt = &computedAt

	tier := tierForStats(snapshot.Score, stats.TotalOrders, cancelRate)
	cfg := TierFor(tier)

	if err := s.store.UpdateTrust(ctx, seller.ID, snapshot, tier, cfg.CommissionPct, cfg.SettlementHours); err != nil {
		return nil, err
	}
	seller.Trust = snapshot
	seller.Tier = tier
	seller.CommissionPct = cfg.CommissionPct
	seller.SettlementHours = cfg.SettlementHours

	if err := s.maybeFreeze(ctx, seller); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *service) maybeFreeze(ctx context.Context, seller *models.User) error {
	if seller.SellerStatus != enums.SellerStatusVerified {
		return nil
	}
	if seller.Trust.Score > freezeScoreCeiling {
		return nil
	}
	since := s.now().AddDate(0, 0, -freezeFaultWindowDays)
	faults, err := s.faults.CountSellerFaultReturns(ctx, seller.ID, since)
	if err != nil {
		return err
	}
	if faults < freezeFaultThreshold {
		return nil
	}

	reason := fmt.Sprintf("trust score %d with %d seller-fault returns in %d days",
		seller.Trust.Score, faults, freezeFaultWindowDays)
	frozen, err := s.store.FreezeSeller(ctx, seller.ID, reason, s.now())
	if err != nil {
		return err
	}
	if !frozen {
		return nil
	}
	seller.SellerStatus = enums.SellerStatusFrozen

	metadata, _ := json.Marshal(map[string]any{
		"seller_id": seller.ID,
		"score":     seller.Trust.Score,
		"faults":    faults,
	})
	return s.audit.LogAudit(ctx, enums.ActorRoleSystem, nil, "SELLER_AUTO_FROZEN", metadata)
}

func tierForStats(score, totalOrders int, cancelRate float64) enums.SellerTier {
	switch {
	case score >= 80 && totalOrders >= 50 && cancelRate <= 0.05:
		return enums.SellerTierPremium
	case score >= 60 && totalOrders >= 10 && cancelRate <= 0.08:
		return enums.SellerTierVerifiedFast
	default:
		return enums.SellerTierStandard
	}
}

func bumpStats(stats *types.TrustStats, event enums.TrustEvent) {
	switch event {
	case enums.TrustEventOrderDelivered:
		stats.Delivered++
	case enums.TrustEventOrderCancelledBySeller:
		stats.CancelledBySeller++
	case enums.TrustEventReturnApproved:
		stats.ReturnsApproved++
	case enums.TrustEventSellerFaultReturn:
		stats.SellerFaultReturns++
	case enums.TrustEventCODRTO:
		stats.CODRTOCount++
	}
}

func ratio(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
