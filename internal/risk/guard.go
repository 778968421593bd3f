package risk

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// DailyCounters reads the per-seller order counters for the current day.
type DailyCounters interface {
	OrdersToday(ctx context.Context, sellerID uuid.UUID) (int64, error)
	CODOrdersToday(ctx context.Context, sellerID uuid.UUID) (int64, error)
}

// Guard is the single gate for order-creation and return-request risk
// decisions. Both probation and platform COD policy live here; no caller
// duplicates these checks inline.
type Guard struct {
	cfg      config.OrdersConfig
	counters DailyCounters
}

// NewGuard wires the risk guard.
func NewGuard(cfg config.OrdersConfig, counters DailyCounters) (*Guard, error) {
	if counters == nil {
		return nil, fmt.Errorf("risk daily counters required")
	}
	return &Guard{cfg: cfg, counters: counters}, nil
}

// CheckSellerForOrder rejects orders the seller may not accept: frozen
// status, probation restrictions, and platform COD caps.
func (g *Guard) CheckSellerForOrder(ctx context.Context, seller *models.User, totalPaise int64, method enums.PaymentMethod) error {
	if seller.SellerStatus == enums.SellerStatusFrozen {
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller account is frozen")
	}
	if seller.SellerStatus != enums.SellerStatusVerified {
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller is not verified")
	}

	if p := seller.Probation; p != nil && p.Active {
		if method == enums.PaymentMethodCOD && !p.Restrictions.CODEnabled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cod disabled while seller is on probation")
		}
		if cap := p.Restrictions.MaxOrderValuePaise; cap > 0 && totalPaise > cap {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order value exceeds probation cap")
		}
		if cap := p.Restrictions.MaxDailyOrders; cap > 0 {
			count, err := g.counters.OrdersToday(ctx, seller.ID)
			if err != nil {
				return err
			}
			if count >= int64(cap) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "seller daily order cap reached")
			}
		}
	}

	if method == enums.PaymentMethodCOD {
		if !seller.CODEnabled {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller does not accept cod")
		}
		if totalPaise > g.cfg.MaxCODOrderValuePaise {
			return pkgerrors.New(pkgerrors.CodeValidation, "order value exceeds cod limit")
		}
		count, err := g.counters.CODOrdersToday(ctx, seller.ID)
		if err != nil {
			return err
		}
		if count >= g.cfg.MaxDailyCODOrders {
			return pkgerrors.New(pkgerrors.CodeForbidden, "seller daily cod order cap reached")
		}
	}
	return nil
}

// CheckBuyerForOrder rejects blocked buyers and buyers whose COD privilege
// was revoked after repeat RTOs.
func (g *Guard) CheckBuyerForOrder(buyer *models.User, method enums.PaymentMethod) error {
	if buyer.BuyerRisk.Blocked {
		return pkgerrors.New(pkgerrors.CodeForbidden, "buyer account is blocked")
	}
	if method == enums.PaymentMethodCOD && buyer.BuyerRisk.CODDisabled {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cod disabled for this buyer")
	}
	return nil
}

// CheckBuyerForReturn rejects return requests from buyers with an abusive
// return pattern: over 40% returns across at least 5 orders.
func (g *Guard) CheckBuyerForReturn(buyer *models.User) error {
	if buyer.BuyerRisk.Blocked {
		return pkgerrors.New(pkgerrors.CodeForbidden, "buyer account is blocked")
	}
	risk := buyer.BuyerRisk
	if risk.OrdersCount >= 5 {
		rate := float64(risk.ReturnCount) / float64(risk.OrdersCount)
		if rate > 0.4 {
			return pkgerrors.New(pkgerrors.CodeForbidden, "return rate too high")
		}
	}
	return nil
}

// HighRiskBuyer reports whether the buyer's rate limit should be halved.
func (g *Guard) HighRiskBuyer(buyer *models.User) bool {
	return buyer.BuyerRisk.HighRisk
}

// CreateRateLimit returns the per-window order creation allowance for the
// buyer, halved for high-risk accounts.
func (g *Guard) CreateRateLimit(buyer *models.User) int64 {
	limit := g.cfg.CreateRateLimit
	if g.HighRiskBuyer(buyer) {
		limit /= 2
		if limit < 1 {
			limit = 1
		}
	}
	return limit
}
