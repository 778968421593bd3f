package risk

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

type fakeCounters struct {
	orders int64
	cod    int64
}

func (f *fakeCounters) OrdersToday(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return f.orders, nil
}

func (f *fakeCounters) CODOrdersToday(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return f.cod, nil
}

func testConfig() config.OrdersConfig {
	return config.OrdersConfig{
		MaxCODOrderValuePaise: 1000000,
		MaxDailyCODOrders:     100,
		CreateRateLimit:       5,
	}
}

func newGuard(t *testing.T, counters *fakeCounters) *Guard {
	t.Helper()
	guard, err := NewGuard(testConfig(), counters)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	return guard
}

func verifiedSeller() *models.User {
	return &models.User{
		ID:           uuid.New(),
		SellerStatus: enums.SellerStatusVerified,
		CODEnabled:   true,
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestFrozenAndUnverifiedSellersRejected(t *testing.T) {
	t.Parallel()

	guard := newGuard(t, &fakeCounters{})
	ctx := context.Background()

	frozen := verifiedSeller()
	frozen.SellerStatus = enums.SellerStatusFrozen
	expectCode(t, guard.CheckSellerForOrder(ctx, frozen, 1000, enums.PaymentMethodOnline), pkgerrors.CodeForbidden)

	pending := verifiedSeller()
	pending.SellerStatus = enums.SellerStatusPending
	expectCode(t, guard.CheckSellerForOrder(ctx, pending, 1000, enums.PaymentMethodOnline), pkgerrors.CodeForbidden)

	if err := guard.CheckSellerForOrder(ctx, verifiedSeller(), 1000, enums.PaymentMethodOnline); err != nil {
		t.Fatalf("verified seller should pass: %v", err)
	}
}

func TestProbationRestrictions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	seller := verifiedSeller()
	seller.Probation = &types.Probation{
		Active: true,
		Restrictions: types.ProbationRestrictions{
			CODEnabled:         false,
			MaxDailyOrders:     10,
			MaxOrderValuePaise: 50000,
		},
	}

	guard := newGuard(t, &fakeCounters{orders: 3})
	expectCode(t, guard.CheckSellerForOrder(ctx, seller, 40000, enums.PaymentMethodCOD), pkgerrors.CodeForbidden)
	expectCode(t, guard.CheckSellerForOrder(ctx, seller, 60000, enums.PaymentMethodOnline), pkgerrors.CodeForbidden)
	if err := guard.CheckSellerForOrder(ctx, seller, 40000, enums.PaymentMethodOnline); err != nil {
		t.Fatalf("online order within caps should pass: %v", err)
	}

	capped := newGuard(t, &fakeCounters{orders: 10})
	expectCode(t, capped.CheckSellerForOrder(ctx, seller, 40000, enums.PaymentMethodOnline), pkgerrors.CodeForbidden)

	inactive := verifiedSeller()
	inactive.Probation = &types.Probation{Active: false, Restrictions: types.ProbationRestrictions{MaxOrderValuePaise: 1}}
	if err := guard.CheckSellerForOrder(ctx, inactive, 40000, enums.PaymentMethodOnline); err != nil {
		t.Fatalf("inactive probation must not restrict: %v", err)
	}
}

func TestPlatformCODCaps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	guard := newGuard(t, &fakeCounters{})
	seller := verifiedSeller()
	seller.CODEnabled = false
	expectCode(t, guard.CheckSellerForOrder(ctx, seller, 1000, enums.PaymentMethodCOD), pkgerrors.CodeValidation)

	expectCode(t, guard.CheckSellerForOrder(ctx, verifiedSeller(), 1000001, enums.PaymentMethodCOD), pkgerrors.CodeValidation)

	atCap := newGuard(t, &fakeCounters{cod: 100})
	expectCode(t, atCap.CheckSellerForOrder(ctx, verifiedSeller(), 1000, enums.PaymentMethodCOD), pkgerrors.CodeForbidden)

	if err := guard.CheckSellerForOrder(ctx, verifiedSeller(), 1000, enums.PaymentMethodCOD); err != nil {
		t.Fatalf("cod order within caps should pass: %v", err)
	}
}

func TestBuyerChecks(t *testing.T) {
	t.Parallel()

	guard := newGuard(t, &fakeCounters{})

	blocked := &models.User{BuyerRisk: types.BuyerRisk{Blocked: true}}
	expectCode(t, guard.CheckBuyerForOrder(blocked, enums.PaymentMethodOnline), pkgerrors.CodeForbidden)
	expectCode(t, guard.CheckBuyerForReturn(blocked), pkgerrors.CodeForbidden)

	codDisabled := &models.User{BuyerRisk: types.BuyerRisk{CODDisabled: true}}
	expectCode(t, guard.CheckBuyerForOrder(codDisabled, enums.PaymentMethodCOD), pkgerrors.CodeForbidden)
	if err := guard.CheckBuyerForOrder(codDisabled, enums.PaymentMethodOnline); err != nil {
		t.Fatalf("online order should pass for cod-disabled buyer: %v", err)
	}
}

func TestReturnRateGuard(t *testing.T) {
	t.Parallel()

	guard := newGuard(t, &fakeCounters{})

	abusive := &models.User{BuyerRisk: types.BuyerRisk{OrdersCount: 10, ReturnCount: 5}}
	expectCode(t, guard.CheckBuyerForReturn(abusive), pkgerrors.CodeForbidden)

	// High rate but too few orders for the guard to engage.
	newBuyer := &models.User{BuyerRisk: types.BuyerRisk{OrdersCount: 4, ReturnCount: 3}}
	if err := guard.CheckBuyerForReturn(newBuyer); err != nil {
		t.Fatalf("guard needs 5 orders minimum: %v", err)
	}

	borderline := &models.User{BuyerRisk: types.BuyerRisk{OrdersCount: 10, ReturnCount: 4}}
	if err := guard.CheckBuyerForReturn(borderline); err != nil {
		t.Fatalf("exactly 40%% should pass: %v", err)
	}
}

func TestCreateRateLimitHalvedForHighRisk(t *testing.T) {
	t.Parallel()

	guard := newGuard(t, &fakeCounters{})

	normal := &models.User{}
	if got := guard.CreateRateLimit(normal); got != 5 {
		t.Fatalf("expected limit 5, got %d", got)
	}

	risky := &models.User{BuyerRisk: types.BuyerRisk{HighRisk: true}}
	if got := guard.CreateRateLimit(risky); got != 2 {
		t.Fatalf("expected halved limit 2, got %d", got)
	}
}
