package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/inventory"
	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/products"
	"github.com/brandcart/brandcart-backend/internal/risk"
	"github.com/brandcart/brandcart-backend/internal/timeline"
	"github.com/brandcart/brandcart-backend/internal/trust"
	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/razorpay"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

type testEnv struct {
	db       *gorm.DB
	svc      Service
	deps     Deps
	repo     Repository
	ledger   ledger.Service
	users    *users.Repository
	gateway  *stubGateway
	now      time.Time
	buyerID  uuid.UUID
	sellerID uuid.UUID
	product  *models.Product
}

type txRunner struct {
	db *gorm.DB
}

func (r txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	created   int
	failNext  bool
	goodSig   string
	lastOrder razorpay.OrderParams
}

func (g *stubGateway) CreateOrder(_ context.Context, params razorpay.OrderParams) (*razorpay.Order, error) {
	if g.failNext {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	}
	g.created++
	g.lastOrder = params
	return &razorpay.Order{
		ID:          fmt.Sprintf("order_test_%d", g.created),
		AmountPaise: params.AmountPaise,
		Currency:    "INR",
		Receipt:     params.Receipt,
		Status:      "created",
	}, nil
}

func (g *stubGateway) VerifyCheckoutSignature(_, _, signature string) bool {
	return signature == g.goodSig
}

type stubLimiter struct {
	deny bool
}

func (l stubLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return !l.deny, 1, nil
}

type memCounters struct {
	orders map[uuid.UUID]int64
	cod    map[uuid.UUID]int64
}

func newMemCounters() *memCounters {
	return &memCounters{orders: map[uuid.UUID]int64{}, cod: map[uuid.UUID]int64{}}
}

func (c *memCounters) IncrOrdersToday(_ context.Context, sellerID uuid.UUID) error {
	c.orders[sellerID]++
	return nil
}

func (c *memCounters) IncrCODOrdersToday(_ context.Context, sellerID uuid.UUID) error {
	c.cod[sellerID]++
	return nil
}

func (c *memCounters) OrdersToday(_ context.Context, sellerID uuid.UUID) (int64, error) {
	return c.orders[sellerID], nil
}

func (c *memCounters) CODOrdersToday(_ context.Context, sellerID uuid.UUID) (int64, error) {
	return c.cod[sellerID], nil
}

// flakyInventory fails a configured number of calls before delegating, to
// exercise rollback paths. Counters are shared across WithTx rebinds.
type flakyInventory struct {
	inner        inventory.Service
	failReleases *int
	failCommits  *int
}

func (f *flakyInventory) WithTx(tx *gorm.DB) inventory.Service {
	return &flakyInventory{inner: f.inner.WithTx(tx), failReleases: f.failReleases, failCommits: f.failCommits}
}

func (f *flakyInventory) Reserve(ctx context.Context, productID uuid.UUID, qty int) error {
	return f.inner.Reserve(ctx, productID, qty)
}

func (f *flakyInventory) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if *f.failReleases > 0 {
		*f.failReleases--
		return pkgerrors.New(pkgerrors.CodeDependency, "stock store unavailable")
	}
	return f.inner.Release(ctx, productID, qty)
}

func (f *flakyInventory) CommitDeliveryRelease(ctx context.Context, productID uuid.UUID, qty int) error {
	if *f.failCommits > 0 {
		*f.failCommits--
		return pkgerrors.New(pkgerrors.CodeDependency, "stock store unavailable")
	}
	return f.inner.CommitDeliveryRelease(ctx, productID, qty)
}

// flakyIdempotency fails Complete a configured number of times.
type flakyIdempotency struct {
	idempotency.Service
	failCompletes int
}

func (f *flakyIdempotency) Complete(ctx context.Context, key, scope string, response json.RawMessage) error {
	if f.failCompletes > 0 {
		f.failCompletes--
		return pkgerrors.New(pkgerrors.CodeDependency, "idempotency store unavailable")
	}
	return f.Service.Complete(ctx, key, scope, response)
}

func testConfig() config.OrdersConfig {
	return config.OrdersConfig{
		PlatformFeePaise:      1000,
		MaxCODOrderValuePaise: 1000000,
		MaxDailyCODOrders:     100,
		CODRTOPenaltyPaise:    15000,
		CODRTOMaxAllowed:      2,
		RTOCommissionLock:     true,
		ReturnWindow:          7 * 24 * time.Hour,
		SellerActionWindow:    48 * time.Hour,
		DeliveryOTPExpiry:     30 * time.Minute,
		OnlinePaymentTimeout:  15 * time.Minute,
		ReserveHoldPeriod:     7 * 24 * time.Hour,
		CreateRateLimit:       5,
		CreateRateWindow:      time.Minute,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.User{}, &models.Product{}, &models.SellerOffer{},
		&models.Order{}, &models.WalletLedgerEntry{}, &models.IdempotencyRecord{},
		&models.TimelineEvent{}, &models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:  gdb,
		now: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	}
	nowFn := func() time.Time { return env.now }

	logg := logger.New(logger.Options{ServiceName: "orders-test", Level: zerolog.Disabled, Output: io.Discard})

	env.repo = NewRepository(gdb)
	env.users = users.NewRepository(gdb)
	productsRepo := products.NewRepository(gdb)

	invSvc, err := inventory.NewService(gdb)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	env.ledger = ledgerSvc
	idemSvc, err := idempotency.NewService(gdb, nowFn)
	if err != nil {
		t.Fatalf("idempotency: %v", err)
	}
	timelineSvc, err := timeline.NewService(gdb)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	trustSvc, err := trust.NewService(env.users, env.repo, timelineSvc, nowFn)
	if err != nil {
		t.Fatalf("trust: %v", err)
	}
	guard, err := risk.NewGuard(testConfig(), newMemCounters())
	if err != nil {
		t.Fatalf("guard: %v", err)
	}

	env.gateway = &stubGateway{goodSig: "good-signature"}

	env.deps = Deps{
		Tx:          txRunner{db: gdb},
		Repo:        env.repo,
		Users:       env.users,
		Products:    productsRepo,
		Inventory:   invSvc,
		Ledger:      ledgerSvc,
		Idempotency: idemSvc,
		Trust:       trustSvc,
		Guard:       guard,
		Timeline:    timelineSvc,
		Gateway:     env.gateway,
		Limiter:     stubLimiter{},
		Counters:    newMemCounters(),
		Cfg:         testConfig(),
		Logger:      logg,
		Now:         nowFn,
	}
	svc, err := NewService(env.deps)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.svc = svc

	env.seedUsersAndProduct(t)
	return env
}

func (e *testEnv) seedUsersAndProduct(t *testing.T) {
	t.Helper()

	e.sellerID = uuid.New()
	seller := &models.User{
		ID:              e.sellerID,
		Role:            "seller",
		Email:           "seller@example.test",
		SellerStatus:    enums.SellerStatusVerified,
		Tier:            enums.SellerTierStandard,
		CommissionPct:   8,
		SettlementHours: 72,
		CODEnabled:      true,
	}
	if err := e.db.Create(seller).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	e.buyerID = uuid.New()
	buyer := &models.User{
		ID:    e.buyerID,
		Role:  "buyer",
		Email: "buyer@example.test",
		Addresses: []types.Address{{
			ID:      "addr-1",
			Line1:   "12 MG Road",
			City:    "Bengaluru",
			State:   "KA",
			Pincode: "560001",
			Phone:   "9999999999",
		}},
	}
	if err := e.db.Create(buyer).Error; err != nil {
		t.Fatalf("seed buyer: %v", err)
	}

	e.product = &models.Product{
		ID:         uuid.New(),
		SellerID:   e.sellerID,
		Title:      "Steel water bottle",
		PricePaise: 100000,
		Stock:      5,
		Active:     true,
	}
	if err := e.db.Create(e.product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func (e *testEnv) createOrder(t *testing.T, method enums.PaymentMethod, key string) *OrderResponse {
	t.Helper()
	resp, err := e.svc.Create(context.Background(), CreateOrderInput{
		IdempotencyKey: key,
		BuyerID:        e.buyerID,
		ProductID:      e.product.ID,
		Qty:            1,
		PaymentMethod:  method,
		AddressID:      "addr-1",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return resp
}

// rebuildService returns a second service over the same database with one or
// more collaborators swapped out.
func (e *testEnv) rebuildService(t *testing.T, mutate func(*Deps)) Service {
	t.Helper()
	deps := e.deps
	mutate(&deps)
	svc, err := NewService(deps)
	if err != nil {
		t.Fatalf("rebuild service: %v", err)
	}
	return svc
}

func (e *testEnv) reloadProduct(t *testing.T) *models.Product {
	t.Helper()
	var product models.Product
	if err := e.db.First(&product, "id = ?", e.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}

func (e *testEnv) deliverOrder(t *testing.T, orderID uuid.UUID) *models.Order {
	t.Helper()
	ctx := context.Background()
	if _, err := e.svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: orderID, SellerID: e.sellerID, TrackingID: "AWB123", CourierName: "bluedart",
	}); err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
	code, err := e.svc.GenerateDeliveryOTP(ctx, orderID)
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}
	order, err := e.svc.ConfirmDelivery(ctx, ConfirmDeliveryInput{
		OrderID: orderID, BuyerID: e.buyerID, OTP: code,
	})
	if err != nil {
		t.Fatalf("confirm delivery: %v", err)
	}
	return order
}

func TestCreateOrderPricingAndStock(t *testing.T) {
	env := newTestEnv(t)

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-pricing")

	if resp.SubtotalPaise != 100000 {
		t.Fatalf("subtotal = %d, want 100000", resp.SubtotalPaise)
	}
	if resp.CommissionPaise != 8000 {
		t.Fatalf("commission = %d, want 8000", resp.CommissionPaise)
	}
	if resp.PlatformFeePaise != 1000 {
		t.Fatalf("platform fee = %d, want 1000", resp.PlatformFeePaise)
	}
	if resp.SellerPayoutPaise != 91000 {
		t.Fatalf("payout = %d, want 91000", resp.SellerPayoutPaise)
	}
	if resp.PaymentStatus != enums.PaymentStatusCODPending {
		t.Fatalf("payment status = %s, want cod_pending", resp.PaymentStatus)
	}

	product := env.reloadProduct(t)
	if product.Stock != 4 || product.ReservedStock != 1 {
		t.Fatalf("stock = %d/%d, want 4 reserved 1", product.Stock, product.ReservedStock)
	}
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)

	first := env.createOrder(t, enums.PaymentMethodCOD, "key-replay")
	second := env.createOrder(t, enums.PaymentMethodCOD, "key-replay")

	if first.OrderID != second.OrderID || first.OrderNumber != second.OrderNumber {
		t.Fatalf("replay returned a different order: %v vs %v", first, second)
	}

	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one order, got %d", count)
	}

	product := env.reloadProduct(t)
	if product.ReservedStock != 1 {
		t.Fatalf("replay reserved stock again: %d", product.ReservedStock)
	}
}

func TestCreateOrderRollsBackStockOnGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.failNext = true

	_, err := env.svc.Create(context.Background(), CreateOrderInput{
		IdempotencyKey: "key-gateway",
		BuyerID:        env.buyerID,
		ProductID:      env.product.ID,
		Qty:            1,
		PaymentMethod:  enums.PaymentMethodOnline,
		AddressID:      "addr-1",
	})
	if err == nil {
		t.Fatal("expected gateway failure to fail creation")
	}

	product := env.reloadProduct(t)
	if product.Stock != 5 || product.ReservedStock != 0 {
		t.Fatalf("stock not rolled back: %d/%d", product.Stock, product.ReservedStock)
	}

	// The idempotency slot was cleared, so a retry with the same key works.
	env.gateway.failNext = false
	resp := env.createOrder(t, enums.PaymentMethodOnline, "key-gateway")
	if resp.GatewayOrderID == nil {
		t.Fatal("expected gateway order id on retry")
	}
	if resp.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("payment status = %s, want pending", resp.PaymentStatus)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), CreateOrderInput{
		IdempotencyKey: "key-stock",
		BuyerID:        env.buyerID,
		ProductID:      env.product.ID,
		Qty:            6,
		PaymentMethod:  enums.PaymentMethodCOD,
		AddressID:      "addr-1",
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	var appErr *pkgerrors.Error
	if appErr = pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	product := env.reloadProduct(t)
	if product.Stock != 5 || product.ReservedStock != 0 {
		t.Fatalf("stock mutated on failed reserve: %d/%d", product.Stock, product.ReservedStock)
	}
}

func TestDeliveryFlowWithOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-delivery")

	if _, err := env.svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, TrackingID: "AWB1",
	}); err != nil {
		t.Fatalf("mark shipped: %v", err)
	}

	// Shipping twice is a state conflict.
	_, err := env.svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, TrackingID: "AWB2",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double ship, got %v", err)
	}

	code, err := env.svc.GenerateDeliveryOTP(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("otp length = %d, want 6", len(code))
	}

	// A second OTP while one is live is rejected.
	if _, err := env.svc.GenerateDeliveryOTP(ctx, resp.OrderID); err == nil {
		t.Fatal("expected second otp generation to fail")
	}

	// Wrong code is rejected without moving the order.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := env.svc.ConfirmDelivery(ctx, ConfirmDeliveryInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, OTP: wrong,
	}); err == nil {
		t.Fatal("expected otp mismatch to fail")
	}

	order, err := env.svc.ConfirmDelivery(ctx, ConfirmDeliveryInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, OTP: code,
	})
	if err != nil {
		t.Fatalf("confirm delivery: %v", err)
	}
	if order.Status != enums.OrderStatusDelivered {
		t.Fatalf("status = %s, want delivered", order.Status)
	}
	if order.DeliveryOTPHash != nil || order.OTPGeneratedAt != nil {
		t.Fatal("otp material not cleared after delivery")
	}

	product := env.reloadProduct(t)
	if product.Stock != 4 || product.ReservedStock != 0 {
		t.Fatalf("reserved stock not burned: %d/%d", product.Stock, product.ReservedStock)
	}
}

func TestConfirmDeliveryRejectsExpiredOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-otp-expiry")
	if _, err := env.svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, TrackingID: "AWB1",
	}); err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
	code, err := env.svc.GenerateDeliveryOTP(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}

	env.now = env.now.Add(31 * time.Minute)
	_, err = env.svc.ConfirmDelivery(ctx, ConfirmDeliveryInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, OTP: code,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for expired otp, got %v", err)
	}
}

func TestCODReturnToOriginIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-rto")

	if err := env.svc.CODReturnToOrigin(ctx, RTOInput{OrderID: resp.OrderID, Reason: "buyer refused"}); err != nil {
		t.Fatalf("rto: %v", err)
	}
	// Second run is a no-op.
	if err := env.svc.CODReturnToOrigin(ctx, RTOInput{OrderID: resp.OrderID, Reason: "buyer refused"}); err != nil {
		t.Fatalf("rto replay: %v", err)
	}

	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != enums.OrderStatusRTO {
		t.Fatalf("status = %s, want rto", order.Status)
	}
	if order.RTOPenaltyPaise != 15000 {
		t.Fatalf("penalty = %d, want 15000", order.RTOPenaltyPaise)
	}

	entries, err := env.ledger.ListByOrder(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	penalties, locks := 0, 0
	for _, entry := range entries {
		switch entry.Type {
		case enums.LedgerEntryCODRTOPenalty:
			penalties++
		case enums.LedgerEntryCommissionLock:
			locks++
		}
	}
	if penalties != 1 || locks != 1 {
		t.Fatalf("ledger entries: %d penalties, %d locks; want 1 each", penalties, locks)
	}

	product := env.reloadProduct(t)
	if product.Stock != 5 || product.ReservedStock != 0 {
		t.Fatalf("stock not restored after rto: %d/%d", product.Stock, product.ReservedStock)
	}

	buyer, err := env.users.FindByID(ctx, env.buyerID)
	if err != nil {
		t.Fatalf("reload buyer: %v", err)
	}
	if buyer.BuyerRisk.CODRTOCount != 1 {
		t.Fatalf("buyer rto count = %d, want 1", buyer.BuyerRisk.CODRTOCount)
	}
}

func TestCODDisabledAfterRepeatedRTO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp := env.createOrder(t, enums.PaymentMethodCOD, fmt.Sprintf("key-rto-%d", i))
		if err := env.svc.CODReturnToOrigin(ctx, RTOInput{OrderID: resp.OrderID, Reason: "refused"}); err != nil {
			t.Fatalf("rto %d: %v", i, err)
		}
	}

	buyer, err := env.users.FindByID(ctx, env.buyerID)
	if err != nil {
		t.Fatalf("reload buyer: %v", err)
	}
	if !buyer.BuyerRisk.CODDisabled {
		t.Fatal("expected cod to be disabled after two rtos")
	}

	_, err = env.svc.Create(ctx, CreateOrderInput{
		IdempotencyKey: "key-cod-blocked",
		BuyerID:        env.buyerID,
		ProductID:      env.product.ID,
		Qty:            1,
		PaymentMethod:  enums.PaymentMethodCOD,
		AddressID:      "addr-1",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for cod-disabled buyer, got %v", err)
	}
}

func TestReturnWindowBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-window")
	env.deliverOrder(t, resp.OrderID)

	// Day 6: inside the window.
	env.now = env.now.Add(6 * 24 * time.Hour)
	order, err := env.svc.RequestReturn(ctx, RequestReturnInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("request return day 6: %v", err)
	}
	if order.ReturnStatus != enums.ReturnStatusRequested {
		t.Fatalf("return status = %s, want requested", order.ReturnStatus)
	}
	if order.SellerActionDeadline == nil {
		t.Fatal("seller action deadline not set")
	}
	want := env.now.Add(48 * time.Hour)
	if !order.SellerActionDeadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", order.SellerActionDeadline, want)
	}

	// A second return on the same order is rejected.
	if _, err := env.svc.RequestReturn(ctx, RequestReturnInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, Reason: "damaged",
	}); err == nil {
		t.Fatal("expected second return request to fail")
	}
}

func TestReturnWindowClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-window-late")
	env.deliverOrder(t, resp.OrderID)

	// Day 8: past the window.
	env.now = env.now.Add(8 * 24 * time.Hour)
	_, err := env.svc.RequestReturn(ctx, RequestReturnInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, Reason: "damaged",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error past window, got %v", err)
	}
}

func TestSellerReturnActionDecidesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-decide")
	env.deliverOrder(t, resp.OrderID)
	if _, err := env.svc.RequestReturn(ctx, RequestReturnInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, Reason: "wrong_item",
	}); err != nil {
		t.Fatalf("request return: %v", err)
	}

	// Reject without a reason is invalid.
	_, err := env.svc.SellerReturnAction(ctx, SellerReturnActionInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, Accept: false,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	order, err := env.svc.SellerReturnAction(ctx, SellerReturnActionInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, Accept: true,
	})
	if err != nil {
		t.Fatalf("approve return: %v", err)
	}
	if order.ReturnStatus != enums.ReturnStatusApproved {
		t.Fatalf("return status = %s, want approved", order.ReturnStatus)
	}
	if order.SellerReturnAction != enums.SellerReturnActionApproved {
		t.Fatalf("action = %s, want approved", order.SellerReturnAction)
	}

	// The decision lands once.
	if _, err := env.svc.SellerReturnAction(ctx, SellerReturnActionInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, Accept: false, RejectReason: "late",
	}); err == nil {
		t.Fatal("expected second decision to fail")
	}
}

func TestSystemRefundOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-refund")
	env.deliverOrder(t, resp.OrderID)
	if _, err := env.svc.RequestReturn(ctx, RequestReturnInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, Reason: "damaged",
	}); err != nil {
		t.Fatalf("request return: %v", err)
	}
	if _, err := env.svc.SellerReturnAction(ctx, SellerReturnActionInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, Accept: true,
	}); err != nil {
		t.Fatalf("approve return: %v", err)
	}

	if err := env.svc.SystemRefund(ctx, resp.OrderID); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := env.svc.SystemRefund(ctx, resp.OrderID); err != nil {
		t.Fatalf("refund replay: %v", err)
	}

	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.RefundStatus != enums.RefundStatusCompleted {
		t.Fatalf("refund status = %s, want completed", order.RefundStatus)
	}
	if order.RefundPaise != resp.SellerPayoutPaise {
		t.Fatalf("refund = %d, want %d", order.RefundPaise, resp.SellerPayoutPaise)
	}

	entries, err := env.ledger.ListByOrder(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	refunds := 0
	for _, entry := range entries {
		if entry.Type == enums.LedgerEntryReturnRefund {
			refunds++
		}
	}
	if refunds != 1 {
		t.Fatalf("refund entries = %d, want exactly 1", refunds)
	}
}

func TestAutoRejectReturnPastDeadline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-auto-reject")
	env.deliverOrder(t, resp.OrderID)
	if _, err := env.svc.RequestReturn(ctx, RequestReturnInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, Reason: "damaged",
	}); err != nil {
		t.Fatalf("request return: %v", err)
	}

	// Before the deadline nothing happens.
	rejected, err := env.svc.AutoRejectReturn(ctx, resp.OrderID)
	if err != nil || rejected {
		t.Fatalf("expected no-op before deadline, got %v %v", rejected, err)
	}

	env.now = env.now.Add(49 * time.Hour)
	rejected, err = env.svc.AutoRejectReturn(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("auto reject: %v", err)
	}
	if !rejected {
		t.Fatal("expected auto reject past deadline")
	}

	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.ReturnStatus != enums.ReturnStatusRejected {
		t.Fatalf("return status = %s, want rejected", order.ReturnStatus)
	}
	if order.SellerReturnAction != enums.SellerReturnActionAutoRejected {
		t.Fatalf("action = %s, want auto_rejected", order.SellerReturnAction)
	}
}

func TestCancelExpiredOnlineOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodOnline, "key-expiry")

	cancelled, err := env.svc.CancelExpiredOnlineOrder(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("cancel expired: %v", err)
	}
	if !cancelled {
		t.Fatal("expected cancellation")
	}

	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", order.Status)
	}

	product := env.reloadProduct(t)
	if product.Stock != 5 || product.ReservedStock != 0 {
		t.Fatalf("stock not restored: %d/%d", product.Stock, product.ReservedStock)
	}

	// Already cancelled: no-op.
	cancelled, err = env.svc.CancelExpiredOnlineOrder(ctx, resp.OrderID)
	if err != nil || cancelled {
		t.Fatalf("expected no-op on second cancel, got %v %v", cancelled, err)
	}
}

func TestCancelExpiredOnlineOrderRecoversFromReleaseFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fails := 1
	svc := env.rebuildService(t, func(d *Deps) {
		d.Inventory = &flakyInventory{inner: d.Inventory, failReleases: &fails, failCommits: new(int)}
	})

	resp := env.createOrder(t, enums.PaymentMethodOnline, "key-expiry-flaky")

	if _, err := svc.CancelExpiredOnlineOrder(ctx, resp.OrderID); err == nil {
		t.Fatal("expected release failure to surface")
	}

	// The failed release rolled the flip back: the order is still created and
	// its unit still reserved, so the sweep can retry.
	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != enums.OrderStatusCreated {
		t.Fatalf("status = %s, want created after rollback", order.Status)
	}
	product := env.reloadProduct(t)
	if product.Stock != 4 || product.ReservedStock != 1 {
		t.Fatalf("reservation disturbed: %d/%d", product.Stock, product.ReservedStock)
	}

	cancelled, err := svc.CancelExpiredOnlineOrder(ctx, resp.OrderID)
	if err != nil || !cancelled {
		t.Fatalf("retry should cancel: %v %v", cancelled, err)
	}
	product = env.reloadProduct(t)
	if product.Stock != 5 || product.ReservedStock != 0 {
		t.Fatalf("stock not restored: %d/%d", product.Stock, product.ReservedStock)
	}
}

func TestConfirmDeliveryRollsBackOnStockFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	commits := 1
	svc := env.rebuildService(t, func(d *Deps) {
		d.Inventory = &flakyInventory{inner: d.Inventory, failReleases: new(int), failCommits: &commits}
	})

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-deliver-flaky")
	if _, err := svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, TrackingID: "AWB9", CourierName: "delhivery",
	}); err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
	code, err := svc.GenerateDeliveryOTP(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}

	if _, err := svc.ConfirmDelivery(ctx, ConfirmDeliveryInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, OTP: code,
	}); err == nil {
		t.Fatal("expected stock failure to surface")
	}

	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != enums.OrderStatusDeliveryOTPPending {
		t.Fatalf("status = %s, want delivery_otp_pending after rollback", order.Status)
	}
	if order.DeliveryOTPHash == nil {
		t.Fatal("otp hash should survive the rollback")
	}

	delivered, err := svc.ConfirmDelivery(ctx, ConfirmDeliveryInput{
		OrderID: resp.OrderID, BuyerID: env.buyerID, OTP: code,
	})
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if delivered.Status != enums.OrderStatusDelivered {
		t.Fatalf("status = %s, want delivered", delivered.Status)
	}
	product := env.reloadProduct(t)
	if product.Stock != 4 || product.ReservedStock != 0 {
		t.Fatalf("delivery should burn the reserved unit only: %d/%d", product.Stock, product.ReservedStock)
	}
}

func TestCreateOrderCompletionRetriesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	svc := env.rebuildService(t, func(d *Deps) {
		d.Idempotency = &flakyIdempotency{Service: d.Idempotency, failCompletes: 1}
	})

	input := CreateOrderInput{
		IdempotencyKey: "key-flaky-complete",
		BuyerID:        env.buyerID,
		ProductID:      env.product.ID,
		Qty:            1,
		PaymentMethod:  enums.PaymentMethodCOD,
		AddressID:      "addr-1",
	}
	resp, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The retry completed the record: a replay serves the stored response
	// instead of creating again.
	replay, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.OrderID != resp.OrderID {
		t.Fatalf("replay order = %s, want %s", replay.OrderID, resp.OrderID)
	}
	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("orders = %d, want 1", count)
	}
}

func TestCreateOrderSurfacesCompletionFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	svc := env.rebuildService(t, func(d *Deps) {
		d.Idempotency = &flakyIdempotency{Service: d.Idempotency, failCompletes: 2}
	})

	_, err := svc.Create(ctx, CreateOrderInput{
		IdempotencyKey: "key-dead-complete",
		BuyerID:        env.buyerID,
		ProductID:      env.product.ID,
		Qty:            1,
		PaymentMethod:  enums.PaymentMethodCOD,
		AddressID:      "addr-1",
	})
	if err == nil {
		t.Fatal("expected completion failure to surface")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInternal {
		t.Fatalf("error = %v, want internal", err)
	}

	// The order itself committed before the completion failed.
	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("orders = %d, want 1", count)
	}
}

func TestMarkPaidFromGateway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodOnline, "key-paid")
	if resp.GatewayOrderID == nil {
		t.Fatal("expected gateway order id")
	}

	if err := env.svc.MarkPaidFromGateway(ctx, *resp.GatewayOrderID, "pay_1", "bad-signature"); err == nil {
		t.Fatal("expected bad signature to fail")
	}

	if err := env.svc.MarkPaidFromGateway(ctx, *resp.GatewayOrderID, "pay_1", "good-signature"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	// Replays are harmless.
	if err := env.svc.MarkPaidFromGateway(ctx, *resp.GatewayOrderID, "pay_1", "good-signature"); err != nil {
		t.Fatalf("mark paid replay: %v", err)
	}

	order, err := env.svc.Get(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", order.PaymentStatus)
	}
	if order.GatewayPaymentID == nil || *order.GatewayPaymentID != "pay_1" {
		t.Fatalf("gateway payment id = %v, want pay_1", order.GatewayPaymentID)
	}
}

func TestOnlineOrderCannotShipUnpaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodOnline, "key-unpaid-ship")

	_, err := env.svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, TrackingID: "AWB1",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unpaid online order, got %v", err)
	}

	if err := env.svc.MarkPaidFromGateway(ctx, *resp.GatewayOrderID, "pay_9", "good-signature"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := env.svc.MarkShipped(ctx, MarkShippedInput{
		OrderID: resp.OrderID, SellerID: env.sellerID, TrackingID: "AWB1",
	}); err != nil {
		t.Fatalf("mark shipped after payment: %v", err)
	}
}

func TestTimelineRecordsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createOrder(t, enums.PaymentMethodCOD, "key-timeline")
	env.deliverOrder(t, resp.OrderID)

	events, err := env.svc.Timeline(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}

	seen := map[enums.TimelineEvent]bool{}
	for _, event := range events {
		seen[event.Event] = true
	}
	for _, want := range []enums.TimelineEvent{
		enums.TimelineOrderCreated,
		enums.TimelineOrderShipped,
		enums.TimelineDeliveryOTPGenerated,
		enums.TimelineOrderDelivered,
	} {
		if !seen[want] {
			t.Fatalf("timeline missing %s (got %v)", want, events)
		}
	}
}
