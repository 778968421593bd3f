package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// Repository manages order persistence. Lifecycle moves happen through
// conditional updates so concurrent writers cannot double-apply a
// transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	UpdateWhereStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, fields map[string]any) (bool, error)
	UpdateWhereReturnStatus(ctx context.Context, id uuid.UUID, from enums.ReturnStatus, fields map[string]any) (bool, error)
	UpdateWherePickupStatus(ctx context.Context, id uuid.UUID, from enums.PickupStatus, fields map[string]any) (bool, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, paidAt time.Time) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, amountPaise int64, at time.Time) (bool, error)
	MarkReserveReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListForSettlement(ctx context.Context, limit int) ([]models.Order, error)
	ListForReserveRelease(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error)
	ListApprovedRefundPending(ctx context.Context, limit int) ([]models.Order, error)
	ListReturnDeadlinePassed(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	ListExpiredOnlinePayments(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
	CountSellerFaultReturns(ctx context.Context, sellerID uuid.UUID, since time.Time) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateWhereStatus applies fields only when the order is still in one of
// the expected source states. False means someone else moved it first.
func (r *repository) UpdateWhereStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// UpdateWhereReturnStatus applies fields only while the return sub-aggregate
// is still in the expected state.
func (r *repository) UpdateWhereReturnStatus(ctx context.Context, id uuid.UUID, from enums.ReturnStatus, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND return_status = ?", id, from).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) UpdateWherePickupStatus(ctx context.Context, id uuid.UUID, from enums.PickupStatus, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND pickup_status = ?", id, from).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// MarkPaid flips an online order to paid exactly once.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status":     enums.PaymentStatusPaid,
			"gateway_payment_id": gatewayPaymentID,
			"paid_at":            paidAt,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkRefunded records refund completion exactly once.
func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, amountPaise int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND refund_status = ?", id, enums.RefundStatusNone).
		Updates(map[string]any{
			"refund_status": enums.RefundStatusCompleted,
			"refund_paise":  amountPaise,
			"refunded_at":   at,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkReserveReleased flips the reserve flag exactly once.
func (r *repository) MarkReserveReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND reserve_released = ?", id, false).
		Updates(map[string]any{
			"reserve_released":    true,
			"reserve_released_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ListForSettlement(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND settlement_status = ? AND payment_status IN ?",
			enums.OrderStatusDelivered,
			enums.SettlementStatusPending,
			[]enums.PaymentStatus{enums.PaymentStatusPaid, enums.PaymentStatusCODPending}).
		Order("delivered_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListForReserveRelease(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status IN ? AND reserve_released = ? AND reserve_paise > 0 AND delivered_at < ? AND return_status <> ?",
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusSettled},
			false,
			deliveredBefore,
			enums.ReturnStatusApproved).
		Order("delivered_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListApprovedRefundPending(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("return_status = ? AND refund_status = ?",
			enums.ReturnStatusApproved, enums.RefundStatusNone).
		Order("return_requested_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListReturnDeadlinePassed(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("return_status = ? AND seller_action_deadline < ?",
			enums.ReturnStatusRequested, now).
		Order("seller_action_deadline ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListExpiredOnlinePayments(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND payment_method = ? AND payment_status = ? AND created_at < ?",
			enums.OrderStatusCreated,
			enums.PaymentMethodOnline,
			enums.PaymentStatusPending,
			createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CountSellerFaultReturns feeds the trust engine's freeze rule.
func (r *repository) CountSellerFaultReturns(ctx context.Context, sellerID uuid.UUID, since time.Time) (int, error) {
	reasons := make([]string, 0, len(enums.SellerFaultReturnReasons))
	for reason := range enums.SellerFaultReturnReasons {
		reasons = append(reasons, reason)
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("seller_id = ? AND return_requested_at >= ? AND return_reason IN ?",
			sellerID, since, reasons).
		Count(&count).Error
	return int(count), err
}
