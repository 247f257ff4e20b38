package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/pagination"
)

// Repository is the order aggregate store. All lifecycle mutations go
// through it; logs and messages are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	SaveItem(ctx context.Context, item *models.OrderItem) error
	DeleteItem(ctx context.Context, orderID, itemID uuid.UUID) error
	SumItems(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	ListByBuyer(ctx context.Context, params ListOrdersQuery) ([]models.Order, *pagination.Cursor, error)
	ListByShop(ctx context.Context, params ListOrdersQuery) ([]models.Order, *pagination.Cursor, error)
	AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error
	AppendActionLog(ctx context.Context, log *models.OrderActionLog) error
	ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error)
	ListActionLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderActionLog, error)
	CreateMessage(ctx context.Context, msg *models.OrderMessage) error
	ListMessages(ctx context.Context, orderID uuid.UUID) ([]models.OrderMessage, error)
	CreateReturn(ctx context.Context, ret *models.OrderReturn) error
	FindReturn(ctx context.Context, returnID uuid.UUID) (*models.OrderReturn, error)
	SaveReturn(ctx context.Context, ret *models.OrderReturn) error
	ListReturns(ctx context.Context, orderID uuid.UUID) ([]models.OrderReturn, error)
	CreateRating(ctx context.Context, rating *models.OrderRating) error
	FindRating(ctx context.Context, orderID uuid.UUID) (*models.OrderRating, error)
	CreateIssue(ctx context.Context, issue *models.OrderIssue) error
	ListIssues(ctx context.Context, orderID uuid.UUID) ([]models.OrderIssue, error)
}

// ListOrdersQuery configures order list queries.
type ListOrdersQuery struct {
	BuyerID uuid.UUID
	ShopID  uuid.UUID
	Status  *enums.OrderStatus
	Limit   int
	Cursor  *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
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

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the duration of the caller's
// transaction. Items are loaded separately after the lock is taken.
func (r *repository) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Save(order).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ? AND id = ?", orderID, itemID).
		Delete(&models.OrderItem{}).Error
}

func (r *repository) SumItems(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("SUM(subtotal)").
		Where("order_id = ?", orderID).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) ListByBuyer(ctx context.Context, params ListOrdersQuery) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", params.BuyerID)
	return r.listOrders(ctx, query, params)
}

func (r *repository) ListByShop(ctx context.Context, params ListOrdersQuery) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("shop_id = ?", params.ShopID)
	return r.listOrders(ctx, query, params)
}

func (r *repository) listOrders(ctx context.Context, query *gorm.DB, params ListOrdersQuery) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var results []models.Order
	if err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&results).Error; err != nil {
		return nil, nil, err
	}

	if len(results) > limit {
		next := results[limit]
		results = results[:limit]
		return results, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return results, nil, nil
}

func (r *repository) AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) AppendActionLog(ctx context.Context, log *models.OrderActionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error) {
	var logs []models.OrderStatusLog
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) ListActionLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderActionLog, error) {
	var logs []models.OrderActionLog
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) CreateMessage(ctx context.Context, msg *models.OrderMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repository) ListMessages(ctx context.Context, orderID uuid.UUID) ([]models.OrderMessage, error) {
	var msgs []models.OrderMessage
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *repository) CreateReturn(ctx context.Context, ret *models.OrderReturn) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) FindReturn(ctx context.Context, returnID uuid.UUID) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	if err := r.db.WithContext(ctx).
		Where("id = ?", returnID).
		First(&ret).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &ret, nil
}

func (r *repository) SaveReturn(ctx context.Context, ret *models.OrderReturn) error {
	return r.db.WithContext(ctx).Save(ret).Error
}

func (r *repository) ListReturns(ctx context.Context, orderID uuid.UUID) ([]models.OrderReturn, error) {
	var rets []models.OrderReturn
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rets).Error; err != nil {
		return nil, err
	}
	return rets, nil
}

func (r *repository) CreateRating(ctx context.Context, rating *models.OrderRating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

func (r *repository) FindRating(ctx context.Context, orderID uuid.UUID) (*models.OrderRating, error) {
	var rating models.OrderRating
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&rating).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

func (r *repository) CreateIssue(ctx context.Context, issue *models.OrderIssue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *repository) ListIssues(ctx context.Context, orderID uuid.UUID) ([]models.OrderIssue, error) {
	var issues []models.OrderIssue
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}
