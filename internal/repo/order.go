package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/models"
)

func (r *GormRepo) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateOrder inserts the order together with its items.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrderStatus moves the order from one status to another. It reports false
// when the order was no longer in the expected status.
func (r *GormRepo) SetOrderStatus(ctx context.Context, id uint, from, to models.OrderStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
