package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/models"
)

// AddWishlistItem finds or creates the (user, product) entry. created is false
// when the entry was already there.
func (r *GormRepo) AddWishlistItem(ctx context.Context, userID, productID uint) (*models.WishlistItem, bool, error) {
	item := models.WishlistItem{UserID: userID, ProductID: productID}
	created := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Product{}, productID).Error; err != nil {
			return err
		}
		res := tx.Where(models.WishlistItem{UserID: userID, ProductID: productID}).FirstOrCreate(&item)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	if IsUniqueViolation(err) {
		// lost a race with a concurrent add of the same pair
		item = models.WishlistItem{}
		if err := r.DB.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
			return nil, false, err
		}
		return &item, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &item, created, nil
}

func (r *GormRepo) RemoveWishlistItem(ctx context.Context, userID, entryID uint) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", entryID, userID).First(&item).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", entryID, userID).Delete(&models.WishlistItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) ListWishlist(ctx context.Context, userID uint) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("added_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
