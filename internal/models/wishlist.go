package models

import "time"

type WishlistItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                          json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_wishlist_user_product;not null"    json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_wishlist_user_product;not null"    json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE"                       json:"product,omitempty"`
	AddedAt   time.Time `gorm:"autoCreateTime;not null;index"                     json:"added_at"`
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}
