package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"         json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null"    json:"name"`
	Slug string `gorm:"size:100;uniqueIndex;not null"    json:"slug"`
}

// Product is shown to shoppers only while IsActive is set.
type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"                  json:"id"`
	Name        string          `gorm:"size:200;not null"                         json:"name"`
	Slug        string          `gorm:"size:200;uniqueIndex;not null"             json:"slug"`
	Description string          `gorm:"type:text"                                 json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null;check:price >= 0" json:"price"`
	CategoryID  uint            `gorm:"index;not null"                            json:"category_id"`
	Category    *Category       `gorm:"constraint:OnDelete:RESTRICT"              json:"category,omitempty"`
	IsActive    bool            `gorm:"not null;index"                            json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}
