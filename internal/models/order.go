package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderFulfilled, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderFulfilled, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	OrderNumber      string          `gorm:"size:6;uniqueIndex;not null"       json:"order_number"`
	UserID           *uint           `gorm:"index"                             json:"user_id"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(10,2);not null"       json:"total_amount"`
	CustomerName     string          `gorm:"size:200;not null"                 json:"customer_name"`
	CustomerEmail    string          `gorm:"size:254;not null"                 json:"customer_email"`
	CustomerAddress  string          `gorm:"type:text;not null"                json:"customer_address"`
	CustomerPhone    string          `gorm:"size:20;not null"                  json:"customer_phone"`
	ReceiptTokenHash string          `gorm:"size:64"                           json:"-"`
	Status           OrderStatus     `gorm:"size:20;not null;index"            json:"status"`
	Items            []OrderItem     `gorm:"constraint:OnDelete:CASCADE"       json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

var ErrOrderItemImmutable = errors.New("order items are read-only after creation")

// OrderItem keeps the product name and unit price as they were at purchase.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"            json:"id"`
	OrderID     uint            `gorm:"index;not null"                      json:"order_id"`
	ProductID   uint            `gorm:"index;not null"                      json:"product_id"`
	ProductName string          `gorm:"size:200;not null"                   json:"product_name"`
	Quantity    int             `gorm:"not null;check:quantity >= 1"        json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"         json:"price"`
}

func (OrderItem) BeforeUpdate(tx *gorm.DB) error {
	return ErrOrderItemImmutable
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
