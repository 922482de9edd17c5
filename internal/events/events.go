package events

import "time"

const (
	TopicOrders   = "order_events"
	TopicWishlist = "wishlist_events"
	TopicUsers    = "user_events"
	TopicProducts = "product_events"
)

func Topics() []string {
	return []string{TopicOrders, TopicWishlist, TopicUsers, TopicProducts}
}

type OrderCreated struct {
	Type        string    `json:"type"`
	OrderID     uint      `json:"orderID"`
	OrderNumber string    `json:"orderNumber"`
	UserID      *uint     `json:"userID,omitempty"`
	Total       string    `json:"total"`
	Items       int       `json:"items"`
	At          time.Time `json:"at"`
}

type OrderStatusChanged struct {
	Type    string    `json:"type"`
	OrderID uint      `json:"orderID"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      time.Time `json:"at"`
}

type WishlistChanged struct {
	Type      string    `json:"type"`
	UserID    uint      `json:"userID"`
	ProductID uint      `json:"productID"`
	EntryID   uint      `json:"entryID"`
	At        time.Time `json:"at"`
}

type UserEvent struct {
	Type     string    `json:"type"`
	UserID   uint      `json:"userID"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

type ProductEvent struct {
	Type      string    `json:"type"`
	ProductID uint      `json:"productID"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	IsActive  bool      `json:"isActive"`
	At        time.Time `json:"at"`
}
