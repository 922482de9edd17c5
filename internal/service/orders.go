package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/identity"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/tokens"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

const (
	defaultOrderNumberAttempts = 10
	maxLineQuantity            = 99
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	// Created is incremented for every committed order. Optional.
	Created prometheus.Counter

	// NewOrderNumber defaults to NewOrderNumber.
	NewOrderNumber func() (string, error)
	MaxAttempts    int
}

type CheckoutResult struct {
	Order *models.Order
	// ReceiptToken lets a guest open the receipt later. Only its hash is stored.
	ReceiptToken string
}

type checkoutLine struct {
	productID uint
	quantity  int
}

var errOrderNumberTaken = errors.New("order number taken")

// Checkout validates the form and creates a pending order in one transaction.
// Prices come from the catalog, never from the form.
func (s *OrderService) Checkout(ctx context.Context, who identity.Identity, form transport.CheckoutForm) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "orders.checkout")

	form.Normalize()
	if err := validateStruct(form); err != nil {
		return nil, err
	}
	lines, err := checkoutLines(form)
	if err != nil {
		return nil, err
	}

	receiptToken, err := newReceiptToken()
	if err != nil {
		return nil, err
	}

	gen := s.NewOrderNumber
	if gen == nil {
		gen = NewOrderNumber
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultOrderNumberAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		number, err := gen()
		if err != nil {
			return nil, err
		}

		order := &models.Order{
			OrderNumber:      number,
			UserID:           identity.UserID(who),
			CustomerName:     form.Name,
			CustomerEmail:    form.Email,
			CustomerAddress:  form.Address,
			CustomerPhone:    form.Phone,
			ReceiptTokenHash: tokens.Sha256Hex(receiptToken),
			Status:           models.OrderPending,
		}

		err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
			taken, err := tx.OrderNumberExists(ctx, number)
			if err != nil {
				return err
			}
			if taken {
				return errOrderNumberTaken
			}

			items, total, err := materializeLines(ctx, tx, lines)
			if err != nil {
				return err
			}
			order.Items = items
			order.TotalAmount = total

			return tx.CreateOrder(ctx, order)
		})

		switch {
		case err == nil:
			s.afterCheckout(ctx, order)
			return &CheckoutResult{Order: order, ReceiptToken: receiptToken}, nil
		case errors.Is(err, errOrderNumberTaken) || repo.IsUniqueViolation(err):
			l.Warn("order_number_collision", "attempt", attempt, "order_number", number)
		default:
			return nil, err
		}
	}

	l.Error("order_number_exhausted", "attempts", attempts)
	return nil, ErrOrderNumberExhausted
}

// checkoutLines merges repeated products and drops lines left at zero.
func checkoutLines(form transport.CheckoutForm) ([]checkoutLine, error) {
	if len(form.ProductIDs) != len(form.Quantities) {
		return nil, invalid("items", "Each item needs a product and a quantity.")
	}

	var lines []checkoutLine
	index := make(map[uint]int, len(form.ProductIDs))
	for i, id := range form.ProductIDs {
		q := form.Quantities[i]
		if q < 0 {
			return nil, invalid("quantity", "Ensure this value is greater than or equal to 0.")
		}
		if q > maxLineQuantity {
			return nil, tooMany()
		}
		if q == 0 {
			continue
		}
		at, ok := index[id]
		if !ok {
			index[id] = len(lines)
			lines = append(lines, checkoutLine{productID: id, quantity: q})
			continue
		}
		// both sides are capped, so the sum cannot wrap
		if lines[at].quantity+q > maxLineQuantity {
			return nil, tooMany()
		}
		lines[at].quantity += q
	}
	return lines, nil
}

func tooMany() *ValidationError {
	return invalid("quantity", fmt.Sprintf("Ensure this value is less than or equal to %d.", maxLineQuantity))
}

func materializeLines(ctx context.Context, tx *repo.GormRepo, lines []checkoutLine) ([]models.OrderItem, decimal.Decimal, error) {
	total := decimal.Zero
	if len(lines) == 0 {
		return nil, total, nil
	}

	ids := make([]uint, len(lines))
	for i, ln := range lines {
		ids[i] = ln.productID
	}
	products, err := tx.GetActiveProductsByIDs(ctx, ids)
	if err != nil {
		return nil, total, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, ln := range lines {
		p, ok := byID[ln.productID]
		if !ok {
			return nil, total, invalid("items", fmt.Sprintf("Product %d is not available.", ln.productID))
		}
		item := models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    ln.quantity,
			Price:       p.Price,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, total, nil
}

func (s *OrderService) afterCheckout(ctx context.Context, order *models.Order) {
	if s.Created != nil {
		s.Created.Inc()
	}
	logging.FromContext(ctx).Info("order_created", "order_id", order.ID, "order_number", order.OrderNumber, "items", len(order.Items))
	publish(ctx, s.Events, events.TopicOrders, order.OrderNumber, events.OrderCreated{
		Type:        "order_created",
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.TotalAmount.StringFixed(2),
		Items:       len(order.Items),
		At:          time.Now().UTC(),
	})
}

// Receipt returns the order when the caller owns it, is an admin, or holds
// the receipt token issued at checkout. Any other caller gets ErrNotFound.
func (s *OrderService) Receipt(ctx context.Context, who identity.Identity, orderID uint, receiptToken string) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if !canViewReceipt(who, order, receiptToken) {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	return order, nil
}

func canViewReceipt(who identity.Identity, order *models.Order, receiptToken string) bool {
	if u, ok := identity.Authenticated(who); ok {
		if u.IsAdmin() {
			return true
		}
		if order.UserID != nil && *order.UserID == u.ID {
			return true
		}
	}
	if receiptToken == "" || order.ReceiptTokenHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tokens.Sha256Hex(receiptToken)), []byte(order.ReceiptTokenHash)) == 1
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, invalid("status", "Select a valid status.")
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	prev := order.Status
	if !prev.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", ErrConflict, prev, next)
	}

	ok, err := s.Repo.SetOrderStatus(ctx, orderID, prev, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order status changed concurrently", ErrConflict)
	}

	publish(ctx, s.Events, events.TopicOrders, order.OrderNumber, events.OrderStatusChanged{
		Type:    "order_status_changed",
		OrderID: order.ID,
		From:    string(prev),
		To:      string(next),
		At:      time.Now().UTC(),
	})

	updated, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func ReceiptCookieName(orderID uint) string {
	return "receipt_" + strconv.FormatUint(uint64(orderID), 10)
}

func newReceiptToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("receipt token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
