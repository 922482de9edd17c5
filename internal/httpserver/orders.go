package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/auth"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/internal/tokens"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

const receiptCookieTTL = 30 * 24 * time.Hour

type OrderHTTP struct {
	site
	Svc     *service.OrderService
	Catalog *service.CatalogService
}

type paymentPage struct {
	Form       transport.CheckoutForm
	Errors     map[string]string
	Products   []models.Product
	Quantities map[uint]int
}

type receiptPage struct {
	Order *models.Order
}

func (h *OrderHTTP) PaymentForm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.payment_form")

	products, err := h.Catalog.ActiveProducts(ctx)
	if err != nil {
		return fail(l, "payment_form_failed", err, "products")
	}
	return h.render(c, http.StatusOK, "payment", paymentPage{Products: products})
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.checkout")

	var form transport.CheckoutForm
	if err := c.Bind(&form); err != nil {
		// only the item lists can fail to bind; keep what was typed
		l.Warn("checkout_failed", "status", 422, "reason", "unreadable items", "error", err)
		form = transport.CheckoutForm{
			Name:    c.FormValue("name"),
			Email:   c.FormValue("email"),
			Address: c.FormValue("address"),
			Phone:   c.FormValue("phone"),
		}
		return h.renderPayment(c, form, map[string]string{"quantity": "Enter a whole number."})
	}

	res, err := h.Svc.Checkout(ctx, auth.CurrentIdentity(c), form)
	if err != nil {
		if fields, ok := fieldErrors(err); ok {
			l.Warn("checkout_failed", "status", 422, "reason", "invalid form", "fields", len(fields))
			return h.renderPayment(c, form, fields)
		}
		if errors.Is(err, service.ErrOrderNumberExhausted) {
			l.Error("checkout_failed", "status", 500, "reason", "no order number", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "We could not place your order, please try again.")
		}
		return fail(l, "checkout_failed", err, "order")
	}

	c.SetCookie(tokens.CreateCookie(
		service.ReceiptCookieName(res.Order.ID),
		res.ReceiptToken,
		"/receipt/",
		time.Now().Add(receiptCookieTTL),
		h.CookieSecure,
	))
	h.flash(c, "Your order has been placed.")
	l.Info("checkout_success", "order_id", res.Order.ID)
	return c.Redirect(http.StatusSeeOther, "/receipt/"+strconv.FormatUint(uint64(res.Order.ID), 10)+"/")
}

// renderPayment shows the form again with what the customer typed, minus card data.
func (h *OrderHTTP) renderPayment(c echo.Context, form transport.CheckoutForm, fields map[string]string) error {
	products, err := h.Catalog.ActiveProducts(c.Request().Context())
	if err != nil {
		return fail(logging.FromContext(c.Request().Context()), "payment_form_failed", err, "products")
	}

	qty := make(map[uint]int, len(form.ProductIDs))
	for i, id := range form.ProductIDs {
		if i < len(form.Quantities) {
			qty[id] += form.Quantities[i]
		}
	}
	form.CardNumber, form.CardExpiry, form.CardCVV = "", "", ""

	return h.render(c, http.StatusUnprocessableEntity, "payment", paymentPage{
		Form:       form,
		Errors:     fields,
		Products:   products,
		Quantities: qty,
	})
}

func (h *OrderHTTP) Receipt(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.receipt")

	orderID, ok := idParam(c, "orderId")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Sorry, we couldn't find that order.")
	}

	var token string
	if ck, err := c.Cookie(service.ReceiptCookieName(orderID)); err == nil {
		token = ck.Value
	}

	order, err := h.Svc.Receipt(ctx, auth.CurrentIdentity(c), orderID, token)
	if err != nil {
		return fail(l, "receipt_failed", err, "order")
	}
	return h.render(c, http.StatusOK, "receipt", receiptPage{Order: order})
}
