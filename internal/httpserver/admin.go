package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

// AdminHTTP is the JSON surface for catalog and order upkeep.
type AdminHTTP struct {
	Catalog *service.CatalogService
	Orders  *service.OrderService
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		return adminFail(c, l, "product_create_error", err)
	}

	l.Info("create_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *AdminHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_product")

	id, ok := idParam(c, "id")
	if !ok {
		l.Warn("product_patch_error", "status", 400, "reason", "id is not a number", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a number")
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Catalog.PatchProduct(ctx, id, req)
	if err != nil {
		return adminFail(c, l, "product_patch_error", err)
	}

	l.Info("patch_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *AdminHTTP) PatchOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_order_status")

	id, ok := idParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a number")
	}
	var req transport.PatchOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("order_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return adminFail(c, l, "order_status_error", err)
	}

	l.Info("order_status_success", "order_id", order.ID, "order_status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func adminFail(c echo.Context, l *slog.Logger, event string, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		l.Warn(event, "status", 422, "reason", "invalid body", "error", err)
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": verr.Fields})
	}
	return fail(l, event, err, "record")
}
