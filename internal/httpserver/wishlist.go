package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/identity"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/auth"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/service"
)

type WishlistHTTP struct {
	site
	Svc *service.WishlistService
}

type wishlistPage struct {
	Items []models.WishlistItem
}

// member returns the signed-in user; routes are wrapped in RequireLogin.
func member(c echo.Context) (identity.User, error) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return identity.User{}, echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
	}
	return u, nil
}

func idParam(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *WishlistHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.list")

	user, err := member(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.List(ctx, user)
	if err != nil {
		return fail(l, "wishlist_list_failed", err, "wishlist")
	}
	return h.render(c, http.StatusOK, "wishlist", wishlistPage{Items: items})
}

func (h *WishlistHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.add")

	user, err := member(c)
	if err != nil {
		return err
	}
	productID, ok := idParam(c, "productId")
	if !ok {
		l.Warn("wishlist_add_failed", "status", 404, "reason", "bad product id", "product_id", c.Param("productId"))
		return echo.NewHTTPError(http.StatusNotFound, "Sorry, we couldn't find that product.")
	}

	_, created, err := h.Svc.Add(ctx, user, productID)
	if err != nil {
		return fail(l, "wishlist_add_failed", err, "product")
	}

	if created {
		h.flash(c, "Added to your wishlist.")
	} else {
		h.flash(c, "Already in your wishlist.")
	}
	l.Info("wishlist_add_success", "product_id", productID, "created", created)
	return c.Redirect(http.StatusSeeOther, backTo(c, "/"))
}

func (h *WishlistHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.remove")

	user, err := member(c)
	if err != nil {
		return err
	}
	entryID, ok := idParam(c, "entryId")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Sorry, we couldn't find that wishlist entry.")
	}

	if err := h.Svc.Remove(ctx, user, entryID); err != nil {
		return fail(l, "wishlist_remove_failed", err, "wishlist entry")
	}

	h.flash(c, "Removed from your wishlist.")
	l.Info("wishlist_remove_success", "entry_id", entryID)
	return c.Redirect(http.StatusSeeOther, "/wishlist/")
}
