package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/internal/util"
)

type CatalogHTTP struct {
	site
	Svc *service.CatalogService
}

type indexPage struct {
	Categories []models.Category
	Products   []models.Product
}

type productPage struct {
	Product *models.Product
}

type searchPage struct {
	*service.SearchResult
	Prev, Next int
}

func (h *CatalogHTTP) Index(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.index")

	categories, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "index_failed", err, "categories")
	}
	products, err := h.Svc.FeaturedProducts(ctx)
	if err != nil {
		return fail(l, "index_failed", err, "products")
	}
	return h.render(c, http.StatusOK, "index", indexPage{Categories: categories, Products: products})
}

// Category serves a fixed category page such as /pies/.
func (h *CatalogHTTP) Category(slug string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("handler", "catalog.category", "category", slug)

		page, err := h.Svc.Category(ctx, slug)
		if err != nil {
			return fail(l, "category_failed", err, "category")
		}
		return h.render(c, http.StatusOK, "category", page)
	}
}

func (h *CatalogHTTP) Product(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.product")

	p, err := h.Svc.Product(ctx, c.Param("slug"))
	if err != nil {
		return fail(l, "get_product_failed", err, "product")
	}
	return h.render(c, http.StatusOK, "product", productPage{Product: p})
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "search_failed", err, "search results")
	}
	return h.render(c, http.StatusOK, "search", searchPage{
		SearchResult: res,
		Prev:         res.Meta.Page - 1,
		Next:         res.Meta.Page + 1,
	})
}
