package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/metrics"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/auth"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/bakery_shop/internal/middleware/logging"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/web"
)

type Deps struct {
	DB       *gorm.DB
	Catalog  *service.CatalogService
	Wishlist *service.WishlistService
	Orders   *service.OrderService
	Auth     *service.AuthService
	Metrics  *metrics.ServerMetrics

	CookieSecure bool
	CSRFEnabled  bool
}

// machinePath reports routes that keep their exact path and skip HTML concerns.
func machinePath(p string) bool {
	return strings.HasPrefix(p, "/health") || p == "/metrics" || strings.HasPrefix(p, "/admin")
}

func New(logger *slog.Logger, d *Deps) (*echo.Echo, error) {
	renderer, err := NewRenderer(web.Templates)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	s := site{CookieSecure: d.CookieSecure}
	e.HTTPErrorHandler = errorHandler(s)

	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper:      func(c echo.Context) bool { return machinePath(c.Request().URL.Path) },
	}))
	e.Use(middleware.RequestID())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(auth.NewSessionMiddleware(d.Auth, d.CookieSecure).Resolve)
	if d.CSRFEnabled {
		e.Use(csrf.Middleware(csrf.Config{
			Secure:       d.CookieSecure,
			SkipPrefixes: []string{"/health", "/metrics"},
		}))
	}

	Register(e, d, s)
	return e, nil
}

func Register(e *echo.Echo, d *Deps, s site) {
	health := &HealthHTTP{DB: d.DB}
	e.GET("/health/live", health.Live)
	e.GET("/health/ready", health.Ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	catalog := &CatalogHTTP{site: s, Svc: d.Catalog}
	e.GET("/", catalog.Index)
	e.GET("/pies/", catalog.Category("pies"))
	e.GET("/cupcakes/", catalog.Category("cupcakes"))
	e.GET("/product/:slug/", catalog.Product)
	e.GET("/search/", catalog.Search)

	wishlist := &WishlistHTTP{site: s, Svc: d.Wishlist}
	e.GET("/wishlist/", wishlist.List, auth.RequireLogin)
	e.POST("/wishlist/add/:productId/", wishlist.Add, auth.RequireLogin)
	e.POST("/wishlist/remove/:entryId/", wishlist.Remove, auth.RequireLogin)

	orders := &OrderHTTP{site: s, Svc: d.Orders, Catalog: d.Catalog}
	e.GET("/payment/", orders.PaymentForm)
	e.POST("/payment/", orders.Checkout)
	e.GET("/receipt/:orderId/", orders.Receipt)

	authH := &AuthHTTP{site: s, Svc: d.Auth}
	e.GET("/signin/", authH.SignInForm)
	e.POST("/signin/", authH.SignIn)
	e.GET("/signup/", authH.SignUpForm)
	e.POST("/signup/", authH.SignUp)
	e.POST("/signout/", authH.SignOut, auth.RequireLogin)

	admin := &AdminHTTP{Catalog: d.Catalog, Orders: d.Orders}
	g := e.Group("/admin", auth.RequireAdmin)
	g.POST("/products", admin.CreateProduct)
	g.PATCH("/products/:id", admin.PatchProduct)
	g.PATCH("/orders/:id/status", admin.PatchOrderStatus)
}
