package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/db"
	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/metrics"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/search"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/internal/testutil"
	"github.com/Skotchmaster/bakery_shop/internal/tokens"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

type testServer struct {
	e    *echo.Echo
	db   *gorm.DB
	deps *Deps
}

func newTestServer(t *testing.T, csrfEnabled bool) *testServer {
	t.Helper()
	gdb := testutil.NewDB(t)
	logger := logging.NewWithWriter(io.Discard, "error")
	require.NoError(t, db.Seed(context.Background(), gdb, logger))

	r := &repo.GormRepo{DB: gdb}
	m := metrics.NewServerMetrics("bakery-test")
	deps := &Deps{
		DB:       gdb,
		Catalog:  &service.CatalogService{Repo: r, Search: search.DBIndex{Repo: r}, Events: events.Noop{}},
		Wishlist: &service.WishlistService{Repo: r, Events: events.Noop{}},
		Orders:   &service.OrderService{Repo: r, Events: events.Noop{}, Created: m.Orders},
		Auth: &service.AuthService{
			Repo:          r,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Events:        events.Noop{},
		},
		Metrics:     m,
		CSRFEnabled: csrfEnabled,
	}
	e, err := New(logger, deps)
	require.NoError(t, err)
	return &testServer{e: e, db: gdb, deps: deps}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (s *testServer) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.do(req, cookies...)
}

func (s *testServer) sendJSON(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req, cookies...)
}

// signIn returns session cookies for a fresh user.
func (s *testServer) signIn(t *testing.T, username, role string) []*http.Cookie {
	t.Helper()
	testutil.CreateUser(t, s.db, username, "password1", role)
	sess, err := s.deps.Auth.SignIn(context.Background(), transport.SignInForm{Username: username, Password: "password1"})
	require.NoError(t, err)
	return []*http.Cookie{
		{Name: tokens.AccessCookie, Value: sess.AccessToken},
		{Name: tokens.RefreshCookie, Value: sess.RefreshToken},
	}
}

func checkoutForm(name, email string) url.Values {
	return url.Values{
		"name":        {name},
		"email":       {email},
		"address":     {"1 Main St"},
		"phone":       {"555-0100"},
		"card_number": {"4111111111111111"},
		"card_expiry": {"12/30"},
		"card_cvv":    {"123"},
	}
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

var receiptPath = regexp.MustCompile(`^/receipt/(\d+)/$`)

func TestGuestCheckout_RedirectsToReceipt(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.postForm("/payment/", checkoutForm("Jane Doe", "jane@example.com"))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc := rec.Header().Get(echo.HeaderLocation)
	m := receiptPath.FindStringSubmatch(loc)
	require.NotNil(t, m, "location %q", loc)

	var order models.Order
	require.NoError(t, s.db.First(&order, "id = ?", m[1]).Error)
	assert.Equal(t, "Jane Doe", order.CustomerName)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Nil(t, order.UserID)
	assert.Regexp(t, `^\d{6}$`, order.OrderNumber)

	receipt := cookieFrom(rec, "receipt_"+m[1])
	require.NotNil(t, receipt)
	assert.Equal(t, "/receipt/", receipt.Path)
	assert.True(t, receipt.HttpOnly)

	page := s.get(loc, &http.Cookie{Name: receipt.Name, Value: receipt.Value})
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Jane Doe")
	assert.Contains(t, page.Body.String(), "pending")
	assert.Contains(t, page.Body.String(), order.OrderNumber)

	assert.Equal(t, http.StatusNotFound, s.get(loc).Code)
}

func TestCheckout_WithItemsUsesCatalogPrices(t *testing.T) {
	s := newTestServer(t, false)
	form := checkoutForm("Jane Doe", "jane@example.com")
	// apple pie x2, vanilla cupcake x0 is skipped
	form["product_id"] = []string{"1", "5"}
	form["quantity"] = []string{"2", "0"}

	rec := s.postForm("/payment/", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var order models.Order
	require.NoError(t, s.db.Preload("Items").Last(&order).Error)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Apple Pie", order.Items[0].ProductName)
	assert.Equal(t, "25.00", order.TotalAmount.StringFixed(2))
}

func TestCheckout_InvalidFormRerenders(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"empty name", checkoutForm("", "jane@example.com"), "This field is required."},
		{"bad email", checkoutForm("Jane Doe", "not-an-email"), "Enter a valid email address."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, false)
			rec := s.postForm("/payment/", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.field)
			assert.NotContains(t, rec.Body.String(), "4111111111111111")
			assert.Zero(t, countRows(t, s.db, &models.Order{}))
		})
	}
}

func TestCheckout_UnreadableItemsKeepForm(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		quantity  string
	}{
		{"word quantity", "3", "two"},
		{"negative product", "-3", "1"},
		{"huge quantity", "3", "99999999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, false)
			form := checkoutForm("Jane Doe", "jane@example.com")
			form.Set("product_id", tt.productID)
			form.Set("quantity", tt.quantity)

			rec := s.postForm("/payment/", form)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Enter a whole number.")
			assert.Contains(t, body, "Jane Doe")
			assert.Contains(t, body, "jane@example.com")
			assert.NotContains(t, body, "4111111111111111")
			assert.Zero(t, countRows(t, s.db, &models.Order{}))
		})
	}
}

func TestCheckout_SignedInUserOwnsOrder(t *testing.T) {
	s := newTestServer(t, false)
	cookies := s.signIn(t, "jane", "user")

	rec := s.postForm("/payment/", checkoutForm("Jane Doe", "jane@example.com"), cookies...)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var order models.Order
	require.NoError(t, s.db.Last(&order).Error)
	require.NotNil(t, order.UserID)

	// the owner needs no receipt cookie
	assert.Equal(t, http.StatusOK, s.get(rec.Header().Get(echo.HeaderLocation), cookies...).Code)

	other := s.signIn(t, "mallory", "user")
	assert.Equal(t, http.StatusNotFound, s.get(rec.Header().Get(echo.HeaderLocation), other...).Code)
}

func TestWishlist_AddTwiceKeepsOneEntry(t *testing.T) {
	s := newTestServer(t, false)
	cookies := s.signIn(t, "jane", "user")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/wishlist/add/3/", nil)
		req.Header.Set("Referer", "http://example.com/product/pecan-pie/")
		rec := s.do(req, cookies...)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/product/pecan-pie/", rec.Header().Get(echo.HeaderLocation))
	}
	assert.EqualValues(t, 1, countRows(t, s.db, &models.WishlistItem{}))

	page := s.get("/wishlist/", cookies...)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Pecan Pie")
}

func TestWishlist_RemoveOnlyOwnEntries(t *testing.T) {
	s := newTestServer(t, false)
	owner := s.signIn(t, "owner", "user")
	intruder := s.signIn(t, "intruder", "user")

	require.Equal(t, http.StatusSeeOther, s.postForm("/wishlist/add/1/", nil, owner...).Code)
	var item models.WishlistItem
	require.NoError(t, s.db.First(&item).Error)
	path := "/wishlist/remove/" + itoa(item.ID) + "/"

	assert.Equal(t, http.StatusNotFound, s.postForm(path, nil, intruder...).Code)
	assert.EqualValues(t, 1, countRows(t, s.db, &models.WishlistItem{}))

	rec := s.postForm(path, nil, owner...)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/wishlist/", rec.Header().Get(echo.HeaderLocation))
	assert.Zero(t, countRows(t, s.db, &models.WishlistItem{}))
}

func TestWishlist_GuestRedirectedToSignIn(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.get("/wishlist/")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin/?next=%2Fwishlist%2F", rec.Header().Get(echo.HeaderLocation))

	rec = s.postForm("/wishlist/add/3/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, countRows(t, s.db, &models.WishlistItem{}))
}

func TestCatalogPages(t *testing.T) {
	s := newTestServer(t, false)

	home := s.get("/")
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Apple Pie")
	assert.NotContains(t, home.Body.String(), "Pumpkin Pie")

	pies := s.get("/pies/")
	require.Equal(t, http.StatusOK, pies.Code)
	assert.Contains(t, pies.Body.String(), "Pecan Pie")
	assert.NotContains(t, pies.Body.String(), "Pumpkin Pie")

	assert.Equal(t, http.StatusOK, s.get("/product/apple-pie/").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/product/pumpkin-pie/").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/product/no-such-thing/").Code)

	found := s.get("/search/?q=cupcake")
	require.Equal(t, http.StatusOK, found.Code)
	assert.Contains(t, found.Body.String(), "Vanilla Cupcake")
}

func TestTrailingSlashRedirect(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.get("/pies")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/pies/", rec.Header().Get(echo.HeaderLocation))

	assert.Equal(t, http.StatusOK, s.get("/health/live").Code)
}

func TestSignUpSignInSignOut(t *testing.T) {
	s := newTestServer(t, false)

	form := url.Values{
		"username":   {"jane.doe"},
		"first_name": {"Jane"},
		"last_name":  {"Doe"},
		"email":      {"jane@example.com"},
		"password1":  {"sugar-and-spice"},
		"password2":  {"sugar-and-spice"},
	}
	rec := s.postForm("/signup/", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.NotNil(t, cookieFrom(rec, tokens.AccessCookie))

	dup := s.postForm("/signup/", form)
	assert.Equal(t, http.StatusUnprocessableEntity, dup.Code)
	assert.Contains(t, dup.Body.String(), "A user with that username already exists.")

	bad := s.postForm("/signin/", url.Values{"username": {"jane.doe"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Nil(t, cookieFrom(bad, tokens.AccessCookie))

	ok := s.postForm("/signin/", url.Values{"username": {"jane.doe"}, "password": {"sugar-and-spice"}, "next": {"/wishlist/"}})
	require.Equal(t, http.StatusSeeOther, ok.Code)
	assert.Equal(t, "/wishlist/", ok.Header().Get(echo.HeaderLocation))

	evil := s.postForm("/signin/", url.Values{"username": {"jane.doe"}, "password": {"sugar-and-spice"}, "next": {"//evil.example"}})
	assert.Equal(t, "/", evil.Header().Get(echo.HeaderLocation))

	session := []*http.Cookie{cookieFrom(ok, tokens.AccessCookie), cookieFrom(ok, tokens.RefreshCookie)}
	out := s.postForm("/signout/", nil, session...)
	require.Equal(t, http.StatusSeeOther, out.Code)
	assert.Equal(t, -1, cookieFrom(out, tokens.AccessCookie).MaxAge)

	_, err := s.deps.Auth.Refresh(context.Background(), session[1].Value)
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}

func TestFlashShownOnce(t *testing.T) {
	s := newTestServer(t, false)
	cookies := s.signIn(t, "jane", "user")

	rec := s.postForm("/wishlist/add/3/", nil, cookies...)
	flash := cookieFrom(rec, flashCookie)
	require.NotNil(t, flash)

	page := s.get("/", append(cookies, flash)...)
	assert.Contains(t, page.Body.String(), "Added to your wishlist.")
	assert.Equal(t, -1, cookieFrom(page, flashCookie).MaxAge)
}

func TestCSRF_RejectsFormWithoutToken(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/payment/", strings.NewReader(checkoutForm("Jane Doe", "jane@example.com").Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Origin", "http://example.com")
	assert.Equal(t, http.StatusForbidden, s.do(req).Code)
	assert.Zero(t, countRows(t, s.db, &models.Order{}))

	form := s.get("/payment/")
	require.Equal(t, http.StatusOK, form.Code)
	token := cookieFrom(form, "csrftoken")
	require.NotNil(t, token)
	assert.Contains(t, form.Body.String(), token.Value)

	body := checkoutForm("Jane Doe", "jane@example.com")
	body.Set("csrf_token", token.Value)
	req = httptest.NewRequest(http.MethodPost, "/payment/", strings.NewReader(body.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Origin", "http://example.com")
	assert.Equal(t, http.StatusSeeOther, s.do(req, token).Code)
}

func TestCSRF_RejectsCrossOriginPost(t *testing.T) {
	s := newTestServer(t, true)

	form := s.get("/payment/")
	token := cookieFrom(form, "csrftoken")
	require.NotNil(t, token)

	body := checkoutForm("Jane Doe", "jane@example.com")
	body.Set("csrf_token", token.Value)
	for _, origin := range []string{"http://evil.example", ""} {
		req := httptest.NewRequest(http.MethodPost, "/payment/", strings.NewReader(body.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		assert.Equal(t, http.StatusForbidden, s.do(req, token).Code, "origin %q", origin)
	}
	assert.Zero(t, countRows(t, s.db, &models.Order{}))

	req := httptest.NewRequest(http.MethodPost, "/payment/", strings.NewReader(body.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Referer", "http://example.com/payment/")
	assert.Equal(t, http.StatusSeeOther, s.do(req, token).Code)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	admin := s.signIn(t, "boss", "admin")
	user := s.signIn(t, "jane", "user")

	body := `{"name":"Key Lime Pie","slug":"key-lime-pie","price":"15.00","category_id":1}`
	assert.Equal(t, http.StatusUnauthorized, s.sendJSON(http.MethodPost, "/admin/products", body).Code)
	assert.Equal(t, http.StatusForbidden, s.sendJSON(http.MethodPost, "/admin/products", body, user...).Code)

	rec := s.sendJSON(http.MethodPost, "/admin/products", body, admin...)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.IsActive)

	assert.Equal(t, http.StatusConflict, s.sendJSON(http.MethodPost, "/admin/products", body, admin...).Code)

	invalid := s.sendJSON(http.MethodPost, "/admin/products", `{"name":"x","slug":"x","price":"-1","category_id":1}`, admin...)
	assert.Equal(t, http.StatusUnprocessableEntity, invalid.Code)
	assert.Contains(t, invalid.Body.String(), `"field":"price"`)

	patch := s.sendJSON(http.MethodPatch, "/admin/products/"+itoa(created.ID), `{"is_active":false}`, admin...)
	require.Equal(t, http.StatusOK, patch.Code)
	assert.Equal(t, http.StatusNotFound, s.get("/product/key-lime-pie/").Code)

	checkout := s.postForm("/payment/", checkoutForm("Jane Doe", "jane@example.com"))
	loc := receiptPath.FindStringSubmatch(checkout.Header().Get(echo.HeaderLocation))
	require.NotNil(t, loc)
	statusPath := "/admin/orders/" + loc[1] + "/status"

	paid := s.sendJSON(http.MethodPatch, statusPath, `{"status":"paid"}`, admin...)
	require.Equal(t, http.StatusOK, paid.Code)
	assert.Contains(t, paid.Body.String(), `"status":"paid"`)
	assert.NotContains(t, paid.Body.String(), "receipt")

	assert.Equal(t, http.StatusConflict, s.sendJSON(http.MethodPatch, statusPath, `{"status":"pending"}`, admin...).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.sendJSON(http.MethodPatch, statusPath, `{"status":"lost"}`, admin...).Code)
	assert.Equal(t, http.StatusNotFound, s.sendJSON(http.MethodPatch, "/admin/orders/999/status", `{"status":"paid"}`, admin...).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, false)

	assert.Equal(t, http.StatusOK, s.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, s.get("/health/ready").Code)

	require.Equal(t, http.StatusSeeOther, s.postForm("/payment/", checkoutForm("Jane Doe", "jane@example.com")).Code)
	s.get("/pies/")

	rec := s.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bakery_orders_created_total")
	assert.Contains(t, body, `handler="/pies/"`)
}

func TestNotFoundPage(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.get("/nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/wishlist/", "/wishlist/", true},
		{"/search/?q=pie", "/search/?q=pie", true},
		{"", "", false},
		{"//evil.example/", "", false},
		{"/\\evil.example", "", false},
		{"https://evil.example/", "", false},
		{"wishlist", "", false},
	}
	for _, tt := range tests {
		got, ok := localPath(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
