package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/testutil"
)

func newRepo(t *testing.T) (*repo.GormRepo, *gorm.DB) {
	gdb := testutil.NewDB(t)
	return &repo.GormRepo{DB: gdb}, gdb
}

func TestCatalog_ActiveOnly(t *testing.T) {
	r, gdb := newRepo(t)
	ctx := context.Background()
	pies := testutil.CreateCategory(t, gdb, "pies")
	apple := testutil.CreateProduct(t, gdb, pies, "apple-pie", "12.50", true)
	hidden := testutil.CreateProduct(t, gdb, pies, "pumpkin-pie", "11.00", false)

	list, err := r.ListActiveProductsByCategory(ctx, pies.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, apple.ID, list[0].ID)

	got, err := r.GetActiveProductBySlug(ctx, "apple-pie")
	require.NoError(t, err)
	assert.Equal(t, "pies", got.Category.Slug)

	_, err = r.GetActiveProductBySlug(ctx, hidden.Slug)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	stored, err := r.GetProduct(ctx, hidden.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestListActiveProducts_Limit(t *testing.T) {
	r, gdb := newRepo(t)
	cat := testutil.CreateCategory(t, gdb, "cupcakes")
	for _, slug := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		testutil.CreateProduct(t, gdb, cat, slug, "1.00", true)
	}
	testutil.CreateProduct(t, gdb, cat, "off", "1.00", false)

	six, err := r.ListActiveProducts(context.Background(), 6)
	require.NoError(t, err)
	assert.Len(t, six, 6)
	assert.Equal(t, "a", six[0].Slug)

	all, err := r.ListActiveProducts(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestSearchActiveProducts(t *testing.T) {
	r, gdb := newRepo(t)
	cat := testutil.CreateCategory(t, gdb, "pies")
	testutil.CreateProduct(t, gdb, cat, "cherry-pie", "13.00", true)
	testutil.CreateProduct(t, gdb, cat, "cherry-tart", "9.00", false)
	testutil.CreateProduct(t, gdb, cat, "pecan-pie", "14.75", true)

	total, items, err := r.SearchActiveProducts(context.Background(), "CHERRY", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "cherry-pie", items[0].Slug)

	total, _, err = r.SearchActiveProducts(context.Background(), "%", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWishlist_AddIsIdempotent(t *testing.T) {
	r, gdb := newRepo(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, gdb, "jane", "password1", "user")
	cat := testutil.CreateCategory(t, gdb, "pies")
	p := testutil.CreateProduct(t, gdb, cat, "apple-pie", "12.50", false)

	first, created, err := r.AddWishlistItem(ctx, user.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := r.AddWishlistItem(ctx, user.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	items, err := r.ListWishlist(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "apple-pie", items[0].Product.Slug)
}

func TestWishlist_AddMissingProduct(t *testing.T) {
	r, gdb := newRepo(t)
	user := testutil.CreateUser(t, gdb, "jane", "password1", "user")

	_, _, err := r.AddWishlistItem(context.Background(), user.ID, 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWishlist_RemoveOwnerOnly(t *testing.T) {
	r, gdb := newRepo(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, gdb, "owner", "password1", "user")
	other := testutil.CreateUser(t, gdb, "other", "password1", "user")
	cat := testutil.CreateCategory(t, gdb, "pies")
	p := testutil.CreateProduct(t, gdb, cat, "apple-pie", "12.50", true)

	entry, _, err := r.AddWishlistItem(ctx, owner.ID, p.ID)
	require.NoError(t, err)

	_, err = r.RemoveWishlistItem(ctx, other.ID, entry.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, gdb.Model(&models.WishlistItem{}).Where("id = ?", entry.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	removed, err := r.RemoveWishlistItem(ctx, owner.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, removed.ProductID)

	require.NoError(t, gdb.Model(&models.WishlistItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrder_UniqueNumberAndImmutableItems(t *testing.T) {
	r, gdb := newRepo(t)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, gdb, "pies")
	p := testutil.CreateProduct(t, gdb, cat, "apple-pie", "12.50", true)

	order := &models.Order{
		OrderNumber:     "123456",
		TotalAmount:     decimal.RequireFromString("25.00"),
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		CustomerAddress: "1 Main St",
		CustomerPhone:   "5551234567",
		Status:          models.OrderPending,
		Items: []models.OrderItem{
			{ProductID: p.ID, ProductName: p.Name, Quantity: 2, Price: p.Price},
		},
	}
	require.NoError(t, r.CreateOrder(ctx, order))

	exists, err := r.OrderNumberExists(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &models.Order{
		OrderNumber:     "123456",
		TotalAmount:     decimal.Zero,
		CustomerName:    "John",
		CustomerEmail:   "john@example.com",
		CustomerAddress: "2 Main St",
		CustomerPhone:   "1",
		Status:          models.OrderPending,
	}
	err = r.CreateOrder(ctx, dup)
	require.Error(t, err)
	assert.True(t, repo.IsUniqueViolation(err))

	got, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	item := got.Items[0]
	err = gdb.Model(&item).Update("quantity", 5).Error
	assert.True(t, errors.Is(err, models.ErrOrderItemImmutable))
}

func TestSetOrderStatus_ExpectsCurrentStatus(t *testing.T) {
	r, gdb := newRepo(t)
	ctx := context.Background()
	order := &models.Order{
		OrderNumber: "000001", TotalAmount: decimal.Zero, CustomerName: "a",
		CustomerEmail: "a@example.com", CustomerAddress: "x", CustomerPhone: "1",
		Status: models.OrderPending,
	}
	require.NoError(t, gdb.Create(order).Error)

	ok, err := r.SetOrderStatus(ctx, order.ID, models.OrderPaid, models.OrderFulfilled)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.SetOrderStatus(ctx, order.ID, models.OrderPending, models.OrderPaid)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, repo.IsUniqueViolation(nil))
	assert.True(t, repo.IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, repo.IsUniqueViolation(errors.New("boom")))
}

func TestRotateRefreshToken(t *testing.T) {
	r, gdb := newRepo(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, gdb, "jane", "password1", "user")

	old := &models.RefreshToken{Token: "h1", JTI: "j1", UserID: user.ID, ExpiresAt: 200}
	require.NoError(t, r.AddRefreshToken(ctx, old))

	next := &models.RefreshToken{Token: "h2", JTI: "j2", UserID: user.ID, ExpiresAt: 300}
	require.NoError(t, r.RotateRefreshToken(ctx, "j1", next, 100, 70))

	var rotated models.RefreshToken
	require.NoError(t, gdb.Where("jti = ?", "j1").First(&rotated).Error)
	assert.True(t, rotated.Revoked)
	assert.Equal(t, int64(100), rotated.RotatedAt)

	again := &models.RefreshToken{Token: "h3", JTI: "j3", UserID: user.ID, ExpiresAt: 300}
	err := r.RotateRefreshToken(ctx, "j1", again, 110, 80)
	assert.ErrorIs(t, err, repo.ErrRefreshRotated)
	assert.ErrorIs(t, err, repo.ErrRefreshRevoked)

	err = r.RotateRefreshToken(ctx, "j1", again, 150, 120)
	assert.ErrorIs(t, err, repo.ErrRefreshRevoked)
	assert.NotErrorIs(t, err, repo.ErrRefreshRotated)

	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "j2", again, 400, 370), repo.ErrRefreshRevoked)

	require.NoError(t, r.RevokeRefreshToken(ctx, "h2"))
	var stored models.RefreshToken
	require.NoError(t, gdb.Where("jti = ?", "j2").First(&stored).Error)
	assert.True(t, stored.Revoked)
	assert.Zero(t, stored.RotatedAt)
	err = r.RotateRefreshToken(ctx, "j2", again, 200, 170)
	assert.NotErrorIs(t, err, repo.ErrRefreshRotated)
}

func TestCreateUserIfNotExists(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	u := &models.User{Username: "jane", Email: "jane@example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, r.CreateUserIfNotExists(ctx, u))
	assert.NotZero(t, u.ID)

	dup := &models.User{Username: "jane", Email: "other@example.com", PasswordHash: "y", Role: "user"}
	assert.ErrorIs(t, r.CreateUserIfNotExists(ctx, dup), repo.ErrUserAlreadyExist)
}
