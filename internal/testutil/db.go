// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/bakery_shop/internal/db"
	"github.com/Skotchmaster/bakery_shop/internal/hash"
	"github.com/Skotchmaster/bakery_shop/internal/models"
)

// NewDB returns a migrated in-memory database with a single connection,
// so everything inside a transaction must go through the tx handle.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func CreateCategory(t *testing.T, gdb *gorm.DB, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func CreateProduct(t *testing.T, gdb *gorm.DB, cat *models.Category, slug, price string, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        slug,
		Slug:        slug,
		Description: "fresh " + slug,
		Price:       decimal.RequireFromString(price),
		CategoryID:  cat.ID,
		IsActive:    active,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func CreateUser(t *testing.T, gdb *gorm.DB, username, password, role string) *models.User {
	t.Helper()
	pw, err := hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: pw,
		Role:         role,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}
