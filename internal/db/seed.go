package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/models"
)

type seedProduct struct {
	category    string
	name        string
	slug        string
	description string
	price       string
	active      bool
}

var seedCategories = []models.Category{
	{Name: "Pies", Slug: "pies"},
	{Name: "Cupcakes", Slug: "cupcakes"},
}

var seedProducts = []seedProduct{
	{"pies", "Apple Pie", "apple-pie", "Bramley apples, cinnamon and an all-butter crust.", "12.50", true},
	{"pies", "Cherry Pie", "cherry-pie", "Sour cherries under a lattice top.", "13.00", true},
	{"pies", "Pecan Pie", "pecan-pie", "Toasted pecans in a brown sugar custard.", "14.75", true},
	{"pies", "Pumpkin Pie", "pumpkin-pie", "Seasonal. Spiced pumpkin custard.", "11.00", false},
	{"cupcakes", "Vanilla Cupcake", "vanilla-cupcake", "Madagascar vanilla sponge with buttercream.", "3.25", true},
	{"cupcakes", "Chocolate Cupcake", "chocolate-cupcake", "Dark chocolate sponge and ganache.", "3.50", true},
	{"cupcakes", "Red Velvet Cupcake", "red-velvet-cupcake", "Cocoa sponge with cream cheese frosting.", "3.75", true},
}

// Seed creates the default catalog. Running it again leaves existing rows alone.
func Seed(ctx context.Context, db *gorm.DB, l *slog.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bySlug := make(map[string]uint, len(seedCategories))
		for _, c := range seedCategories {
			cat := c
			if err := tx.Where(models.Category{Slug: cat.Slug}).Attrs(models.Category{Name: cat.Name}).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.Slug, err)
			}
			bySlug[cat.Slug] = cat.ID
		}

		created := 0
		for _, p := range seedProducts {
			prod := models.Product{
				Name:        p.name,
				Slug:        p.slug,
				Description: p.description,
				Price:       decimal.RequireFromString(p.price),
				CategoryID:  bySlug[p.category],
				IsActive:    p.active,
			}
			res := tx.Where(models.Product{Slug: p.slug}).Attrs(prod).FirstOrCreate(&prod)
			if res.Error != nil {
				return fmt.Errorf("seed product %s: %w", p.slug, res.Error)
			}
			created += int(res.RowsAffected)
		}

		l.Info("catalog_seeded", "categories", len(seedCategories), "products_created", created)
		return nil
	})
}
