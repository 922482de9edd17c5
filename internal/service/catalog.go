package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/search"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
	"github.com/Skotchmaster/bakery_shop/internal/util"
)

// FeaturedLimit is how many products the homepage shows.
const FeaturedLimit = 6

type CatalogService struct {
	Repo   *repo.GormRepo
	Search search.Index
	Events events.Publisher
}

type CategoryPage struct {
	Category *models.Category
	Products []models.Product
}

type SearchResult struct {
	Query    string
	Products []models.Product
	Meta     transport.SearchMeta
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListActiveProducts(ctx, FeaturedLimit)
}

func (s *CatalogService) ActiveProducts(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListActiveProducts(ctx, 0)
}

func (s *CatalogService) Category(ctx context.Context, slug string) (*CategoryPage, error) {
	cat, err := s.Repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "category "+slug)
	}
	products, err := s.Repo.ListActiveProductsByCategory(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: cat, Products: products}, nil
}

func (s *CatalogService) Product(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.GetActiveProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "product "+slug)
	}
	return p, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, page, size int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	from, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	res := &SearchResult{Query: query, Meta: transport.SearchMeta{Page: page, Size: limit}}
	if query == "" {
		return res, nil
	}

	total, ids, err := s.Search.Search(ctx, query, from, limit)
	if err != nil {
		return nil, err
	}
	products, err := s.Repo.GetActiveProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// keep the index's ranking
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	res.Products = make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			res.Products = append(res.Products, p)
		}
	}

	res.Meta.Total = total
	res.Meta.TotalPages = (total + int64(limit) - 1) / int64(limit)
	res.Meta.HasPrev = page > 1
	res.Meta.HasNext = int64(from+limit) < total
	return res, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	req.Normalize()
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, invalid("price", "Price cannot be negative.")
	}
	if _, err := s.Repo.GetCategory(ctx, req.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("category_id", "Select a valid category.")
		}
		return nil, err
	}

	prod := &models.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price.Round(2),
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug %q already used", ErrConflict, req.Slug)
		}
		return nil, err
	}

	s.afterProductChange(ctx, "product_created", prod)
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uint, req transport.PatchProductRequest) (*models.Product, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, invalid("price", "Price cannot be negative.")
	}

	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		prod.Price = req.Price.Round(2)
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
	}
	if err := s.Repo.SaveProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.afterProductChange(ctx, "product_updated", prod)
	return prod, nil
}

// Reindex pushes every product to the search index.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	n := 0
	err := s.Repo.EachProduct(ctx, 100, func(p *models.Product) error {
		if err := s.Search.IndexProduct(ctx, p); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func (s *CatalogService) afterProductChange(ctx context.Context, kind string, p *models.Product) {
	if s.Search != nil {
		if err := s.Search.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("product_index_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProducts, strconv.FormatUint(uint64(p.ID), 10), events.ProductEvent{
		Type:      kind,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		IsActive:  p.IsActive,
		At:        time.Now().UTC(),
	})
}
