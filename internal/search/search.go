// Package search looks up products by free text.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
)

type Index interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	// Search returns ids of matching active products, best match first.
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type ESIndex struct {
	Client *elasticsearch.Client
	Index  string
}

type productDoc struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (s *ESIndex) IndexProduct(ctx context.Context, p *models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		IsActive:    p.IsActive,
	}); err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	res, err := s.Client.Index(
		s.Index,
		&buf,
		s.Client.Index.WithContext(ctx),
		s.Client.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index product: %s: %s", res.Status(), body)
	}
	return nil
}

func (s *ESIndex) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"is_active": true},
				},
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search encode: %w", err)
	}

	res, err := s.Client.Search(
		s.Client.Search.WithContext(ctx),
		s.Client.Search.WithIndex(s.Index),
		s.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), raw)
	}

	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) (int64, []uint, error) {
	var out struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return 0, nil, fmt.Errorf("search decode: %w", err)
	}

	ids := make([]uint, len(out.Hits.Hits))
	for i, h := range out.Hits.Hits {
		ids[i] = h.Source.ID
	}
	return out.Hits.Total.Value, ids, nil
}

// DBIndex answers searches straight from the database.
type DBIndex struct {
	Repo *repo.GormRepo
}

func (DBIndex) IndexProduct(context.Context, *models.Product) error { return nil }

func (s DBIndex) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	total, items, err := s.Repo.SearchActiveProducts(ctx, query, from, size)
	if err != nil {
		return 0, nil, err
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return total, ids, nil
}
