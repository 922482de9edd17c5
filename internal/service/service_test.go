package service

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/search"
	"github.com/Skotchmaster/bakery_shop/internal/testutil"
)

type published struct {
	Topic   string
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}

type testEnv struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Events   *recordingPublisher
	Catalog  *CatalogService
	Wishlist *WishlistService
	Orders   *OrderService
	Auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutil.NewDB(t)
	r := &repo.GormRepo{DB: gdb}
	ev := &recordingPublisher{}
	return &testEnv{
		DB:       gdb,
		Repo:     r,
		Events:   ev,
		Catalog:  &CatalogService{Repo: r, Search: search.DBIndex{Repo: r}, Events: ev},
		Wishlist: &WishlistService{Repo: r, Events: ev},
		Orders:   &OrderService{Repo: r, Events: ev},
		Auth: &AuthService{
			Repo:          r,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Events:        ev,
		},
	}
}
