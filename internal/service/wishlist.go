package service

import (
	"context"
	"strconv"
	"time"

	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/identity"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
)

type WishlistService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// Add is idempotent. The product only has to exist; inactive products may be
// wished for too.
func (s *WishlistService) Add(ctx context.Context, user identity.User, productID uint) (*models.WishlistItem, bool, error) {
	item, created, err := s.Repo.AddWishlistItem(ctx, user.ID, productID)
	if err != nil {
		return nil, false, notFound(err, "product")
	}
	if created {
		publish(ctx, s.Events, events.TopicWishlist, strconv.FormatUint(uint64(user.ID), 10), events.WishlistChanged{
			Type:      "wishlist_added",
			UserID:    user.ID,
			ProductID: productID,
			EntryID:   item.ID,
			At:        time.Now().UTC(),
		})
	}
	return item, created, nil
}

// Remove reports ErrNotFound both for missing entries and for entries owned
// by someone else.
func (s *WishlistService) Remove(ctx context.Context, user identity.User, entryID uint) error {
	item, err := s.Repo.RemoveWishlistItem(ctx, user.ID, entryID)
	if err != nil {
		return notFound(err, "wishlist entry")
	}
	publish(ctx, s.Events, events.TopicWishlist, strconv.FormatUint(uint64(user.ID), 10), events.WishlistChanged{
		Type:      "wishlist_removed",
		UserID:    user.ID,
		ProductID: item.ProductID,
		EntryID:   item.ID,
		At:        time.Now().UTC(),
	})
	return nil
}

func (s *WishlistService) List(ctx context.Context, user identity.User) ([]models.WishlistItem, error) {
	return s.Repo.ListWishlist(ctx, user.ID)
}
