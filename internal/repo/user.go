package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/models"
)

var ErrUserAlreadyExist = errors.New("user already exist")

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where(models.User{Username: u.Username}).FirstOrCreate(u)
	if tx.Error != nil {
		if IsUniqueViolation(tx.Error) {
			return ErrUserAlreadyExist
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

var ErrRefreshRevoked = errors.New("refresh token expired or revoked")

// ErrRefreshRotated means another request rotated the token at or after
// the grace cutoff passed to RotateRefreshToken.
var ErrRefreshRotated = fmt.Errorf("%w: rotated by a concurrent request", ErrRefreshRevoked)

func refreshUsable(db *gorm.DB, jti string, now, graceSince int64) error {
	var refresh models.RefreshToken
	if err := db.Where("jti = ?", jti).First(&refresh).Error; err != nil {
		return err
	}
	if refresh.ExpiresAt < now {
		return ErrRefreshRevoked
	}
	if refresh.Revoked {
		if refresh.RotatedAt > 0 && refresh.RotatedAt >= graceSince {
			return ErrRefreshRotated
		}
		return ErrRefreshRevoked
	}
	return nil
}

// RotateRefreshToken revokes oldJTI and stores newToken in one transaction.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, newToken *models.RefreshToken, now, graceSince int64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := refreshUsable(tx, oldJTI, now, graceSince); err != nil {
			return err
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ?", oldJTI, false).
			Updates(map[string]any{"revoked": true, "rotated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefreshRotated
		}

		return tx.Create(newToken).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokenHash).
		Update("revoked", true).Error
}
