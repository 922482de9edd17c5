package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null"   json:"username"`
	Email        string    `gorm:"size:254;not null"               json:"email"`
	FirstName    string    `gorm:"size:30"                         json:"first_name"`
	LastName     string    `gorm:"size:30"                         json:"last_name"`
	PasswordHash string    `gorm:"not null"                        json:"-"`
	Role         string    `gorm:"size:20;not null"                json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken stores the sha256 of the issued token, never the token itself.
type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"               json:"id"`
	Token     string `gorm:"uniqueIndex;not null"     json:"-"`
	JTI       string `gorm:"uniqueIndex;not null"     json:"jti"`
	UserID    uint   `gorm:"index;not null"           json:"user_id"`
	ExpiresAt int64  `gorm:"not null"                 json:"expires_at"`
	Revoked   bool   `gorm:"not null"                 json:"revoked"`
	// RotatedAt is set when the token was revoked by a refresh, not by sign-out.
	RotatedAt int64 `gorm:"not null;default:0"       json:"rotated_at"`
}

func All() []any {
	return []any{
		&Category{},
		&Product{},
		&User{},
		&RefreshToken{},
		&WishlistItem{},
		&Order{},
		&OrderItem{},
	}
}
