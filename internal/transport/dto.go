package transport

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/bakery_shop/internal/util"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type CheckoutForm struct {
	Name       string `form:"name"        validate:"required,max=200"`
	Email      string `form:"email"       validate:"required,max=254,email"`
	Address    string `form:"address"     validate:"required,max=1000"`
	Phone      string `form:"phone"       validate:"required,max=20"`
	CardNumber string `form:"card_number" validate:"required,max=16"`
	CardExpiry string `form:"card_expiry" validate:"required,max=5"`
	CardCVV    string `form:"card_cvv"    validate:"required,max=4"`

	// Parallel lists; a zero quantity means the line was left empty.
	ProductIDs []uint `form:"product_id"`
	Quantities []int  `form:"quantity"`
}

func (f *CheckoutForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.Phone = strings.TrimSpace(f.Phone)
	f.CardNumber = strings.TrimSpace(f.CardNumber)
	f.CardExpiry = strings.TrimSpace(f.CardExpiry)
	f.CardCVV = strings.TrimSpace(f.CardCVV)
}

type SignUpForm struct {
	Username  string `form:"username"   validate:"required,max=150,username"`
	FirstName string `form:"first_name" validate:"required,max=30"`
	LastName  string `form:"last_name"  validate:"required,max=30"`
	Email     string `form:"email"      validate:"required,max=254,email"`
	Password1 string `form:"password1"  validate:"required,min=8,max=128"`
	Password2 string `form:"password2"  validate:"required,eqfield=Password1"`
}

func (f *SignUpForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
}

type SignInForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"     validate:"-"`
}

func (f *SignInForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,max=200"`
	Slug        string          `json:"slug"        validate:"required,max=200,slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uint            `json:"category_id" validate:"required"`
	IsActive    *bool           `json:"is_active"`
}

// Normalize fills an omitted slug from the name.
func (r *CreateProductRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(r.Slug)
	if r.Slug == "" {
		r.Slug = util.Slugify(r.Name)
	}
}

type PatchProductRequest struct {
	Name        *string          `json:"name"        validate:"omitnil,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
}

type PatchOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type SearchMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}
