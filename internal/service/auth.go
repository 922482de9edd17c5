package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/events"
	"github.com/Skotchmaster/bakery_shop/internal/hash"
	"github.com/Skotchmaster/bakery_shop/internal/identity"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/models"
	"github.com/Skotchmaster/bakery_shop/internal/repo"
	"github.com/Skotchmaster/bakery_shop/internal/tokens"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
	// RotationGrace is how long a just-rotated refresh token still
	// identifies its user for requests that raced the rotation.
	RotationGrace = 30 * time.Second

	roleUser = "user"
)

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Events        events.Publisher
	Now           func() time.Time
}

type Session struct {
	User         identity.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) CreateAccessToken(u identity.User, accessExp time.Time) (string, error) {
	claims := tokens.AccessClaims{
		Role:     u.Role,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Subject(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

func (s *AuthService) CreateRefreshToken(subject string, refreshExp time.Time) (string, string, error) {
	jti := tokens.NewJTI()
	claims := tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        jti,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// IdentityFromAccess verifies an access token and returns its user.
func (s *AuthService) IdentityFromAccess(accessToken string) (identity.User, error) {
	claims, err := tokens.AccessClaimsFromToken(accessToken, s.JWTSecret)
	if err != nil {
		return identity.User{}, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return identity.User{}, fmt.Errorf("access token subject: %w", err)
	}
	return identity.User{ID: uint(id), Username: claims.Username, Role: claims.Role}, nil
}

func (s *AuthService) SignUp(ctx context.Context, form transport.SignUpForm) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	form.Normalize()
	if err := validateStruct(form); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(form.Password1)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: pwHash,
		Role:         roleUser,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, invalid("username", "A user with that username already exists.")
		}
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, strconv.FormatUint(uint64(user.ID), 10), events.UserEvent{
		Type:     "user_registered",
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	})
	return s.issue(ctx, &user)
}

func (s *AuthService) SignIn(ctx context.Context, form transport.SignInForm) (*Session, error) {
	form.Normalize()
	if err := validateStruct(form); err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUserByUsername(ctx, form.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, form.Password) {
		return nil, ErrInvalidCredentials
	}

	publish(ctx, s.Events, events.TopicUsers, strconv.FormatUint(uint64(user.ID), 10), events.UserEvent{
		Type:     "user_signed_in",
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	})
	return s.issue(ctx, user)
}

func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(refreshToken))
}

// Refresh rotates the refresh token: the old one is revoked in the same
// transaction that stores the new one. A token rotated less than
// RotationGrace ago yields ErrSessionRotated along with the user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidRefreshToken)
	}
	user, err := s.Repo.GetUserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidRefreshToken)
		}
		return nil, err
	}

	sess, stored, err := s.newSession(user)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, stored, now.Unix(), now.Add(-RotationGrace).Unix()); err != nil {
		if errors.Is(err, repo.ErrRefreshRotated) {
			return &Session{User: sess.User}, ErrSessionRotated
		}
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repo.ErrRefreshRevoked) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
		}
		return nil, err
	}
	return sess, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	sess, stored, err := s.newSession(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, stored); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *AuthService) newSession(user *models.User) (*Session, *models.RefreshToken, error) {
	who := identity.User{ID: user.ID, Username: user.Username, Role: user.Role}
	now := s.now()

	accessExp := now.Add(AccessTTL)
	access, err := s.CreateAccessToken(who, accessExp)
	if err != nil {
		return nil, nil, err
	}

	refreshExp := now.Add(RefreshTTL)
	refresh, jti, err := s.CreateRefreshToken(who.Subject(), refreshExp)
	if err != nil {
		return nil, nil, err
	}

	stored := &models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	}
	return &Session{
		User:         who,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, stored, nil
}
