package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"isintu/internal/cache"
	"isintu/internal/middleware"
	"isintu/internal/models"
	"isintu/internal/repository"
	"isintu/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Token claims that AuthRequired checks.
const (
	TokenIssuer   = "isintu-api"
	TokenAudience = "isintu-client"
	TokenTTL      = 7 * 24 * time.Hour
)

const blacklistPrefix = "blacklist:"

var errInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")

// Claims is the JWT payload issued at sign-in.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a profile id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

// Session is what sign-up and sign-in hand back to the client.
type Session struct {
	Token   string          `json:"token"`
	Profile *models.Profile `json:"user"`
}

type SignUpInput struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=120"`
}

type IdentityService struct {
	profiles repository.ProfileRepository
	secret   []byte
	hashCost int
	now      func() time.Time
}

func NewIdentityService(profiles repository.ProfileRepository, jwtSecret string) *IdentityService {
	return &IdentityService{
		profiles: profiles,
		secret:   []byte(jwtSecret),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func (s *IdentityService) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	in.Email = validation.NormalizeEmail(in.Email)
	in.FullName = validation.NormalizeFullName(in.FullName)
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateFullName(in.FullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	profile := &models.Profile{
		Email:    in.Email,
		Password: string(hash),
		FullName: in.FullName,
		Role:     models.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	return s.session(profile)
}

// SignIn checks credentials. Unknown email and wrong password fail the same way.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	profile, err := s.profiles.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.session(profile)
}

func (s *IdentityService) session(profile *models.Profile) (*Session, error) {
	token, err := s.IssueToken(profile)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: token, Profile: profile}, nil
}

// IssueToken signs an HS256 token for profile.
func (s *IdentityService) IssueToken(profile *models.Profile) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}
	now := s.now()
	claims := Claims{
		Role: profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(profile.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies signature, issuer, audience and lifetime, then checks
// the revocation list. A Redis outage does not lock everybody out.
func (s *IdentityService) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}

	if claims.ID != "" {
		revoked, err := cache.Exists(ctx, blacklistPrefix+claims.ID)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "token blacklist lookup failed", "error", err)
		} else if revoked {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}
	return claims, nil
}

// SignOut revokes the token for the rest of its lifetime.
func (s *IdentityService) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.ParseToken(ctx, tokenString)
	if err != nil {
		return err
	}
	rdb := cache.GetClient()
	if rdb == nil || claims.ID == "" {
		middleware.Logger.WarnContext(ctx, "sign-out without revocation store, token stays valid until expiry")
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := rdb.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *IdentityService) CurrentUser(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, userID)
}

func (s *IdentityService) UpdateFullName(ctx context.Context, userID uint, fullName string) (*models.Profile, error) {
	fullName = validation.NormalizeFullName(fullName)
	if err := validation.ValidateFullName(fullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.profiles.UpdateFullName(ctx, userID, fullName); err != nil {
		return nil, err
	}
	return s.profiles.GetByID(ctx, userID)
}

// ChangePassword requires the current password even for an authenticated caller.
func (s *IdentityService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(current)); err != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.hashCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.profiles.UpdatePassword(ctx, userID, string(hash))
}

// AdminProfile returns the account whose posts make up the feed.
func (s *IdentityService) AdminProfile(ctx context.Context) (*models.Profile, error) {
	return s.profiles.GetFirstAdmin(ctx)
}

// EnsureAdmin creates an admin with the given credentials, or promotes the
// existing profile with that email. The password of an existing profile is
// left untouched.
func (s *IdentityService) EnsureAdmin(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	email = validation.NormalizeEmail(email)
	existing, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsAdmin() {
			return existing, nil
		}
		if err := s.profiles.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		existing.Role = models.RoleAdmin
		return existing, nil
	}

	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if password == "" {
		return nil, models.NewValidationError("admin password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	profile := &models.Profile{
		Email:    email,
		Password: string(hash),
		FullName: validation.NormalizeFullName(fullName),
		Role:     models.RoleAdmin,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// PublicProfile is the cached read behind other users' profile pages. Only
// the public view is cached, so cached copies carry neither hash nor email.
func (s *IdentityService) PublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error) {
	return cache.Aside(ctx, cache.ProfileKey(userID), cache.ProfileTTL, func() (*models.PublicProfile, error) {
		p, err := s.profiles.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return p.Public(), nil
	})
}
