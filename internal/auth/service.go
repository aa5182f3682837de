package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/mediahost/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyTag marks API key secrets so they can be told apart from JWTs.
	APIKeyTag = "mh_"

	apiKeyBytes  = 32
	prefixLength = 8
)

// keyStore abstracts the persistence layer.
type keyStore interface {
	CreateAPIKey(ctx context.Context, key APIKey) (APIKey, error)
	FindActiveKeysByPrefix(ctx context.Context, prefix string) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID) error
}

// Service validates bearer tokens and API keys.
type Service struct {
	store      keyStore
	cfg        config.AuthConfig
	nowFunc    func() time.Time
	bcryptCost int
	parser     *jwt.Parser
}

// NewService creates a Service with dependencies.
func NewService(store keyStore, cfg config.AuthConfig) *Service {
	return &Service{
		store:      store,
		cfg:        cfg,
		nowFunc:    time.Now,
		bcryptCost: bcrypt.DefaultCost,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

// ValidateAccessToken verifies the token signature and extracts user claims.
func (s *Service) ValidateAccessToken(tokenString string) (UserClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return UserClaims{}, ErrUnauthorized
	}

	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.AccessTokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return UserClaims{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, ErrUnauthorized
	}

	if s.cfg.Issuer != "" {
		if iss, _ := claims["iss"].(string); iss != s.cfg.Issuer {
			return UserClaims{}, ErrUnauthorized
		}
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return UserClaims{}, ErrUnauthorized
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return UserClaims{}, ErrUnauthorized
	}

	email, _ := claims["email"].(string)
	isAdmin, _ := claims["is_admin"].(bool)

	expFloat, okExp := claims["exp"].(float64)
	if !okExp {
		return UserClaims{}, ErrUnauthorized
	}
	exp := time.Unix(int64(expFloat), 0)

	iat := time.Time{}
	if iatFloat, ok := claims["iat"].(float64); ok {
		iat = time.Unix(int64(iatFloat), 0)
	}

	if exp.Before(s.nowFunc()) {
		return UserClaims{}, ErrUnauthorized
	}

	return UserClaims{
		UserID:    userID,
		Email:     email,
		IsAdmin:   isAdmin,
		ExpiresAt: exp,
		IssuedAt:  iat,
	}, nil
}

// IssueAccessToken signs a short-lived HS256 token for the given identity.
// The API never issues tokens itself; cmd/token is the operator mint.
func (s *Service) IssueAccessToken(userID uuid.UUID, email string, isAdmin bool, ttl time.Duration) (string, time.Time, error) {
	now := s.nowFunc()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      userID.String(),
		"iss":      s.cfg.Issuer,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
		"email":    email,
		"is_admin": isAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// CreateAPIKey generates a key for userID. The secret is returned once.
func (s *Service) CreateAPIKey(ctx context.Context, userID uuid.UUID, isAdmin bool) (IssuedKey, error) {
	raw := make([]byte, apiKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return IssuedKey{}, fmt.Errorf("generate api key: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(body), s.bcryptCost)
	if err != nil {
		return IssuedKey{}, fmt.Errorf("hash api key: %w", err)
	}

	key, err := s.store.CreateAPIKey(ctx, APIKey{
		ID:      uuid.New(),
		UserID:  userID,
		Prefix:  body[:prefixLength],
		KeyHash: string(hash),
		IsAdmin: isAdmin,
	})
	if err != nil {
		return IssuedKey{}, err
	}

	key.KeyHash = ""
	return IssuedKey{Key: key, Secret: APIKeyTag + body}, nil
}

// AuthenticateAPIKey resolves a raw key to the identity it was issued for.
func (s *Service) AuthenticateAPIKey(ctx context.Context, secret string) (UserClaims, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(secret), APIKeyTag)
	if !ok || len(body) <= prefixLength {
		return UserClaims{}, ErrUnauthorized
	}

	candidates, err := s.store.FindActiveKeysByPrefix(ctx, body[:prefixLength])
	if err != nil {
		return UserClaims{}, fmt.Errorf("lookup api key: %w", err)
	}
	for _, k := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(body)) == nil {
			return UserClaims{UserID: k.UserID, IsAdmin: k.IsAdmin, IssuedAt: k.CreatedAt}, nil
		}
	}
	return UserClaims{}, ErrUnauthorized
}

// RevokeAPIKey revokes one of the user's keys.
func (s *Service) RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	if err := s.store.RevokeAPIKey(ctx, userID, keyID); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}
