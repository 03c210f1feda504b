package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"bizdesk/internal/config"
	"bizdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the identity claims embedded in both the access and the
// refresh token.
type SessionClaims struct {
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a parsed user id.
func (c *SessionClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenService is the token codec: it issues and verifies the signed session
// tokens and generates the opaque one-time tokens used by the reset and
// invitation flows. Access and refresh tokens use distinct signing secrets.
type TokenService struct {
	cfg config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// GeneratePair signs a fresh access/refresh token pair for the user.
func (s *TokenService) GeneratePair(user *models.User) (accessToken, refreshToken string, err error) {
	accessToken, err = s.sign(user, s.cfg.Secret, s.cfg.AccessTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}
	refreshToken, err = s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (s *TokenService) sign(user *models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:     user.Email,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccess verifies an access token and returns its claims.
func (s *TokenService) ParseAccess(tokenString string) (*SessionClaims, error) {
	return s.parse(tokenString, s.cfg.Secret)
}

// ParseRefresh verifies a refresh token against the refresh secret.
func (s *TokenService) ParseRefresh(tokenString string) (*SessionClaims, error) {
	return s.parse(tokenString, s.cfg.RefreshSecret)
}

func (s *TokenService) parse(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// NewOpaqueToken generates a random bearer token and the sha256 hash under
// which it is persisted. The raw value is handed to the caller exactly once;
// only the hash ever reaches storage.
func (s *TokenService) NewOpaqueToken() (raw, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(bytes)
	return raw, HashToken(raw), nil
}

// HashToken derives the storage representation of an opaque bearer token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
