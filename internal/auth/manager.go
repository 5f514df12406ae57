package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"petsoft/internal/cache"
	"petsoft/internal/domain"
)

const sessionKeyPrefix = "session:"

// Claims is the JWT payload of a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager signs session tokens and tracks live sessions so they can be revoked.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	sessions cache.Store
	now      func() time.Time
}

func NewManager(secret string, ttl time.Duration, sessions cache.Store) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		now:      time.Now,
	}, nil
}

// TTL reports how long issued sessions stay valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session for user and returns its signed token.
func (m *Manager) Issue(ctx context.Context, user *domain.User) (string, Session, error) {
	if user == nil || user.ID == "" {
		return "", Session{}, errors.New("user is required")
	}

	now := m.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}

	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	if err := m.sessions.Set(ctx, sessionKeyPrefix+session.ID, []byte(user.ID), m.ttl); err != nil {
		return "", Session{}, fmt.Errorf("register session: %w", err)
	}

	return token, session, nil
}

// Parse verifies token and returns the session it represents. Tokens that are
// expired, forged, or revoked yield ErrUnauthenticated.
func (m *Manager) Parse(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrUnauthenticated
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Session{}, ErrUnauthenticated
	}
	if claims.ID == "" || claims.Subject == "" {
		return Session{}, ErrUnauthenticated
	}

	userID, ok, err := m.sessions.Get(ctx, sessionKeyPrefix+claims.ID)
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if !ok || string(userID) != claims.Subject {
		return Session{}, ErrUnauthenticated
	}

	return Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke terminates a session; later Parse calls for its token fail.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, sessionKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
