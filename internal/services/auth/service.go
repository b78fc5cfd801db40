package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/mcoot/searchgame/internal/dependencies/clock"
	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

// Errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// MaxNameLength bounds display names, in runes
const MaxNameLength = 100

const userIDClaim = "userId"

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// Registration is the outcome of Register
type Registration struct {
	User  *model.User
	Token string
	// Created is false when the phone was already registered
	Created bool
}

// Service handles registration and bearer tokens
type Service struct {
	storage storage.Storage
	cache   storage.LeaderboardCache
	clock   clock.Clock
	logger  *slog.Logger

	signingKey []byte
	tokenTTL   time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	// Secret is the root secret the token signing key is derived from
	Secret   string
	TokenTTL time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:   "fallback-secret",
		TokenTTL: 24 * time.Hour,
	}
}

// New creates a new auth Service. cache holds leaderboards showing user
// names and may be nil.
func New(store storage.Storage, cache storage.LeaderboardCache, clock clock.Clock, logger *slog.Logger, cfg Config) (*Service, error) {
	defaults := DefaultConfig()
	if cfg.Secret == "" {
		cfg.Secret = defaults.Secret
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}

	if cache == nil {
		cache = storage.NopCache{}
	}

	key, err := deriveSigningKey(cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Service{
		storage:    store,
		cache:      cache,
		clock:      clock,
		logger:     logger,
		signingKey: key,
		tokenTTL:   cfg.TokenTTL,
	}, nil
}

// deriveSigningKey expands the configured secret into a 32-byte HMAC key
func deriveSigningKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("searchgame token signing"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// NormalizePhone strips spaces, dashes and parentheses and validates the
// result as an optionally +-prefixed number of up to 16 digits.
func NormalizePhone(phone string) (string, error) {
	normalized := phoneSeparators.Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(normalized) {
		return "", model.InvalidArgument("Please provide a valid phone number")
	}
	return normalized, nil
}

// Register creates a user for a new phone number, or returns the existing
// user for a known one. Either way a fresh token is issued.
func (s *Service) Register(ctx context.Context, name, phone string) (*Registration, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(phone) == "" {
		return nil, model.InvalidArgument("Name and phone number are required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, model.InvalidArgument(fmt.Sprintf("Name must be at most %d characters", MaxNameLength))
	}

	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	user, created, err := s.findOrCreateUser(ctx, name, phone)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &Registration{User: user, Token: token, Created: created}, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, name, phone string) (*model.User, bool, error) {
	existing, err := s.storage.GetUserByPhone(ctx, phone)
	if err == nil {
		return s.refreshName(ctx, existing, name)
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, false, err
	}

	now := s.clock.Now()
	user := &model.User{
		ID:        model.UserID(uuid.NewString()),
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.storage.CreateUser(ctx, user)
	if errors.Is(err, model.ErrPhoneExists) {
		// Lost a race with a concurrent registration of the same phone
		existing, err := s.storage.GetUserByPhone(ctx, phone)
		if err != nil {
			return nil, false, err
		}
		return s.refreshName(ctx, existing, name)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)))
	return user, true, nil
}

func (s *Service) refreshName(ctx context.Context, user *model.User, name string) (*model.User, bool, error) {
	if user.Name == name {
		return user, false, nil
	}

	now := s.clock.Now()
	if err := s.storage.UpdateUserName(ctx, user.ID, name, now); err != nil {
		return nil, false, err
	}
	user.Name = name
	user.UpdatedAt = now

	// Cached leaderboards carry the old name
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", slog.String("error", err.Error()))
	}
	return user, false, nil
}

// IssueToken signs a bearer token for the user
func (s *Service) IssueToken(userID model.UserID) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		userIDClaim: string(userID),
		"iat":       now.Unix(),
		"exp":       now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ValidateToken verifies a bearer token and returns the user it was issued to
func (s *Service) ValidateToken(token string) (model.UserID, error) {
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims[userIDClaim].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return model.UserID(userID), nil
}

// Me returns the user a validated token belongs to
func (s *Service) Me(ctx context.Context, userID model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, userID)
}
