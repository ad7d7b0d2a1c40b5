package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Auth handles register login and token verification for the register UI.
type Auth struct {
	store    *store.Store
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuth creates a new auth service
func NewAuth(st *store.Store, secret string, tokenTTL time.Duration) *Auth {
	return &Auth{
		store:    st,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   util.GetLogger(),
	}
}

// Register creates a login account with a bcrypt-hashed password.
func (a *Auth) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return nil, fmt.Errorf("username and a password of at least 6 characters are required: %w", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	a.logger.Info("User registered", zap.String("username", username))
	return user, nil
}

// Login checks credentials and issues a signed token. Unknown usernames and
// wrong passwords return the same error.
func (a *Auth) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(a.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	a.logger.Info("User logged in", zap.String("username", user.Username))
	return signed, user, nil
}

// VerifyToken parses and validates a token, returning its claims.
func (a *Auth) VerifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
