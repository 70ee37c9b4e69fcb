// Package auth implements the email/password authentication flow:
// registration with bcrypt password hashing, login issuing signed JWTs,
// token verification, and the HTTP middleware that scopes protected
// requests to the authenticated user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/todolst/internal/db/storage"
	"github.com/patric-chuzhbe/todolst/internal/logger"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

// MinPasswordLength is the registration password policy.
const MinPasswordLength = 8

var (
	// ErrInvalidCredentials is returned by Login for an unknown email and
	// for a wrong password alike, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrWeakPassword is returned by Register when the password is shorter
	// than MinPasswordLength.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)

	// ErrInvalidInput is returned by Register when a required field is empty.
	ErrInvalidInput = errors.New("username, email and password are required")

	// ErrMissingToken is returned by Authenticate when no token was presented.
	ErrMissingToken = errors.New("missing authorization token")

	// ErrInvalidToken is returned for malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid authorization token")

	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("authorization token expired")
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error)
}

// Auth handles registration, login, and JWT session token management.
type Auth struct {
	// db is the interface to the user data storage.
	db userKeeper

	// tokenSigningSecretKey is the key used to sign JWTs.
	tokenSigningSecretKey []byte

	// tokenTTL is the lifetime of issued session tokens.
	tokenTTL time.Duration

	// dummyHash is compared against when the email is unknown, so a login
	// probe costs the same whether or not the account exists.
	dummyHash []byte
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// New creates a new Auth handler with the given user data access layer,
// JWT signing secret and token lifetime.
func New(
	db userKeeper,
	tokenSigningSecretKey []byte,
	tokenTTL time.Duration,
) *Auth {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("todolst-dummy-credential"), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only fails on an invalid cost, which is constant here.
		panic(err)
	}

	return &Auth{
		db:                    db,
		tokenSigningSecretKey: tokenSigningSecretKey,
		tokenTTL:              tokenTTL,
		dummyHash:             dummyHash,
	}
}

// Register creates a new account. The stored record holds a bcrypt hash;
// the plaintext password never reaches the storage layer.
func (a *Auth) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	usr := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		CreatedAt:    time.Now(),
	}

	if _, err := a.db.CreateUser(ctx, usr); err != nil {
		return nil, err
	}

	return usr, nil
}

// Login verifies the credentials and issues a signed session token.
// Unknown email and wrong password produce the same error.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	usr, found, err := a.db.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !found {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	return a.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID: usr.ID,
	})
}

// Authenticate verifies the token signature and expiry and returns the
// user ID embedded in the claims.
func (a *Auth) Authenticate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.tokenSigningSecretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

// BuildJWTString signs the claims with the server secret.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.tokenSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// AuthenticateUser is an HTTP middleware that authenticates incoming requests
// using the bearer token from the Authorization header. It confirms the user
// still exists in storage and stores the user ID in the request context.
// Every failure maps to 401 without detailing the reason.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.Authenticate(getBearerToken(request))
		if err != nil {
			logger.Log.Debugln("Error calling the `a.Authenticate()`: ", zap.Error(err))
			http.Error(response, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(response, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		requestWithCtx := request.WithContext(ctx)

		h.ServeHTTP(response, requestWithCtx)
	}

	return http.HandlerFunc(middleware)
}

func getBearerToken(request *http.Request) string {
	authHeader := request.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}
