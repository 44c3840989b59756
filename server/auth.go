package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nickyhof/tablekv/core"
)

// Credentials are the accepted login.
type Credentials struct {
	Username string
	// PasswordHash is a bcrypt digest of the password.
	PasswordHash string
	// JWTSecret, when set, also accepts an HS256 token whose subject is
	// Username in place of the password.
	JWTSecret string
}

// Authenticator checks AUTH requests. Credentials can be replaced while
// sessions are running.
type Authenticator struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewAuthenticator(creds Credentials) *Authenticator {
	return &Authenticator{creds: creds}
}

// Update replaces the accepted credentials. Sessions that are already
// authenticated stay authenticated.
func (a *Authenticator) Update(creds Credentials) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creds = creds
}

func (a *Authenticator) credentials() Credentials {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.creds
}

// authResult represents the result of an authentication attempt.
type authResult struct {
	identity  core.Identity
	expiresAt time.Time
}

// Verify checks user and password. The password is either the plain password
// or, when a JWT secret is configured, a signed token.
func (a *Authenticator) Verify(user, password string) (authResult, error) {
	creds := a.credentials()

	if user == "" || user != creds.Username {
		return authResult{}, fmt.Errorf("%w: unknown user %q", core.ErrAuthenticationFailed, user)
	}

	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) == nil {
		return authResult{identity: core.Identity{Name: user}}, nil
	}

	if creds.JWTSecret != "" {
		result, err := validateJWT(password, creds.JWTSecret, user)
		if err == nil {
			return result, nil
		}
		return authResult{}, fmt.Errorf("%w: %w", core.ErrAuthenticationFailed, err)
	}

	return authResult{}, fmt.Errorf("%w: wrong password for %q", core.ErrAuthenticationFailed, user)
}

// validateJWT validates an HS256 token and checks that its subject is user.
func validateJWT(tokenString, secret, user string) (authResult, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	if err != nil {
		return authResult{}, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return authResult{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authResult{}, errors.New("invalid token claims")
	}

	subject, _ := claims.GetSubject()
	if subject != user {
		return authResult{}, fmt.Errorf("token subject %q does not match user %q", subject, user)
	}

	email, _ := claims["email"].(string)

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity: core.Identity{
			Name:  user,
			Email: email,
		},
		expiresAt: expiresAt,
	}, nil
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated reports whether the connection holds a login that is
// still valid at now.
func (cs *ConnectionState) IsAuthenticated(now time.Time) bool {
	if !cs.authenticated {
		return false
	}
	return cs.tokenExpiry.IsZero() || now.Before(cs.tokenExpiry)
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

func (cs *ConnectionState) login(result authResult) {
	identity := result.identity
	cs.identity = &identity
	cs.authenticated = true
	cs.tokenExpiry = result.expiresAt
}
