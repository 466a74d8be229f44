// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// RoleCustody may credit deposits and storage deposits.
	RoleCustody = "custody"
	// RoleUser may withdraw from the account named by its subject.
	RoleUser = "user"

	claimsKey    = "api.claims"
	bearerPrefix = "Bearer "
)

var (
	errMissingSecret   = errors.New("jwt secret is required")
	errMissingToken    = errors.New("missing bearer token")
	errInvalidToken    = errors.New("invalid bearer token")
	errForbidden       = errors.New("forbidden")
	errMissingSubject  = errors.New("missing subject")
	errUnsupportedRole = errors.New("unsupported role")
)

// Claims are the claims of an API token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks HS256 API tokens.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator returns an Authenticator signing with secret. now
// defaults to time.Now.
func NewAuthenticator(secret []byte, issuer string, now func() time.Time) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, errMissingSecret
	}
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		secret: secret,
		issuer: issuer,
		now:    now,
	}, nil
}

// Issue mints a token for subject with role, valid for ttl.
func (a *Authenticator) Issue(subject, role string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errMissingSubject
	}
	if role != RoleCustody && role != RoleUser {
		return "", fmt.Errorf("%w: %q", errUnsupportedRole, role)
	}
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates token and returns its claims.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// authenticate attaches the claims of a bearer token, if one is presented.
// Requests without a token continue anonymously.
func authenticate(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, errInvalidToken)
			return
		}
		claims, err := a.Parse(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, fmt.Errorf("%w: %w", errInvalidToken, err))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsOf(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// requireRole rejects requests whose token does not carry role.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsOf(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, errMissingToken)
			return
		}
		if claims.Role != role {
			abortWithError(c, http.StatusForbidden, errForbidden)
			return
		}
		c.Next()
	}
}
