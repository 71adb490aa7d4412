// Package mw contains HTTP middleware: operator authentication and rate limiting.
package mw

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"

	"configtree/internal/httpx/kit"
)

// AuthContext holds the operator extracted from a bearer token.
type AuthContext struct {
	Subject string
	Roles   []string
}

// Claims are the operator token claims. Tokens are issued elsewhere and
// signed with the shared HS256 secret.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Operator returns the authenticated operator of the request, if any.
func Operator(c *fiber.Ctx) (*AuthContext, bool) {
	ac, ok := c.Locals("auth").(*AuthContext)
	return ac, ok && ac != nil
}

// OperatorName is the operator subject or "" when unauthenticated.
func OperatorName(c *fiber.Ctx) string {
	if ac, ok := Operator(c); ok {
		return ac.Subject
	}
	return ""
}

// ParseToken verifies an HS256 operator token and returns its auth context.
func ParseToken(secret, issuer, token string) (*AuthContext, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &AuthContext{Subject: claims.Subject, Roles: claims.Roles}, nil
}

// SignToken issues an operator token. It is used by tests and tooling.
func SignToken(secret, issuer, subject string, roles ...string) (string, error) {
	claims := Claims{Roles: roles, RegisteredClaims: jwt.RegisteredClaims{Subject: subject, Issuer: issuer}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireOperator rejects requests without a valid bearer token. With an
// empty secret authentication is disabled and every request passes.
func RequireOperator(secret func() string, issuer func() string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := secret()
		if key == "" {
			return c.Next()
		}
		authz := c.Get("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return kit.Unauthorized("bearer token required")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		ac, err := ParseToken(key, issuer(), token)
		if err != nil {
			return kit.Unauthorized("invalid token")
		}
		c.Locals("auth", ac)
		return c.Next()
	}
}

// RequireRoles enforces that the operator has at least one of the roles. It
// must run after RequireOperator; with authentication disabled there is no
// operator and the check is skipped.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, ok := Operator(c)
		if !ok || len(roles) == 0 || lo.Some(ac.Roles, roles) {
			return c.Next()
		}
		return fiber.ErrForbidden
	}
}
