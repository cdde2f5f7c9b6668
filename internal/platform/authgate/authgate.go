// Package authgate is a bearer-JWT gate for the risk engine's operator
// endpoints, standing in for the externally-owned operator auth system.
// Carried from the gateway example's JWT middleware.
package authgate

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"paysaga/internal/platform/apierrors"
)

type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Gate validates bearer tokens signed with the shared operator secret and
// requires the named role to be present on the token's claims.
type Gate struct {
	secret       []byte
	requiredRole string
}

func New(secret, requiredRole string) *Gate {
	return &Gate{secret: []byte(secret), requiredRole: requiredRole}
}

func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abort(c, apierrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return g.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			abort(c, apierrors.NewUnauthorizedError("invalid or expired token"))
			return
		}

		if g.requiredRole != "" && claims.Role != g.requiredRole {
			abort(c, apierrors.NewForbiddenError("token does not carry the required role"))
			return
		}

		c.Set("operator_subject", claims.Subject)
		c.Next()
	}
}

func abort(c *gin.Context, err apierrors.APIError) {
	c.AbortWithStatusJSON(err.Status, err)
}
