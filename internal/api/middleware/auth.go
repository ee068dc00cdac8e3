package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const principalKey = "principal"

// Principal is the authenticated caller, as asserted by the identity
// provider's token. This service never issues tokens.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// AuthMiddleware validates the bearer token and stores the principal in
// the request context
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := ParsePrincipal(c, secret)
		if err != nil {
			logger.Debug("Auth rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// ParsePrincipal extracts and validates the bearer token from the request.
// Used directly by the dual-purpose gateway-cancel handler, which is public
// but serves authenticated order cancellations too.
func ParsePrincipal(c *gin.Context, secret string) (*Principal, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, fmt.Errorf("missing authorization header")
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == header {
		return nil, fmt.Errorf("malformed authorization header")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim")
	}

	principal := &Principal{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		principal.Role = role
	}

	return principal, nil
}

// GetPrincipal returns the authenticated principal from the context
func GetPrincipal(c *gin.Context) (*Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RoleRequired gates a route to the given roles
func RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
