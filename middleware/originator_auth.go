// middleware/originator_auth.go

package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
)

// OriginatorClaims identifies the originator a bearer token was issued to
type OriginatorClaims struct {
	jwt.StandardClaims
	Originator string `json:"originator"`
}

// OriginatorAuth authenticates the X-M2M-Origin of each request. With an
// empty secret the header is trusted as is; otherwise a bearer token signed
// with secret must name the same originator.
func OriginatorAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimed := c.GetHeader("X-M2M-Origin")
		if secret == "" {
			if claimed != "" {
				c.Set("originator", claimed)
			}
			c.Next()
			return
		}

		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			logger.Warn("No Authorization token provided", zap.String("originator", claimed))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := parseToken(tokenString, secret)
		if err != nil {
			logger.Warn("Error parsing token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		originator := claims.Originator
		if originator == "" {
			originator = claims.Subject
		}
		if claimed != "" && claimed != originator {
			logger.Warn("Originator does not match token",
				zap.String("claimed", claimed),
				zap.String("token", originator))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}

		c.Set("originator", originator)
		c.Next()
	}
}

func parseToken(tokenString, secret string) (*OriginatorClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	token, err := jwt.ParseWithClaims(tokenString, &OriginatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*OriginatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token or wrong claims type")
}
