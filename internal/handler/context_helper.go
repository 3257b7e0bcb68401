package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classpulse/classpulse-api/internal/middleware"
	"github.com/classpulse/classpulse-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// principalFromContext resolves the acting principal from the stored
// claims. A malformed claim set (student without ownership links)
// yields false and must be treated as unauthorized.
func principalFromContext(c *gin.Context) (models.Principal, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, false
	}
	return claims.Principal()
}
