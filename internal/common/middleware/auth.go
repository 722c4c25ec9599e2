package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thenorthsolution/djs-utils/internal/common/errors"
)

// RequireAdminToken accepts requests carrying "Authorization: Bearer <token>".
// An empty token rejects every request.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		presented, found := strings.CutPrefix(header, "Bearer ")
		if token == "" || !found || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			AbortWithError(c, errors.NewUnauthorizedError("Admin token required"))
			return
		}
		c.Next()
	}
}
