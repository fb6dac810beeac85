package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware compara admin_key (query o header) contra la clave configurada.
// Sin clave configurada las rutas quedan abiertas.
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.Next()
			return
		}

		key := c.Query("admin_key")
		if key == "" {
			key = c.GetHeader(adminKeyHeader)
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid admin key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
