package middleware

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware handles CORS headers and preflight requests. The allowed
// origin is configurable since this API has no fixed public frontend
// (unlike a single-origin demo site); it defaults to "*" for local/CLI use.
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("VERIFY_ALLOWED_ORIGIN")
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Expose-Headers", "X-Verification-Report")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
