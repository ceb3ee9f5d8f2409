package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CustomLoggerMiddleware logs HTTP requests in simple text format
func CustomLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		userID := uint(0)
		if id, exists := c.Get("userID"); exists {
			if v, ok := id.(uint); ok {
				userID = v
			}
		}

		fmt.Printf("[API] %s | %s | %d | %s | %s | User: %d\n",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency.String(),
			c.ClientIP(),
			userID,
		)
	}
}
