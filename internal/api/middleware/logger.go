package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request with its status and latency.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		if len(c.Errors) > 0 {
			log.Printf("[API] %s %s %d %v errors=%s", c.Request.Method, path, c.Writer.Status(), latency, c.Errors.String())
			return
		}
		log.Printf("[API] %s %s %d %v", c.Request.Method, path, c.Writer.Status(), latency)
	}
}
