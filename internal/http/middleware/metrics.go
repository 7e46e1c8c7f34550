package middleware

import (
	"strconv"
	"time"

	"challenge_arena/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics пишет латентность по шаблону маршрута (не по сырому пути)
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
