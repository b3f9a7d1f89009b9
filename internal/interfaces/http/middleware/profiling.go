package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
)

// Profiling runs each request under route and method profiling labels.
// Requests to skipPaths, and all requests when enabled is false, pass through.
func Profiling(enabled bool, skipPaths ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if slices.Contains(skipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelMethod: c.Request.Method,
			telemetry.ProfilingLabelRoute:  routePattern(c),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
