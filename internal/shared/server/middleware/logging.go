package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"advisor-backend/internal/shared/telemetry"
)

// Context keys handlers set so the access log can correlate a request with
// the recommendation it touched.
const (
	RecommendationIDKey = "recommendationId"
	TransitionKey       = "statusTransition"
)

// Logging writes one access log line per request once the handler chain has
// finished. Preflights and paths in quiet are not logged unless they fail.
func Logging(quiet ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && (c.Request.Method == http.MethodOptions || skip[c.Request.URL.Path]) {
			return
		}

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
		}
		if user := UserIDFromContext(c); user != "" {
			fields["user_id"] = user
			fields["is_guest"] = IsGuest(c)
		}
		if id := c.GetString(RecommendationIDKey); id != "" {
			fields["recommendation_id"] = id
		}
		if tr := c.GetString(TransitionKey); tr != "" {
			fields["status_transition"] = tr
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
