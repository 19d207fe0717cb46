package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	httpmetrics "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

// HTTPMetrics records request counts and latencies per route
type HTTPMetrics struct {
	mdlw httpmetrics.Middleware
}

// NewHTTPMetrics registers the HTTP collectors on reg
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		mdlw: httpmetrics.New(httpmetrics.Config{
			Recorder: metricsprom.NewRecorder(metricsprom.Config{
				Prefix:   "redbot",
				Registry: reg,
			}),
			GroupedStatus: true,
		}),
	}
}

// Handler instruments a route under a fixed handler id. A nil
// HTTPMetrics leaves the route untouched.
func (m *HTTPMetrics) Handler(handlerID string) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return std.HandlerProvider(handlerID, m.mdlw)
}
