package middleware

import (
	"net/http"
	"time"

	"github.com/sakif/foodgram/internal/metrics"
)

// Metrics records request count and latency per chi route pattern. Labels
// use the pattern, not the raw path, so /api/recipes/1 and /api/recipes/2
// share one series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
	})
}
