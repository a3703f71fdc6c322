// Package metrics declares the Prometheus collectors the server exports on
// /metrics.
//
// Metrics Categories:
//   - HTTP: request counts and latency per route pattern
//   - Recipes: writes by operation
//   - Memberships: favorite / cart toggles by kind and action
//   - Accounts: registrations, logins and rate-limited login attempts
//
// Usage:
//
//	metrics.RecordRecipeWrite("create")
//	metrics.RecordMembershipToggle("favorite", "add")
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics

	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by method and route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain Metrics

	// RecipeWritesTotal counts successful recipe writes.
	RecipeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_writes_total",
			Help: "Total number of recipe writes",
		},
		[]string{"operation"}, // "create", "update", "delete"
	)

	// MembershipTogglesTotal counts favorite and shopping-cart changes.
	MembershipTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_membership_toggles_total",
			Help: "Total number of favorite and shopping cart changes",
		},
		[]string{"kind", "action"}, // action: "add", "remove"
	)

	// SubscriptionTogglesTotal counts subscribe and unsubscribe operations.
	SubscriptionTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_subscription_toggles_total",
			Help: "Total number of subscribe and unsubscribe operations",
		},
		[]string{"action"},
	)

	// ShoppingListExportsTotal counts shopping list downloads.
	ShoppingListExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_list_exports_total",
			Help: "Total number of shopping list exports",
		},
	)

	// Account Metrics

	// AuthEventsTotal counts account events by type and outcome.
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_auth_events_total",
			Help: "Total number of authentication events",
		},
		[]string{"event", "result"}, // event: "register", "login", "github"; result: "success", "failure"
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_rate_limited_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"route"},
	)
)

// RecordHTTPRequest records one finished request. route is the chi route
// pattern ("/api/recipes/{id}"), never the raw path, to keep cardinality bounded.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordRecipeWrite(operation string) {
	RecipeWritesTotal.WithLabelValues(operation).Inc()
}

func RecordMembershipToggle(kind, action string) {
	MembershipTogglesTotal.WithLabelValues(kind, action).Inc()
}

func RecordSubscriptionToggle(action string) {
	SubscriptionTogglesTotal.WithLabelValues(action).Inc()
}

func RecordShoppingListExport() {
	ShoppingListExportsTotal.Inc()
}

// RecordAuthEvent records the outcome of a register, login or GitHub sign-in.
func RecordAuthEvent(event string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	AuthEventsTotal.WithLabelValues(event, result).Inc()
}

func RecordRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}
