package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	AuthRequestsTotal         metric.Int64Counter
	VerificationEmailsTotal   metric.Int64Counter
	ProductSearchDuration     metric.Float64Histogram
	ProductsCreatedTotal      metric.Int64Counter
	OrdersPlacedTotal         metric.Int64Counter
	DbQueryDurationSeconds    metric.Float64Histogram
	DbQueryErrorsTotal        metric.Int64Counter
	OutboundCallFailuresTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider once.
// Call it after the provider is installed; otherwise the no-op provider is used.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("secondhand-market")
		m := &AppMetrics{}
		var err error

		m.AuthRequestsTotal, err = meter.Int64Counter(
			"auth_requests_total",
			metric.WithDescription("Authentication operations by operation and outcome"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_requests_total: %v", err)
		}

		m.VerificationEmailsTotal, err = meter.Int64Counter(
			"verification_emails_total",
			metric.WithDescription("Verification code emails sent"),
			metric.WithUnit("{email}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create verification_emails_total: %v", err)
		}

		m.ProductSearchDuration, err = meter.Float64Histogram(
			"product_search_duration_seconds",
			metric.WithDescription("Duration of product listing/search requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create product_search_duration_seconds: %v", err)
		}

		m.ProductsCreatedTotal, err = meter.Int64Counter(
			"products_created_total",
			metric.WithDescription("Products listed for sale"),
			metric.WithUnit("{product}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create products_created_total: %v", err)
		}

		m.OrdersPlacedTotal, err = meter.Int64Counter(
			"orders_placed_total",
			metric.WithDescription("Orders placed"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create orders_placed_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.OutboundCallFailuresTotal, err = meter.Int64Counter(
			"outbound_call_failures_total",
			metric.WithDescription("Failed calls to external services (smtp, google)"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create outbound_call_failures_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the AppMetrics instance, initializing it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
