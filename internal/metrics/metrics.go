package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics surface the services depend on. The Prometheus
// implementation records real metrics; NoopMetrics is used when metrics are
// disabled.
type Recorder interface {
	// RecordLogin records a login attempt through an auth provider.
	RecordLogin(provider string, success bool)

	// RecordCodeIssued records an authorization-code mint.
	RecordCodeIssued(success bool)

	// RecordGrantExchange records a token-endpoint exchange.
	// grantType: authorization_code, refresh_token, none.
	// result: success, invalid_grant, missing_grant, store_error.
	RecordGrantExchange(grantType, result string, duration time.Duration)

	// RecordDeviceListing records a device-discovery request.
	// result: success, unauthorized, no_user_data, store_error.
	RecordDeviceListing(result string, deviceCount int)

	// RecordStoreError records a failed store operation.
	RecordStoreError(op string)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Skill-link flow
	LoginAttemptsTotal  *prometheus.CounterVec
	AuthCodesTotal      *prometheus.CounterVec
	GrantExchangesTotal *prometheus.CounterVec
	GrantExchangeTime   *prometheus.HistogramVec

	// Device discovery
	DeviceListingsTotal *prometheus.CounterVec
	DevicesPerListing   prometheus.Histogram

	// Store
	StoreErrorsTotal *prometheus.CounterVec

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag. Uses sync.Once so
// Prometheus collectors are only registered once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		LoginAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homelink_login_attempts_total",
				Help: "Total number of skill-link login attempts",
			},
			[]string{"provider", "result"},
		),
		AuthCodesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homelink_authorization_codes_total",
				Help: "Total number of authorization codes minted",
			},
			[]string{"result"},
		),
		GrantExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homelink_grant_exchanges_total",
				Help: "Total number of token-endpoint exchanges",
			},
			[]string{"grant_type", "result"},
		),
		GrantExchangeTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "homelink_grant_exchange_duration_seconds",
				Help:    "Time taken to process a token-endpoint exchange",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"grant_type"},
		),
		DeviceListingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homelink_device_listings_total",
				Help: "Total number of device-discovery requests",
			},
			[]string{"result"},
		),
		DevicesPerListing: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "homelink_devices_per_listing",
				Help:    "Number of devices returned per discovery request",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
		StoreErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homelink_store_errors_total",
				Help: "Total number of failed store operations",
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homelink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "homelink_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "homelink_http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests",
			},
		),
	}
}

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

func boolResult(success bool) string {
	if success {
		return resultSuccess
	}
	return resultFailure
}

func (m *Metrics) RecordLogin(provider string, success bool) {
	m.LoginAttemptsTotal.WithLabelValues(provider, boolResult(success)).Inc()
}

func (m *Metrics) RecordCodeIssued(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.AuthCodesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordGrantExchange(grantType, result string, duration time.Duration) {
	m.GrantExchangesTotal.WithLabelValues(grantType, result).Inc()
	m.GrantExchangeTime.WithLabelValues(grantType).Observe(duration.Seconds())
}

func (m *Metrics) RecordDeviceListing(result string, deviceCount int) {
	m.DeviceListingsTotal.WithLabelValues(result).Inc()
	if result == resultSuccess {
		m.DevicesPerListing.Observe(float64(deviceCount))
	}
}

func (m *Metrics) RecordStoreError(op string) {
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}
