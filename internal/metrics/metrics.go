package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCallsTotal tracks outbound provider calls per network/provider/operation.
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_provider_calls_total",
			Help: "Total number of provider API calls",
		},
		[]string{"network", "provider", "operation"},
	)

	// ProviderErrorsTotal tracks failed calls by taxonomy class.
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_provider_errors_total",
			Help: "Total number of failed provider API calls",
		},
		[]string{"network", "provider", "operation", "error_type"},
	)

	// ProviderCallDuration tracks provider call latency.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_provider_call_duration_seconds",
			Help:    "Provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network", "provider", "operation"},
	)

	// MissedBlockTxs counts block-txs responses that failed the raw-shape
	// check, i.e. blocks whose transfers a provider likely under-reported.
	MissedBlockTxs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_missed_block_txs_total",
			Help: "Block-txs responses rejected by the raw response check",
		},
		[]string{"network", "provider"},
	)

	// ParseFailures counts transactions skipped inside a batch because one
	// entry failed to parse; the rest of the batch still goes through.
	ParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_parse_failures_total",
			Help: "Individual transactions skipped due to parse failures",
		},
		[]string{"network", "provider"},
	)

	// ProviderStatus exports each provider's monitor status
	// (0 healthy, 1 degraded, 2 throttled, 3 blocked).
	ProviderStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "explorer_provider_status",
			Help: "Provider health status (0=healthy 1=degraded 2=throttled 3=blocked)",
		},
		[]string{"network", "provider"},
	)

	// DefaultProviderSwitches counts auto-switch promotions per network/operation.
	DefaultProviderSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_default_provider_switches_total",
			Help: "Times the default provider was switched by the health checker",
		},
		[]string{"network", "operation"},
	)

	// HealthCheckLastStatus is the last probe outcome per network/provider
	// (1 healthy, 0 unhealthy).
	HealthCheckLastStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "explorer_health_check_last_status",
			Help: "Last health probe outcome (1=healthy 0=unhealthy)",
		},
		[]string{"network", "provider", "operation"},
	)

	// LatestBlockProcessed is the newest block height whose transactions
	// were fetched and parsed, per network/provider.
	LatestBlockProcessed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "explorer_latest_block_processed",
			Help: "Latest block height processed per provider",
		},
		[]string{"network", "provider"},
	)
)
