package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Transfer link parsing
	// ============================================
	TransferLinkParseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_transfer_link_parse_total",
			Help: "Total number of transfer link parse attempts",
		},
		[]string{"result"},
	)

	// ============================================
	// Destination resolution
	// ============================================
	AddressResolutionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_address_resolution_total",
			Help: "Total number of destination resolutions by resolved kind",
		},
		[]string{"kind"},
	)

	AddressCheckMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_address_check_mismatch_total",
		Help: "Destinations or tags rejected because the oracle echoed a different value",
	})

	// ============================================
	// Balance sufficiency
	// ============================================
	SufficiencyEvaluationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_sufficiency_evaluation_total",
			Help: "Total number of balance sufficiency evaluations",
		},
		[]string{"outcome"},
	)

	// ============================================
	// Request signing
	// ============================================
	SignedRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_signed_request_total",
			Help: "Total number of outbound signed requests",
		},
		[]string{"method"},
	)

	SignatureVerificationFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_signature_verification_failed_total",
		Help: "Inbound requests rejected by signature verification",
	})

	// ============================================
	// HTTP server
	// ============================================
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
