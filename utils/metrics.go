package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComplianceEvaluations counts checkout document evaluations by outcome.
	ComplianceEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rentline",
		Name:      "compliance_evaluations_total",
		Help:      "Checkout document evaluations by booking category and completion.",
	}, []string{"category", "complete"})

	// AgreementsComposed counts finished agreement documents.
	AgreementsComposed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rentline",
		Name:      "agreements_composed_total",
		Help:      "Rental agreement documents composed.",
	})

	// AgreementImageFallbacks counts images that could not be placed.
	AgreementImageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rentline",
		Name:      "agreement_image_fallbacks_total",
		Help:      "Agreement images replaced by a text or line fallback.",
	}, []string{"slot"})

	// AgreementComposeSeconds observes composition latency.
	AgreementComposeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rentline",
		Name:      "agreement_compose_seconds",
		Help:      "Time spent composing an agreement, image resolution included.",
		Buckets:   prometheus.DefBuckets,
	})
)
