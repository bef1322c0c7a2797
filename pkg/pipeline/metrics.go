// Copyright 2024-2026 Aiku AI

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
	OutcomeNoRoute   = "no_route"
	OutcomeNotJoined = "not_joined"
	OutcomeFailed    = "failed"
	OutcomePanicked  = "panicked"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookrelay_pipeline_events_total",
		Help: "Events taken off the delivery queue, by outcome.",
	}, []string{"outcome"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hookrelay_pipeline_queue_depth",
		Help: "Events waiting in the delivery queue.",
	})
)
