package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// published counts events handed to the broadcaster.
	// Labels: kind
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasetrack",
		Subsystem: "notifier",
		Name:      "published_total",
		Help:      "Change events published to live subscribers",
	}, []string{"kind"})

	missedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phasetrack",
		Subsystem: "notifier",
		Name:      "missed_total",
		Help:      "Events dropped because a subscriber buffer was full",
	})

	// removals counts subscribers that left.
	// Labels: reason (closed, slow, shutdown)
	removals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasetrack",
		Subsystem: "notifier",
		Name:      "removed_subscribers_total",
		Help:      "Subscribers removed from the broadcaster",
	}, []string{"reason"})

	activeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phasetrack",
		Subsystem: "notifier",
		Name:      "subscribers",
		Help:      "Live subscribers",
	})
)
