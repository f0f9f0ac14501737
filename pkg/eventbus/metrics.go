package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// busMessages counts relay traffic.
// Labels: transport (watermill, redis), result (published, publish_failed, received, rejected, undecodable)
var busMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "phasetrack",
	Subsystem: "eventbus",
	Name:      "messages_total",
	Help:      "Change events relayed through the event bus",
}, []string{"transport", "result"})
