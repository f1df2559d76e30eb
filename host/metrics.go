package host

import "github.com/prometheus/client_golang/prometheus"

var ReplicaOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "swarmdb",
	Subsystem: "replica",
	Name:      "ops",
}, []string{"source", "method"})

var ReplicaPublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "swarmdb",
	Subsystem: "replica",
	Name:      "publish_errors",
})

// Collectors lists the package metrics for registration
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{ReplicaOps, ReplicaPublishErrors}
}
