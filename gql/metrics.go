package gql

import "github.com/prometheus/client_golang/prometheus"

var Rebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "swarmdb",
	Subsystem: "gql",
	Name:      "rebuilds",
}, []string{"kind"})

var Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "swarmdb",
	Subsystem: "gql",
	Name:      "deliveries",
}, []string{"kind"})

var DroppedNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "swarmdb",
	Subsystem: "gql",
	Name:      "dropped_notifications",
}, []string{"reason"})

var ActiveSubs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "swarmdb",
	Subsystem: "gql",
	Name:      "active_subs",
}, []string{"kind"})

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{Rebuilds, Deliveries, DroppedNotifications, ActiveSubs}
}
