package service

import "github.com/prometheus/client_golang/prometheus"

var duplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "dingd",
	Subsystem: "ingress",
	Name:      "duplicates_total",
	Help:      "Redelivered callbacks dropped by de-duplication",
})

func init() {
	prometheus.MustRegister(duplicatesTotal)
}
