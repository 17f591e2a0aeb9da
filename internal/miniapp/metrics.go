package miniapp

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dingd",
			Subsystem: "miniapp",
			Name:      "tasks_total",
			Help:      "Mini-app handler tasks by handler and result",
		},
		[]string{"handler", "result"},
	)

	levelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dingd",
			Subsystem: "miniapp",
			Name:      "level_duration_seconds",
			Help:      "Time to run all handlers of one level",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"level"},
	)

	interruptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dingd",
			Subsystem: "miniapp",
			Name:      "dispatch_interrupted_total",
			Help:      "Dispatches whose remaining levels were abandoned",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal, levelDuration, interruptedTotal)
}
