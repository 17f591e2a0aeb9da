package chatbot

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dingd",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Inbound robot messages by selection outcome",
		},
		[]string{"outcome"},
	)

	handlerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dingd",
			Subsystem: "chat",
			Name:      "handler_runs_total",
			Help:      "Chat handler pipeline runs by handler and result",
		},
		[]string{"handler", "result"},
	)
)

func init() {
	prometheus.MustRegister(messagesTotal, handlerRunsTotal)
}
