package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_total", Help: "Per-user notification results by job"},
		[]string{"job", "result"},
	)
	passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_pass_duration_seconds",
			Help:    "Duration of a full notification pass over all users",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"},
	)
)

func init() { prometheus.MustRegister(notificationsTotal, passDuration) }
