package notifications

import (
	"time"

	"github.com/bissquit/comment-notifications/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total notification emails by delivery status",
		},
		[]string{"status"},
	)

	notificationSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to send one notification email",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	unsubscribes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "unsubscribes_total",
			Help:      "Unsubscribe requests by outcome",
		},
		[]string{"outcome"},
	)
)

func recordNotificationSent(status string) {
	notificationsSent.WithLabelValues(status).Inc()
}

func recordNotificationDuration(duration time.Duration) {
	notificationSendDuration.Observe(duration.Seconds())
}

func recordUnsubscribe(outcome string) {
	unsubscribes.WithLabelValues(outcome).Inc()
}
