package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Images
	ImagesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "images_generated_total",
			Help: "Images created through the generation flow",
		},
		[]string{"fallback"}, // true|false
	)
	LikesToggled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_likes_toggled_total",
			Help: "Like toggles by resulting action",
		},
		[]string{"action"}, // liked|unliked
	)
	ImagesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "images_deleted_total",
			Help: "Images removed by their owner or an admin",
		},
	)

	// Users
	UsersRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Successful registrations",
		},
	)
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Rejected authentication attempts",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			ImagesGenerated,
			LikesToggled,
			ImagesDeleted,
			UsersRegistered,
			AuthFailures,
		)
	})
}
