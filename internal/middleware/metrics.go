package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application counters. HTTP-level metrics come from fiberprometheus; these
// track domain events.
var (
	StoriesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aitookmyjob_stories_submitted_total",
		Help: "Stories submitted, labelled by computed risk band.",
	}, []string{"risk_band"})

	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aitookmyjob_moderation_actions_total",
		Help: "Moderation decisions, labelled by action.",
	}, []string{"action"})

	RedisErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aitookmyjob_redis_errors_total",
		Help: "Redis operation failures observed by the rate limiter.",
	})
)

// RegisterMetrics attaches the Prometheus middleware and the /metrics
// endpoint to the app.
func RegisterMetrics(app *fiber.App) {
	prom := fiberprometheus.New("aitookmyjob")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
}
