package monitoring

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "action", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "action"},
	)

	XPAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_xp_awarded_total",
		Help: "XP credited to users by the progress engine",
	})

	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_badges_awarded_total",
			Help: "Badges awarded, by badge id",
		},
		[]string{"badge"},
	)

	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_level_ups_total",
		Help: "Activities that moved a user to a higher level",
	})

	LeaderboardWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_leaderboard_write_failures_total",
		Help: "Best-effort leaderboard writes that failed",
	})

	StreakFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_streak_fallbacks_total",
		Help: "Streak updates that kept the previous value because lastActivityDate was unreadable",
	})
)

func init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		XPAwarded,
		BadgesAwarded,
		LevelUps,
		LeaderboardWriteFailures,
		StreakFallbacks,
	)
}

// MetricsMiddleware records request counts and latency. Action-routed
// requests are labelled by their resolved action (see handlers.ActionLocal).
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		action, _ := c.Locals("action").(string)
		if action == "" {
			action = c.Route().Path
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		RequestCounter.WithLabelValues(c.Method(), action, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(c.Method(), action).Observe(time.Since(start).Seconds())
		return err
	}
}

func PrometheusHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
