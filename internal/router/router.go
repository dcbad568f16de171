package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rollcall-io/attendance-api/internal/config"
	"github.com/rollcall-io/attendance-api/internal/handler"
	"github.com/rollcall-io/attendance-api/internal/middleware"
	"github.com/rollcall-io/attendance-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler  *handler.SessionHandler
	StatusHandler   *handler.StatusHandler
	LedgerHandler   *handler.LedgerHandler
	CheckinHandler  *handler.CheckinHandler
	FeedbackHandler *handler.FeedbackHandler
	ReportHandler   *handler.ReportHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	activities := api.Group("/activities", jwtMiddleware)
	sessions := api.Group("/sessions", jwtMiddleware)

	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterActivityRoutes(activities)
		deps.SessionHandler.RegisterSessionRoutes(sessions)
	}

	if deps.StatusHandler != nil {
		deps.StatusHandler.RegisterActivityRoutes(activities)
		statuses := api.Group("/statuses", jwtMiddleware)
		deps.StatusHandler.RegisterStatusRoutes(statuses)
	}

	if deps.LedgerHandler != nil {
		deps.LedgerHandler.RegisterSessionRoutes(sessions)
		deps.LedgerHandler.RegisterActivityRoutes(activities)
	}

	if deps.CheckinHandler != nil {
		deps.CheckinHandler.RegisterSessionRoutes(sessions)
		// Verification submits burn a single-use credential each; the
		// limiter keeps brute-force token guessing off the collaborator.
		checkins := api.Group("/checkins", jwtMiddleware,
			middleware.RateLimit("checkin-submit", 10, time.Minute))
		deps.CheckinHandler.RegisterSubmitRoute(checkins)
	}

	if deps.FeedbackHandler != nil {
		feedback := api.Group("/feedback", jwtMiddleware)
		deps.FeedbackHandler.Register(feedback)
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterSessionRoutes(sessions)
		deps.ReportHandler.RegisterActivityRoutes(activities)
	}
}
