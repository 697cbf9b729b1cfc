package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// readinessProbe is one named dependency check. Serving outreach traffic
// needs postgres (registry, schedules) and redis (call rate limiting);
// either being down makes accepting distributions unsafe.
type readinessProbe struct {
	name  string
	check func(ctx context.Context) error
}

func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	probes := []readinessProbe{
		{name: "postgres", check: sqlDB.PingContext},
		{name: "redis", check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	app.Get("/livez", livezHandler())
	app.Get("/readyz", readyzHandler(probes))
}

func livezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func readyzHandler(probes []readinessProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		checks := fiber.Map{}
		ready := true
		for _, probe := range probes {
			if err := probe.check(ctx); err != nil {
				checks[probe.name] = "down"
				ready = false
				continue
			}
			checks[probe.name] = "ok"
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
