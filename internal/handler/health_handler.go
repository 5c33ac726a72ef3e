package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

func RegisterHealthRoutes(app fiber.Router, store Pinger, driver string) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(store, driver))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(store Pinger, driver string) fiber.Handler {
	if driver == "" {
		driver = "store"
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		var storeErr error
		if store != nil {
			storeErr = store.Ping(ctx)
		}

		storeStatus := "ok"
		status := "ready"
		statusCode := fiber.StatusOK
		if storeErr != nil {
			storeStatus = "down"
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				driver: storeStatus,
			},
		})
	}
}
