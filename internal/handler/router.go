package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/message-scheduler/internal/contacts"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"github.com/kursadbilgin/message-scheduler/internal/provider"
	"github.com/kursadbilgin/message-scheduler/internal/service"
	"github.com/kursadbilgin/message-scheduler/internal/transport"
	"github.com/kursadbilgin/message-scheduler/internal/visibility"
	"go.uber.org/zap"
)

type Dependencies struct {
	Session     *service.Session
	History     *service.HistoryRecorder
	Links       provider.LinkBuilder
	Signal      *visibility.Broadcaster
	Contacts    contacts.Source
	Store       Pinger
	StoreDriver string
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

func NewApp(deps Dependencies) (*fiber.App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "message-scheduler",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})

	app.Use(transport.RequestID())
	if deps.Metrics != nil {
		app.Use(deps.Metrics.HTTPMiddleware())
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	RegisterHealthRoutes(app, deps.Store, deps.StoreDriver)

	if err := RegisterComposerRoutes(app, deps.Session, deps.Contacts); err != nil {
		return nil, fmt.Errorf("failed to register composer routes: %w", err)
	}
	if err := RegisterSessionRoutes(app, deps.Session, deps.History, deps.Links, deps.Signal, logger); err != nil {
		return nil, fmt.Errorf("failed to register session routes: %w", err)
	}

	return app, nil
}
