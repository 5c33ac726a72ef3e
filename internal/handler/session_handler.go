package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/provider"
	"github.com/kursadbilgin/message-scheduler/internal/service"
	"github.com/kursadbilgin/message-scheduler/internal/visibility"
	"go.uber.org/zap"
)

type SessionHandler struct {
	session *service.Session
	history *service.HistoryRecorder
	links   provider.LinkBuilder
	signal  *visibility.Broadcaster
	logger  *zap.Logger
}

func NewSessionHandler(
	session *service.Session,
	history *service.HistoryRecorder,
	links provider.LinkBuilder,
	signal *visibility.Broadcaster,
	logger *zap.Logger,
) (*SessionHandler, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history recorder is required")
	}
	if links == nil {
		return nil, fmt.Errorf("link builder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionHandler{
		session: session,
		history: history,
		links:   links,
		signal:  signal,
		logger:  logger,
	}, nil
}

// RegisterSessionRoutes mounts the state machine. signal may be nil when the
// return signal is not driven over HTTP.
func RegisterSessionRoutes(
	router fiber.Router,
	session *service.Session,
	history *service.HistoryRecorder,
	links provider.LinkBuilder,
	signal *visibility.Broadcaster,
	logger *zap.Logger,
) error {
	h, err := NewSessionHandler(session, history, links, signal, logger)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/session", h.GetSession)
	v1.Get("/session/queue", h.GetQueue)
	v1.Post("/session/send", h.SendNow)
	v1.Post("/session/schedule", h.Schedule)
	v1.Post("/session/open", h.Open)
	v1.Post("/session/visible", h.Visible)
	v1.Post("/session/confirm", h.Confirm)
	v1.Post("/session/cancel", h.Cancel)
	v1.Post("/session/reset", h.Reset)

	v1.Get("/history", h.ListHistory)
	v1.Delete("/history", h.ClearHistory)

	return nil
}

type scheduleRequest struct {
	ScheduledAt string `json:"scheduledAt"`
}

type sessionResponse struct {
	service.Snapshot
	Link string `json:"link,omitempty"`
}

type queueItemResponse struct {
	domain.QueueItem
	Link string `json:"link"`
}

type confirmResponse struct {
	Record  domain.SentRecord `json:"record"`
	Session sessionResponse   `json:"session"`
}

type historyResponse struct {
	Data  []domain.SentRecord `json:"data"`
	Total int                 `json:"total"`
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	resp, err := h.sessionResponse()
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *SessionHandler) GetQueue(c *fiber.Ctx) error {
	items := h.session.Sequencer().Items()
	out := make([]queueItemResponse, 0, len(items))
	for _, item := range items {
		link, err := h.links.BuildLink(item)
		if err != nil {
			return toHTTPError(err)
		}
		out = append(out, queueItemResponse{QueueItem: item, Link: link})
	}
	return c.JSON(out)
}

func (h *SessionHandler) SendNow(c *fiber.Ctx) error {
	if _, err := h.session.SendNow(c.UserContext()); err != nil {
		return toHTTPError(err)
	}
	return h.respond(c, fiber.StatusAccepted)
}

func (h *SessionHandler) Schedule(c *fiber.Ctx) error {
	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	at, err := parseScheduledAt(req.ScheduledAt)
	if err != nil {
		return toHTTPError(err)
	}

	if _, err := h.session.Schedule(c.UserContext(), at); err != nil {
		return toHTTPError(err)
	}
	return h.respond(c, fiber.StatusAccepted)
}

// Open hands the current item to the chat app: it returns the deep link and
// starts waiting for the operator to come back.
func (h *SessionHandler) Open(c *fiber.Ctx) error {
	if err := h.session.Sequencer().AwaitReturn(); err != nil {
		return toHTTPError(err)
	}
	return h.respond(c, fiber.StatusOK)
}

func (h *SessionHandler) Visible(c *fiber.Ctx) error {
	if h.signal == nil {
		return fiber.NewError(fiber.StatusNotFound, "return signal is not driven over http")
	}
	fired := h.signal.Notify()
	h.logger.Debug("return signal delivered", zap.Int("subscribers", fired))
	return h.respond(c, fiber.StatusOK)
}

func (h *SessionHandler) Confirm(c *fiber.Ctx) error {
	record, _, err := h.session.Sequencer().Advance(c.UserContext(), domain.ConfirmManual)
	if err != nil {
		return toHTTPError(err)
	}

	resp, err := h.sessionResponse()
	if err != nil {
		return err
	}
	return c.JSON(confirmResponse{Record: record, Session: resp})
}

func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	if err := h.session.Cancel(c.UserContext()); err != nil {
		return toHTTPError(err)
	}
	return h.respond(c, fiber.StatusOK)
}

func (h *SessionHandler) Reset(c *fiber.Ctx) error {
	if err := h.session.Reset(c.UserContext()); err != nil {
		return toHTTPError(err)
	}
	return h.respond(c, fiber.StatusOK)
}

func (h *SessionHandler) ListHistory(c *fiber.Ctx) error {
	entries := h.history.Entries()
	return c.JSON(historyResponse{Data: entries, Total: len(entries)})
}

func (h *SessionHandler) ClearHistory(c *fiber.Ctx) error {
	if err := h.history.Clear(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) respond(c *fiber.Ctx, status int) error {
	resp, err := h.sessionResponse()
	if err != nil {
		return err
	}
	return c.Status(status).JSON(resp)
}

func (h *SessionHandler) sessionResponse() (sessionResponse, error) {
	snap := h.session.Sequencer().Snapshot()
	resp := sessionResponse{Snapshot: snap}
	if snap.Current != nil {
		link, err := h.links.BuildLink(*snap.Current)
		if err != nil {
			return sessionResponse{}, toHTTPError(err)
		}
		resp.Link = link
	}
	return resp, nil
}

func parseScheduledAt(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, domain.ErrInvalidScheduledAt
	}

	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: scheduledAt must be RFC3339", domain.ErrValidation)
	}
	return parsed.UTC(), nil
}
