package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-scheduler/internal/contacts"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/service"
)

type ComposerHandler struct {
	session  *service.Session
	contacts contacts.Source
}

func NewComposerHandler(session *service.Session, source contacts.Source) (*ComposerHandler, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if source == nil {
		source = contacts.Unsupported{}
	}
	return &ComposerHandler{session: session, contacts: source}, nil
}

func RegisterComposerRoutes(router fiber.Router, session *service.Session, source contacts.Source) error {
	h, err := NewComposerHandler(session, source)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/template", h.GetDraft)
	v1.Put("/template", h.UpdateDraft)
	v1.Get("/templates", h.ListTemplates)
	v1.Post("/templates", h.SaveTemplate)
	v1.Post("/templates/:name/load", h.LoadTemplate)
	v1.Delete("/templates/:name", h.DeleteTemplate)

	v1.Get("/recipients", h.ListRecipients)
	v1.Post("/recipients", h.AddRecipient)
	v1.Post("/recipients/import", h.ImportContacts)
	v1.Delete("/recipients/:index", h.RemoveRecipient)

	v1.Get("/groups", h.ListGroups)
	v1.Post("/groups", h.SaveGroup)
	v1.Post("/groups/:name/load", h.LoadGroup)
	v1.Delete("/groups/:name", h.DeleteGroup)

	return nil
}

type templateRequest struct {
	Template string `json:"template"`
}

type templateResponse struct {
	Template string `json:"template"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type addRecipientRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

type importRequest struct {
	Contacts []domain.Contact `json:"contacts"`
}

type recipientsResponse struct {
	Recipients    []domain.Recipient `json:"recipients"`
	SelectedGroup string             `json:"selectedGroup,omitempty"`
}

type importResponse struct {
	Added      []domain.Recipient `json:"added"`
	Skipped    int                `json:"skipped"`
	Warning    string             `json:"warning,omitempty"`
	Recipients []domain.Recipient `json:"recipients"`
}

func (h *ComposerHandler) GetDraft(c *fiber.Ctx) error {
	return c.JSON(templateResponse{Template: h.session.Templates().Draft()})
}

func (h *ComposerHandler) UpdateDraft(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	h.session.Templates().UpdateDraft(c.UserContext(), req.Template)
	return c.JSON(templateResponse{Template: req.Template})
}

func (h *ComposerHandler) ListTemplates(c *fiber.Ctx) error {
	return c.JSON(h.session.Templates().List())
}

func (h *ComposerHandler) SaveTemplate(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	saved, err := h.session.Templates().Save(c.UserContext(), req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *ComposerHandler) LoadTemplate(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	template, err := h.session.Templates().Load(c.UserContext(), name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(templateResponse{Template: template})
}

func (h *ComposerHandler) DeleteTemplate(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.session.Templates().Delete(c.UserContext(), name); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ComposerHandler) ListRecipients(c *fiber.Ctx) error {
	return c.JSON(h.recipientsResponse())
}

func (h *ComposerHandler) AddRecipient(c *fiber.Ctx) error {
	var req addRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	recipient, err := h.session.AddRecipient(c.UserContext(), req.Name, req.Number)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(recipient)
}

func (h *ComposerHandler) RemoveRecipient(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return toHTTPError(fmt.Errorf("%w: recipient index must be a number", domain.ErrValidation))
	}

	if err := h.session.RemoveRecipient(c.UserContext(), index); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ImportContacts merges contacts posted by the presentation layer, or asks
// the configured contact source when the body carries none.
func (h *ComposerHandler) ImportContacts(c *fiber.Ctx) error {
	var req importRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	source := h.contacts
	if req.Contacts != nil {
		source = contacts.Static{Contacts: req.Contacts}
	}

	result, err := h.session.ImportContacts(c.UserContext(), source)
	if err != nil {
		return toHTTPError(err)
	}

	added := result.Added
	if added == nil {
		added = []domain.Recipient{}
	}
	return c.JSON(importResponse{
		Added:      added,
		Skipped:    result.Skipped,
		Warning:    result.Warning,
		Recipients: h.session.Recipients(),
	})
}

func (h *ComposerHandler) ListGroups(c *fiber.Ctx) error {
	return c.JSON(h.session.Groups().List())
}

func (h *ComposerHandler) SaveGroup(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	group, err := h.session.SaveGroup(c.UserContext(), req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *ComposerHandler) LoadGroup(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	if _, err := h.session.LoadGroup(c.UserContext(), name); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(h.recipientsResponse())
}

func (h *ComposerHandler) DeleteGroup(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.session.DeleteGroup(c.UserContext(), name); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ComposerHandler) recipientsResponse() recipientsResponse {
	return recipientsResponse{
		Recipients:    h.session.Recipients(),
		SelectedGroup: h.session.SelectedGroup(),
	}
}
