package handler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
)

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrScheduling),
		errors.Is(err, domain.ErrImport):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}

func nameParam(c *fiber.Ctx) (string, error) {
	raw := c.Params("name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed name %q", domain.ErrValidation, raw)
	}
	return strings.TrimSpace(name), nil
}

func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
