package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
)

const DefaultLinkBaseURL = "https://wa.me"

// LinkBuilder turns a queue item into the deep link that opens the chat app
// with the message pre-filled. Opening the link is left to the caller.
type LinkBuilder interface {
	BuildLink(item domain.QueueItem) (string, error)
}

// WhatsAppLinkBuilder builds click-to-chat links of the form
// <base>/<number>?text=<message>.
type WhatsAppLinkBuilder struct {
	base string
}

func NewWhatsAppLinkBuilder(baseURL string) (*WhatsAppLinkBuilder, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultLinkBaseURL
	}

	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid link base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid link base url %q: scheme and host are required", baseURL)
	}

	return &WhatsAppLinkBuilder{base: trimmed}, nil
}

func (b *WhatsAppLinkBuilder) BuildLink(item domain.QueueItem) (string, error) {
	if b == nil {
		return "", fmt.Errorf("link builder is not initialized")
	}
	if strings.TrimSpace(item.Number) == "" {
		return "", domain.ErrInvalidNumber
	}

	return b.base + "/" + url.PathEscape(item.Number) + "?text=" + EncodeComponent(item.PersonalizedMessage), nil
}

// EncodeComponent percent-encodes s for a query value, with spaces as %20.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
