package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
)

const defaultRemoteTimeout = 30 * time.Second

// SourceError is a failed remote pick that maps to no import error.
type SourceError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *SourceError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "contact source error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SourceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// RemoteSource reads a contact pick from a companion endpoint that answers
// GET with a JSON array of {"name","number"} objects.
type RemoteSource struct {
	client   *resty.Client
	endpoint string
}

func NewRemoteSource(endpoint string) (*RemoteSource, error) {
	client := resty.New()
	client.SetTimeout(defaultRemoteTimeout)
	client.SetRetryCount(0)

	return NewRemoteSourceWithClient(endpoint, client)
}

func NewRemoteSourceWithClient(endpoint string, client *resty.Client) (*RemoteSource, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("contact source endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid contact source endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	client.SetRetryCount(0)

	return &RemoteSource{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

// RequestContacts makes a single attempt. 401/403 mean the operator refused
// access; 404/501 mean the companion has no picker.
func (s *RemoteSource) RequestContacts(ctx context.Context) ([]domain.Contact, error) {
	if s == nil || s.client == nil {
		return nil, domain.ErrUnsupported
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(s.endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SourceError{Message: "contact request failed", Cause: err}
	}
	if response == nil {
		return nil, &SourceError{Message: "contact source returned empty response"}
	}

	statusCode := response.StatusCode()
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return nil, domain.ErrPermissionDenied
	case statusCode == http.StatusNotFound || statusCode == http.StatusNotImplemented:
		return nil, domain.ErrUnsupported
	case statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices:
		return nil, &SourceError{
			StatusCode: statusCode,
			Message:    strings.TrimSpace(response.String()),
		}
	}

	var picked []domain.Contact
	if err := json.Unmarshal(response.Body(), &picked); err != nil {
		return nil, &SourceError{StatusCode: statusCode, Message: "malformed contact list", Cause: err}
	}
	if picked == nil {
		picked = []domain.Contact{}
	}
	return picked, nil
}
