package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every concrete error below wraps exactly one of them so the
// transport layer can map on errors.Is without knowing the details.
var (
	ErrValidation = errors.New("validation error")
	ErrScheduling = errors.New("scheduling error")
	ErrImport     = errors.New("import error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Validation errors.
var (
	ErrEmptyTemplate      = fmt.Errorf("%w: message template cannot be empty", ErrValidation)
	ErrEmptyRecipients    = fmt.Errorf("%w: recipient list is empty", ErrValidation)
	ErrEmptyName          = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidNumber      = fmt.Errorf("%w: invalid phone number", ErrValidation)
	ErrTooShort           = fmt.Errorf("%w: at least %d digits required", ErrInvalidNumber, NumberDigits)
	ErrDuplicate          = fmt.Errorf("%w: number has already been added", ErrValidation)
	ErrEmptyTemplateName  = fmt.Errorf("%w: template name is required", ErrValidation)
	ErrEmptyGroupName     = fmt.Errorf("%w: contact group name is required", ErrValidation)
	ErrInvalidScheduledAt = fmt.Errorf("%w: scheduled time is required", ErrValidation)
)

// Scheduling errors.
var (
	ErrTimeInPast = fmt.Errorf("%w: scheduled time must be in the future", ErrScheduling)
)

// Import errors.
var (
	ErrUnsupported      = fmt.Errorf("%w: contact picker is not supported", ErrImport)
	ErrPermissionDenied = fmt.Errorf("%w: permission to read contacts was denied", ErrImport)
	ErrNoneSelected     = fmt.Errorf("%w: no contacts were selected", ErrImport)
)

// State machine errors.
var (
	ErrInvalidTransition = fmt.Errorf("%w: invalid state transition", ErrConflict)
	ErrActivationPending = fmt.Errorf("%w: a scheduled activation is already pending", ErrConflict)
	ErrQueueExhausted    = fmt.Errorf("%w: queue is exhausted", ErrConflict)
)
