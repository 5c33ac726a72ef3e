package contacts

import (
	"context"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
)

// Source asks the device for contacts. It may block until the operator
// answers the picker; a cancelled ctx means the prompt was abandoned.
type Source interface {
	RequestContacts(ctx context.Context) ([]domain.Contact, error)
}

// Unsupported is the source for environments without a contact picker.
type Unsupported struct{}

func (Unsupported) RequestContacts(context.Context) ([]domain.Contact, error) {
	return nil, domain.ErrUnsupported
}

// Static returns a fixed pick. The presentation layer uses it to hand over
// contacts it already read from the device.
type Static struct {
	Contacts []domain.Contact
	Err      error
}

func (s Static) RequestContacts(ctx context.Context) ([]domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]domain.Contact, len(s.Contacts))
	copy(out, s.Contacts)
	return out, nil
}
