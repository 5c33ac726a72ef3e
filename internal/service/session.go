package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kursadbilgin/message-scheduler/internal/contacts"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"go.uber.org/zap"
)

// Session is the operator's composer: the active recipient list, the
// selected contact group, and the single sequencer they feed.
type Session struct {
	mu            sync.Mutex
	recipients    []domain.Recipient
	selectedGroup string

	templates *TemplateService
	groups    *GroupService
	sequencer *Sequencer
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewSession(
	templates *TemplateService,
	groups *GroupService,
	sequencer *Sequencer,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Session, error) {
	if templates == nil {
		return nil, fmt.Errorf("template service is required")
	}
	if groups == nil {
		return nil, fmt.Errorf("group service is required")
	}
	if sequencer == nil {
		return nil, fmt.Errorf("sequencer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		recipients: []domain.Recipient{},
		templates:  templates,
		groups:     groups,
		sequencer:  sequencer,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

func (s *Session) Templates() *TemplateService { return s.templates }

func (s *Session) Groups() *GroupService { return s.groups }

func (s *Session) Sequencer() *Sequencer { return s.sequencer }

func (s *Session) Recipients() []domain.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneRecipients(s.recipients)
}

func (s *Session) SelectedGroup() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedGroup
}

func (s *Session) AddRecipient(ctx context.Context, name string, rawNumber string) (domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, err := domain.AddRecipient(name, rawNumber, s.recipients)
	if err != nil {
		return domain.Recipient{}, s.report(err)
	}

	s.recipients = append(domain.CloneRecipients(s.recipients), recipient)
	s.sequencer.ReportError(nil)

	observability.WithContextLogger(s.logger, ctx).Debug("recipient added",
		zap.String("number", recipient.Number),
		zap.Int("recipients", len(s.recipients)),
	)
	return recipient, nil
}

func (s *Session) RemoveRecipient(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.RemoveRecipient(s.recipients, index)
	if err != nil {
		return err
	}
	s.recipients = next

	observability.WithContextLogger(s.logger, ctx).Debug("recipient removed",
		zap.Int("index", index),
		zap.Int("recipients", len(s.recipients)),
	)
	return nil
}

// ImportContacts merges the operator's pick into the active list. An
// abandoned prompt returns an empty result and no error.
func (s *Session) ImportContacts(ctx context.Context, source contacts.Source) (domain.ImportResult, error) {
	if source == nil {
		source = contacts.Unsupported{}
	}

	picked, err := source.RequestContacts(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			observability.WithContextLogger(s.logger, ctx).Debug("contact picker abandoned")
			return domain.ImportResult{Added: []domain.Recipient{}}, nil
		}
		return domain.ImportResult{}, s.report(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := domain.MergeContacts(s.recipients, picked)
	if err != nil {
		return domain.ImportResult{}, s.report(err)
	}

	s.recipients = append(domain.CloneRecipients(s.recipients), result.Added...)
	s.metrics.AddContactsImported(len(result.Added), result.Skipped)

	if result.Warning != "" {
		s.sequencer.ReportError(errors.New(result.Warning))
	} else {
		s.sequencer.ReportError(nil)
	}

	observability.WithContextLogger(s.logger, ctx).Info("contacts imported",
		zap.Int("added", len(result.Added)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Session) LoadGroup(ctx context.Context, name string) ([]domain.Recipient, error) {
	name = strings.TrimSpace(name)
	recipients, err := s.groups.Get(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipients = recipients
	s.selectedGroup = name

	observability.WithContextLogger(s.logger, ctx).Info("contact group loaded",
		zap.String("group", name),
		zap.Int("recipients", len(recipients)),
	)
	return domain.CloneRecipients(recipients), nil
}

func (s *Session) SaveGroup(ctx context.Context, name string) (ContactGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.groups.Save(ctx, name, s.recipients)
	if err != nil {
		return ContactGroup{}, s.report(err)
	}
	s.selectedGroup = group.Name
	return group, nil
}

// DeleteGroup removes the named group. Deleting the selected group also
// clears the active list.
func (s *Session) DeleteGroup(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := s.groups.Delete(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedGroup == name {
		s.recipients = []domain.Recipient{}
		s.selectedGroup = ""
	}
	return nil
}

func (s *Session) SendNow(ctx context.Context) (Snapshot, error) {
	queue, err := s.buildQueue()
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.sequencer.Start(ctx, queue); err != nil {
		return Snapshot{}, s.report(err)
	}
	return s.sequencer.Snapshot(), nil
}

func (s *Session) Schedule(ctx context.Context, at time.Time) (Snapshot, error) {
	queue, err := s.buildQueue()
	if err != nil {
		return Snapshot{}, err
	}
	if _, err := s.sequencer.Schedule(ctx, queue, at); err != nil {
		return Snapshot{}, s.report(err)
	}
	return s.sequencer.Snapshot(), nil
}

// Cancel stops the scheduled or running queue and clears the active list.
func (s *Session) Cancel(ctx context.Context) error {
	if err := s.sequencer.Cancel(ctx); err != nil {
		return err
	}
	s.clearRecipients()
	return nil
}

// Reset returns to IDLE from any state and clears the active list. History
// is kept.
func (s *Session) Reset(ctx context.Context) error {
	var err error
	switch s.sequencer.State() {
	case domain.StateScheduled, domain.StateSending:
		err = s.sequencer.Cancel(ctx)
	case domain.StateDone:
		err = s.sequencer.Reset(ctx)
	}
	if err != nil {
		return err
	}

	s.sequencer.ReportError(nil)
	s.clearRecipients()
	return nil
}

func (s *Session) buildQueue() (*domain.Queue, error) {
	s.mu.Lock()
	recipients := domain.CloneRecipients(s.recipients)
	s.mu.Unlock()

	queue, err := domain.BuildQueue(s.templates.Draft(), recipients)
	if err != nil {
		return nil, s.report(err)
	}
	return queue, nil
}

func (s *Session) clearRecipients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipients = []domain.Recipient{}
	s.selectedGroup = ""
}

// report surfaces err to the operator. Conflicts come from the control
// surface, not from the operator's input, and are only returned.
func (s *Session) report(err error) error {
	if !errors.Is(err, domain.ErrConflict) {
		s.sequencer.ReportError(err)
	}
	return err
}
