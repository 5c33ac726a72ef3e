package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/repository"
	"go.uber.org/zap"
)

type ContactGroup struct {
	Name       string             `json:"name"`
	Recipients []domain.Recipient `json:"recipients"`
}

type GroupService struct {
	mu     sync.Mutex
	repo   repository.GroupRepository
	groups map[string][]domain.Recipient
	logger *zap.Logger
}

func NewGroupService(ctx context.Context, repo repository.GroupRepository, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}

	groups, err := repo.GetSaved(ctx)
	if err != nil {
		logger.Warn("failed to load contact groups", zap.Error(err))
		groups = map[string][]domain.Recipient{}
	}

	return &GroupService{
		repo:   repo,
		groups: groups,
		logger: logger,
	}
}

func (s *GroupService) List() []ContactGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ContactGroup, 0, len(s.groups))
	for name, recipients := range s.groups {
		out = append(out, ContactGroup{Name: name, Recipients: domain.CloneRecipients(recipients)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *GroupService) Get(name string) ([]domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipients, ok := s.groups[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: contact group %q", domain.ErrNotFound, name)
	}
	return domain.CloneRecipients(recipients), nil
}

func (s *GroupService) Save(ctx context.Context, name string, recipients []domain.Recipient) (ContactGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ContactGroup{}, domain.ErrEmptyGroupName
	}
	if len(recipients) == 0 {
		return ContactGroup{}, domain.ErrEmptyRecipients
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneGroups(s.groups)
	next[name] = domain.CloneRecipients(recipients)
	if err := s.repo.SaveAll(ctx, next); err != nil {
		return ContactGroup{}, fmt.Errorf("failed to save contact group %q: %w", name, err)
	}
	s.groups = next

	return ContactGroup{Name: name, Recipients: domain.CloneRecipients(recipients)}, nil
}

func (s *GroupService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[name]; !ok {
		return fmt.Errorf("%w: contact group %q", domain.ErrNotFound, name)
	}

	next := cloneGroups(s.groups)
	delete(next, name)
	if err := s.repo.SaveAll(ctx, next); err != nil {
		return fmt.Errorf("failed to delete contact group %q: %w", name, err)
	}
	s.groups = next
	return nil
}

func cloneGroups(in map[string][]domain.Recipient) map[string][]domain.Recipient {
	out := make(map[string][]domain.Recipient, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
