package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/repository"
	"go.uber.org/zap"
)

type NamedTemplate struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// TemplateService holds the draft being composed and the library of named
// templates. Saving under an existing name overwrites it.
type TemplateService struct {
	mu     sync.Mutex
	repo   repository.TemplateRepository
	draft  string
	saved  map[string]string
	logger *zap.Logger
}

func NewTemplateService(ctx context.Context, repo repository.TemplateRepository, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}

	draft, err := repo.GetDraft(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("failed to load draft template, using default", zap.Error(err))
		}
		draft = domain.DefaultTemplate
	}

	saved, err := repo.GetSaved(ctx)
	if err != nil {
		logger.Warn("failed to load saved templates", zap.Error(err))
		saved = map[string]string{}
	}

	return &TemplateService{
		repo:   repo,
		draft:  draft,
		saved:  saved,
		logger: logger,
	}
}

func (s *TemplateService) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// UpdateDraft replaces the draft. Blank drafts are kept as typed; only
// building a queue rejects them.
func (s *TemplateService) UpdateDraft(ctx context.Context, template string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = template
	s.persistDraftLocked(ctx)
}

func (s *TemplateService) List() []NamedTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]NamedTemplate, 0, len(s.saved))
	for name, template := range s.saved {
		out = append(out, NamedTemplate{Name: name, Template: template})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *TemplateService) Save(ctx context.Context, name string) (NamedTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return NamedTemplate{}, domain.ErrEmptyTemplateName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.draft) == "" {
		return NamedTemplate{}, domain.ErrEmptyTemplate
	}

	next := cloneTemplates(s.saved)
	next[name] = s.draft
	if err := s.repo.SaveAll(ctx, next); err != nil {
		return NamedTemplate{}, fmt.Errorf("failed to save template %q: %w", name, err)
	}
	s.saved = next

	return NamedTemplate{Name: name, Template: s.draft}, nil
}

func (s *TemplateService) Load(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.saved[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("%w: template %q", domain.ErrNotFound, name)
	}

	s.draft = template
	s.persistDraftLocked(ctx)
	return template, nil
}

func (s *TemplateService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saved[name]; !ok {
		return fmt.Errorf("%w: template %q", domain.ErrNotFound, name)
	}

	next := cloneTemplates(s.saved)
	delete(next, name)
	if err := s.repo.SaveAll(ctx, next); err != nil {
		return fmt.Errorf("failed to delete template %q: %w", name, err)
	}
	s.saved = next
	return nil
}

func (s *TemplateService) persistDraftLocked(ctx context.Context) {
	if err := s.repo.SaveDraft(ctx, s.draft); err != nil {
		s.logger.Warn("failed to persist draft template", zap.Error(err))
	}
}

func cloneTemplates(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
