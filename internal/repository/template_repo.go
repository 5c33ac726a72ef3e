package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/storage"
)

type TemplateRepository interface {
	GetDraft(ctx context.Context) (string, error)
	SaveDraft(ctx context.Context, template string) error
	GetSaved(ctx context.Context) (map[string]string, error)
	SaveAll(ctx context.Context, templates map[string]string) error
}

type KVTemplateRepo struct {
	store storage.Store
}

func NewKVTemplateRepo(store storage.Store) *KVTemplateRepo {
	return &KVTemplateRepo{store: store}
}

// GetDraft returns domain.ErrNotFound when no draft was ever stored.
func (r *KVTemplateRepo) GetDraft(ctx context.Context) (string, error) {
	var draft string
	if err := getJSON(ctx, r.store, KeyDraftTemplate, &draft); err != nil {
		return "", err
	}
	return draft, nil
}

func (r *KVTemplateRepo) SaveDraft(ctx context.Context, template string) error {
	return putJSON(ctx, r.store, KeyDraftTemplate, template)
}

// GetSaved returns an empty map when nothing was saved yet.
func (r *KVTemplateRepo) GetSaved(ctx context.Context) (map[string]string, error) {
	saved := map[string]string{}
	err := getJSON(ctx, r.store, KeyTemplates, &saved)
	if errors.Is(err, domain.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = map[string]string{}
	}
	return saved, nil
}

func (r *KVTemplateRepo) SaveAll(ctx context.Context, templates map[string]string) error {
	if templates == nil {
		templates = map[string]string{}
	}
	return putJSON(ctx, r.store, KeyTemplates, templates)
}
