package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/storage"
)

type GroupRepository interface {
	GetSaved(ctx context.Context) (map[string][]domain.Recipient, error)
	SaveAll(ctx context.Context, groups map[string][]domain.Recipient) error
}

type KVGroupRepo struct {
	store storage.Store
}

func NewKVGroupRepo(store storage.Store) *KVGroupRepo {
	return &KVGroupRepo{store: store}
}

func (r *KVGroupRepo) GetSaved(ctx context.Context) (map[string][]domain.Recipient, error) {
	saved := map[string][]domain.Recipient{}
	err := getJSON(ctx, r.store, KeyContactGroups, &saved)
	if errors.Is(err, domain.ErrNotFound) {
		return map[string][]domain.Recipient{}, nil
	}
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = map[string][]domain.Recipient{}
	}
	return saved, nil
}

func (r *KVGroupRepo) SaveAll(ctx context.Context, groups map[string][]domain.Recipient) error {
	if groups == nil {
		groups = map[string][]domain.Recipient{}
	}
	return putJSON(ctx, r.store, KeyContactGroups, groups)
}
