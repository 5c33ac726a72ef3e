package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/storage"
)

type HistoryRepository interface {
	Load(ctx context.Context) ([]domain.SentRecord, error)
	Save(ctx context.Context, records []domain.SentRecord) error
	Clear(ctx context.Context) error
}

type KVHistoryRepo struct {
	store storage.Store
}

func NewKVHistoryRepo(store storage.Store) *KVHistoryRepo {
	return &KVHistoryRepo{store: store}
}

// Load returns records most-recent-first, as they were saved.
func (r *KVHistoryRepo) Load(ctx context.Context) ([]domain.SentRecord, error) {
	var records []domain.SentRecord
	err := getJSON(ctx, r.store, KeyHistory, &records)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.SentRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.SentRecord{}
	}
	return records, nil
}

func (r *KVHistoryRepo) Save(ctx context.Context, records []domain.SentRecord) error {
	if records == nil {
		records = []domain.SentRecord{}
	}
	return putJSON(ctx, r.store, KeyHistory, records)
}

func (r *KVHistoryRepo) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, KeyHistory)
}
