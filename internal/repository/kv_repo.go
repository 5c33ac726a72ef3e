package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ storage.Store = (*GormKVRepo)(nil)

// GormKVRepo implements storage.Store on a single SQL table, so the same
// code serves both the local SQLite file and Postgres.
type GormKVRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormKVRepo(db *gorm.DB) *GormKVRepo {
	return &GormKVRepo{db: db, now: time.Now}
}

func (r *GormKVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var model KVEntryModel
	err := r.db.WithContext(ctx).First(&model, "entry_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: key %q", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return []byte(model.Value), nil
}

func (r *GormKVRepo) Set(ctx context.Context, key string, value []byte) error {
	model := KVEntryModel{
		Key:       key,
		Value:     string(value),
		UpdatedAt: r.now().UTC(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model).Error
}

func (r *GormKVRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("entry_key = ?", key).
		Delete(&KVEntryModel{}).Error
}

func (r *GormKVRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
