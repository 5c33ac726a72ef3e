package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/message-scheduler/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createKVEntriesTable(),
	})

	return m.Migrate()
}

func createKVEntriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_kv_entries",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.KVEntryModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.KVEntryModel{})
		},
	}
}
