package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kursadbilgin/message-scheduler/internal/storage"
)

// Keys of the durable entries.
const (
	KeyDraftTemplate = "message_scheduler_template"
	KeyTemplates     = "message_scheduler_templates"
	KeyContactGroups = "message_scheduler_contact_groups"
	KeyHistory       = "message_scheduler_history"
)

func getJSON(ctx context.Context, store storage.Store, key string, dest any) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

func putJSON(ctx context.Context, store storage.Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return store.Set(ctx, key, raw)
}
