package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"github.com/kursadbilgin/message-scheduler/internal/repository"
	"go.uber.org/zap"
)

// HistoryRecorder keeps the sent history in memory, most recent first, and
// mirrors every change to the repository.
type HistoryRecorder struct {
	mu      sync.Mutex
	records []domain.SentRecord
	repo    repository.HistoryRepository
	now     func() time.Time
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHistoryRecorder loads the persisted history. A failed read starts from
// an empty history.
func NewHistoryRecorder(ctx context.Context, repo repository.HistoryRepository, logger *zap.Logger, metrics *observability.Metrics) *HistoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &HistoryRecorder{
		repo:    repo,
		now:     time.Now,
		logger:  logger,
		metrics: metrics,
	}

	records, err := repo.Load(ctx)
	if err != nil {
		logger.Warn("failed to load sent history, starting empty", zap.Error(err))
		records = nil
	}
	h.records = records
	metrics.SetHistoryEntries(len(h.records))

	return h
}

// Record stamps item with the current time and prepends it. A failed write
// keeps the in-memory record.
func (h *HistoryRecorder) Record(ctx context.Context, item domain.QueueItem) domain.SentRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	record := domain.SentRecord{QueueItem: item, SentAt: h.now().UTC()}

	records := make([]domain.SentRecord, 0, len(h.records)+1)
	records = append(records, record)
	records = append(records, h.records...)
	h.records = records

	if err := h.repo.Save(ctx, h.records); err != nil {
		observability.WithContextLogger(h.logger, ctx).Warn("failed to persist sent history",
			zap.String("number", item.Number),
			zap.Error(err),
		)
	}
	h.metrics.SetHistoryEntries(len(h.records))

	return record
}

func (h *HistoryRecorder) Entries() []domain.SentRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.SentRecord, len(h.records))
	copy(out, h.records)
	return out
}

func (h *HistoryRecorder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func (h *HistoryRecorder) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = nil
	h.metrics.SetHistoryEntries(0)

	if err := h.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear sent history: %w", err)
	}
	observability.WithContextLogger(h.logger, ctx).Info("sent history cleared")
	return nil
}
