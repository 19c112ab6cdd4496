package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-callbridge/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CallEventStore persists the append-only diagnostic journal of admissions
// and terminal transitions.
type CallEventStore struct {
	repo repository.Repository[*callEventRecord]
}

func NewCallEventStore(db *bun.DB) (*CallEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*callEventRecord](db, callEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid call event repository wiring: %w", err)
		}
	}
	return &CallEventStore{repo: repo}, nil
}

func (s *CallEventStore) Append(ctx context.Context, event core.CallEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: call event store is not configured")
	}
	if strings.TrimSpace(string(event.EventType)) == "" {
		return fmt.Errorf("sqlstore: event type is required")
	}
	if strings.TrimSpace(event.CallerKey) == "" {
		return fmt.Errorf("sqlstore: event caller key is required")
	}
	record := &callEventRecord{
		ID:         strings.TrimSpace(event.ID),
		EventType:  string(event.EventType),
		CallerKey:  strings.TrimSpace(event.CallerKey),
		CallID:     strings.TrimSpace(event.CallID),
		Reason:     strings.TrimSpace(event.Reason),
		ServerTsMs: event.ServerTsMs,
		CreatedAt:  event.CreatedAt,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *CallEventStore) ListRecent(ctx context.Context, limit int) ([]core.CallEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: call event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	events := make([]core.CallEvent, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		events = append(events, core.CallEvent{
			ID:         record.ID,
			EventType:  core.CallEventType(record.EventType),
			CallerKey:  record.CallerKey,
			CallID:     record.CallID,
			Reason:     record.Reason,
			ServerTsMs: record.ServerTsMs,
			CreatedAt:  record.CreatedAt,
		})
	}
	return events, nil
}
