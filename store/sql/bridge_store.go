package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-callbridge/core"
	"github.com/uptrace/bun"
)

// Flat namespaced keys in callbridge_state. Scalar values; the mailbox and
// offer slots hold a JSON document.
const (
	stateKeyActiveCallKey    = "callbridge::active_call_key"
	stateKeyActiveCallSetAt  = "callbridge::active_call_set_at_ms"
	stateKeyLastCallID       = "callbridge::last_call_id"
	stateKeyLastServerTs     = "callbridge::last_server_ts_ms"
	stateKeyPendingPrefix    = "callbridge::pending::"
	stateKeyOffer            = "callbridge::offer"
	stateKeyRegistrationDone = "callbridge::registration_done"
)

// BridgeStore is the bun-backed core.BridgeStore. Every operation is atomic
// at the key level; the destructive mailbox read runs in a transaction so two
// concurrent drains cannot both observe the record.
type BridgeStore struct {
	db         *bun.DB
	staleAfter time.Duration
	Now        func() time.Time
}

func NewBridgeStore(db *bun.DB, guardStaleAfter time.Duration) (*BridgeStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if guardStaleAfter <= 0 {
		guardStaleAfter = core.DefaultGuardStaleAfter
	}
	return &BridgeStore{
		db:         db,
		staleAfter: guardStaleAfter,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *BridgeStore) MarkActiveCall(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: active call key is required")
	}
	now := s.now()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := setStateTx(ctx, tx, stateKeyActiveCallKey, key, now); err != nil {
			return err
		}
		return setStateTx(ctx, tx, stateKeyActiveCallSetAt, strconv.FormatInt(now.UnixMilli(), 10), now)
	})
}

func (s *BridgeStore) ClearActiveCall(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := deleteStateTx(ctx, tx, stateKeyActiveCallKey); err != nil {
			return err
		}
		return deleteStateTx(ctx, tx, stateKeyActiveCallSetAt)
	})
}

func (s *BridgeStore) ActiveCallKey(ctx context.Context, now time.Time) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("sqlstore: bridge store is not configured")
	}
	if now.IsZero() {
		now = s.now()
	}
	key, found, err := s.getState(ctx, stateKeyActiveCallKey)
	if err != nil || !found || strings.TrimSpace(key) == "" {
		return "", false, err
	}

	guard := core.ActiveCallGuard{CallKey: key}
	if raw, ok, tsErr := s.getState(ctx, stateKeyActiveCallSetAt); tsErr != nil {
		return "", false, tsErr
	} else if ok {
		if ms, parseErr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); parseErr == nil {
			guard.SetAt = time.UnixMilli(ms).UTC()
		}
	}
	if !guard.Active(now, s.staleAfter) {
		if err := s.ClearActiveCall(ctx); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return key, true, nil
}

func (s *BridgeStore) RecordLastProcessed(ctx context.Context, callID string, serverTsMs *int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	now := s.now()
	ts := int64(0)
	if serverTsMs != nil {
		ts = *serverTsMs
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := setStateTx(ctx, tx, stateKeyLastCallID, strings.TrimSpace(callID), now); err != nil {
			return err
		}
		return setStateTx(ctx, tx, stateKeyLastServerTs, strconv.FormatInt(ts, 10), now)
	})
}

func (s *BridgeStore) GetLastProcessed(ctx context.Context) (core.LastProcessed, error) {
	if s == nil || s.db == nil {
		return core.LastProcessed{}, fmt.Errorf("sqlstore: bridge store is not configured")
	}
	last := core.LastProcessed{}
	if value, ok, err := s.getState(ctx, stateKeyLastCallID); err != nil {
		return core.LastProcessed{}, err
	} else if ok {
		last.CallID = strings.TrimSpace(value)
	}
	if value, ok, err := s.getState(ctx, stateKeyLastServerTs); err != nil {
		return core.LastProcessed{}, err
	} else if ok {
		if ms, parseErr := strconv.ParseInt(strings.TrimSpace(value), 10, 64); parseErr == nil {
			last.ServerTsMs = ms
		}
	}
	return last, nil
}

func (s *BridgeStore) CacheOffer(ctx context.Context, offer core.CachedOffer) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	offer.CallerKey = strings.TrimSpace(offer.CallerKey)
	offer.CallID = strings.TrimSpace(offer.CallID)
	if offer.CallerKey == "" {
		return fmt.Errorf("sqlstore: offer caller key is required")
	}
	encoded, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("sqlstore: encode offer: %w", err)
	}
	return s.setState(ctx, stateKeyOffer, string(encoded))
}

func (s *BridgeStore) TakeOfferIfMatching(ctx context.Context, callerKey, callID string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("sqlstore: bridge store is not configured")
	}
	raw, found, err := s.getState(ctx, stateKeyOffer)
	if err != nil || !found {
		return "", false, err
	}
	offer := core.CachedOffer{}
	if err := json.Unmarshal([]byte(raw), &offer); err != nil {
		return "", false, fmt.Errorf("sqlstore: decode offer: %w", err)
	}
	if !offer.Matches(callerKey, callID) {
		return "", false, nil
	}
	return offer.Payload, true, nil
}

func (s *BridgeStore) ClearOffer(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	return s.deleteState(ctx, stateKeyOffer)
}

func (s *BridgeStore) PublishPending(ctx context.Context, kind core.PendingKind, record core.PendingCallRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	record.Action = kind
	if err := record.Validate(); err != nil {
		return err
	}
	if record.StoredAt.IsZero() {
		record.StoredAt = s.now()
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sqlstore: encode pending record: %w", err)
	}
	// Single slot per kind: the upsert discards an unread prior value.
	return s.setState(ctx, pendingStateKey(kind), string(encoded))
}

func (s *BridgeStore) TakeAndClearPending(ctx context.Context, kind core.PendingKind) (core.PendingCallRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.PendingCallRecord{}, false, fmt.Errorf("sqlstore: bridge store is not configured")
	}
	record := core.PendingCallRecord{}
	found := false
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		raw, ok, err := getStateTx(ctx, tx, pendingStateKey(kind))
		if err != nil || !ok {
			return err
		}
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return fmt.Errorf("sqlstore: decode pending record: %w", err)
		}
		found = true
		return deleteStateTx(ctx, tx, pendingStateKey(kind))
	})
	if err != nil {
		return core.PendingCallRecord{}, false, err
	}
	if !found {
		return core.PendingCallRecord{}, false, nil
	}
	return record, true, nil
}

func (s *BridgeStore) IsRegistrationDone(ctx context.Context) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: bridge store is not configured")
	}
	value, found, err := s.getState(ctx, stateKeyRegistrationDone)
	if err != nil {
		return false, err
	}
	return found && strings.TrimSpace(value) == "1", nil
}

func (s *BridgeStore) SetRegistrationDone(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: bridge store is not configured")
	}
	return s.setState(ctx, stateKeyRegistrationDone, "1")
}

func pendingStateKey(kind core.PendingKind) string {
	return stateKeyPendingPrefix + string(kind)
}

func (s *BridgeStore) getState(ctx context.Context, key string) (string, bool, error) {
	record := &bridgeStateRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Value, true, nil
}

func (s *BridgeStore) setState(ctx context.Context, key, value string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return setStateTx(ctx, tx, key, value, s.now())
	})
}

func (s *BridgeStore) deleteState(ctx context.Context, key string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return deleteStateTx(ctx, tx, key)
	})
}

func getStateTx(ctx context.Context, tx bun.Tx, key string) (string, bool, error) {
	record := &bridgeStateRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Value, true, nil
}

func setStateTx(ctx context.Context, tx bun.Tx, key, value string, now time.Time) error {
	record := &bridgeStateRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func deleteStateTx(ctx context.Context, tx bun.Tx, key string) error {
	_, err := tx.NewDelete().
		Model((*bridgeStateRecord)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

func (s *BridgeStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
