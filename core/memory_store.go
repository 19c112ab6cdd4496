package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryBridgeStore is the process-memory BridgeStore used in tests and in
// hosts without a persistence backend. Safe for concurrent use from the
// signaling callback side and the application side.
type MemoryBridgeStore struct {
	mu              sync.Mutex
	staleAfter      time.Duration
	guard           ActiveCallGuard
	last            LastProcessed
	offer           *CachedOffer
	pending         map[PendingKind]PendingCallRecord
	registrationSet bool
	Now             func() time.Time
}

func NewMemoryBridgeStore(guardStaleAfter time.Duration) *MemoryBridgeStore {
	if guardStaleAfter <= 0 {
		guardStaleAfter = DefaultGuardStaleAfter
	}
	return &MemoryBridgeStore{
		staleAfter: guardStaleAfter,
		pending:    map[PendingKind]PendingCallRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryBridgeStore) MarkActiveCall(_ context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: active call key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = ActiveCallGuard{CallKey: key, SetAt: s.now()}
	return nil
}

func (s *MemoryBridgeStore) ClearActiveCall(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = ActiveCallGuard{}
	return nil
}

func (s *MemoryBridgeStore) ActiveCallKey(_ context.Context, now time.Time) (string, bool, error) {
	if s == nil {
		return "", false, fmt.Errorf("core: bridge store is not configured")
	}
	if now.IsZero() {
		now = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.guard.CallKey) == "" {
		return "", false, nil
	}
	if !s.guard.Active(now, s.staleAfter) {
		s.guard = ActiveCallGuard{}
		return "", false, nil
	}
	return s.guard.CallKey, true, nil
}

func (s *MemoryBridgeStore) RecordLastProcessed(_ context.Context, callID string, serverTsMs *int64) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = LastProcessed{CallID: strings.TrimSpace(callID)}
	if serverTsMs != nil {
		s.last.ServerTsMs = *serverTsMs
	}
	return nil
}

func (s *MemoryBridgeStore) GetLastProcessed(_ context.Context) (LastProcessed, error) {
	if s == nil {
		return LastProcessed{}, fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

func (s *MemoryBridgeStore) CacheOffer(_ context.Context, offer CachedOffer) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	if strings.TrimSpace(offer.CallerKey) == "" {
		return fmt.Errorf("core: offer caller key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := offer
	copied.CallerKey = strings.TrimSpace(offer.CallerKey)
	copied.CallID = strings.TrimSpace(offer.CallID)
	s.offer = &copied
	return nil
}

func (s *MemoryBridgeStore) TakeOfferIfMatching(_ context.Context, callerKey, callID string) (string, bool, error) {
	if s == nil {
		return "", false, fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offer == nil || !s.offer.Matches(callerKey, callID) {
		return "", false, nil
	}
	return s.offer.Payload, true, nil
}

func (s *MemoryBridgeStore) ClearOffer(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offer = nil
	return nil
}

func (s *MemoryBridgeStore) PublishPending(_ context.Context, kind PendingKind, record PendingCallRecord) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	record.Action = kind
	if err := record.Validate(); err != nil {
		return err
	}
	if record.StoredAt.IsZero() {
		record.StoredAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Single slot per kind: an unread prior value is discarded.
	s.pending[kind] = record
	return nil
}

func (s *MemoryBridgeStore) TakeAndClearPending(_ context.Context, kind PendingKind) (PendingCallRecord, bool, error) {
	if s == nil {
		return PendingCallRecord{}, false, fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.pending[kind]
	if !ok {
		return PendingCallRecord{}, false, nil
	}
	delete(s.pending, kind)
	return record, true, nil
}

func (s *MemoryBridgeStore) IsRegistrationDone(_ context.Context) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrationSet, nil
}

func (s *MemoryBridgeStore) SetRegistrationDone(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("core: bridge store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrationSet = true
	return nil
}

func (s *MemoryBridgeStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var _ BridgeStore = (*MemoryBridgeStore)(nil)
