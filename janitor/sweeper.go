package janitor

import (
	"context"
	"fmt"
	"time"

	gologgeradapter "github.com/goliatone/go-callbridge/adapters/gologger"
	"github.com/goliatone/go-callbridge/core"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultMailboxRetention is how long an undrained pending-action record may
// sit in the mailbox before the sweeper discards it. A record this old means
// the application layer never picked up the accept/reject, so replaying it
// would act on a call that is long gone.
const DefaultMailboxRetention = 10 * time.Minute

type Config struct {
	MailboxRetention time.Duration
}

func (c Config) normalized() Config {
	out := c
	if out.MailboxRetention <= 0 {
		out.MailboxRetention = DefaultMailboxRetention
	}
	return out
}

// Report describes what a sweep found and released.
type Report struct {
	GuardActive   bool
	GuardKey      string
	DroppedAccept bool
	DroppedReject bool
	OfferCleared  bool
}

// Sweeper purges persisted bridge state that outlived its call: stale
// guards, expired mailbox records, and orphaned offers. It is safe to run
// concurrently with the call lifecycle because every store operation it uses
// is atomic at the key level.
type Sweeper struct {
	store  core.BridgeStore
	cfg    Config
	logger glog.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

func NewSweeper(store core.BridgeStore, cfg Config, logger glog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("janitor: bridge store is required")
	}
	_, resolved := gologgeradapter.Resolve("callbridge.janitor", nil, logger)
	return &Sweeper{
		store:  store,
		cfg:    cfg.normalized(),
		logger: glog.Ensure(resolved),
		Now:    time.Now,
	}, nil
}

// Sweep runs one maintenance pass. Reading the guard through the store
// applies its staleness rule, so a guard left by a killed process is cleared
// as a side effect of the read.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	if s == nil || s.store == nil {
		return Report{}, fmt.Errorf("janitor: sweeper is not configured")
	}
	now := s.Now()
	report := Report{}

	key, active, err := s.store.ActiveCallKey(ctx, now)
	if err != nil {
		return report, fmt.Errorf("janitor: read active call guard: %w", err)
	}
	report.GuardActive = active
	report.GuardKey = key

	keptMailbox := false
	for _, kind := range []core.PendingKind{core.PendingAccept, core.PendingReject} {
		dropped, kept, err := s.sweepMailbox(ctx, kind, now)
		if err != nil {
			return report, err
		}
		if kept {
			keptMailbox = true
		}
		switch kind {
		case core.PendingAccept:
			report.DroppedAccept = dropped
		case core.PendingReject:
			report.DroppedReject = dropped
		}
	}

	// An offer only matters between fact arrival and the drained answer.
	// With no ringing call and no undrained accept/reject, whatever is in
	// the offer slot belongs to a dead call.
	if !active && !keptMailbox {
		if err := s.store.ClearOffer(ctx); err != nil {
			return report, fmt.Errorf("janitor: clear orphaned offer: %w", err)
		}
		report.OfferCleared = true
	}

	s.logger.WithContext(ctx).Info("janitor sweep done",
		"guard_active", report.GuardActive,
		"dropped_accept", report.DroppedAccept,
		"dropped_reject", report.DroppedReject,
		"offer_cleared", report.OfferCleared,
	)
	return report, nil
}

// sweepMailbox destructively reads one mailbox slot and re-publishes the
// record when it is still within retention. PublishPending preserves a
// non-zero StoredAt, so a kept record does not get a fresh lease.
func (s *Sweeper) sweepMailbox(ctx context.Context, kind core.PendingKind, now time.Time) (dropped bool, kept bool, err error) {
	record, ok, err := s.store.TakeAndClearPending(ctx, kind)
	if err != nil {
		return false, false, fmt.Errorf("janitor: read pending %s: %w", kind, err)
	}
	if !ok {
		return false, false, nil
	}
	if !record.StoredAt.IsZero() && now.Sub(record.StoredAt) > s.cfg.MailboxRetention {
		s.logger.WithContext(ctx).Warn("dropping expired pending record",
			"kind", string(kind),
			"caller_key", record.CallerKey,
			"stored_at", record.StoredAt,
		)
		return true, false, nil
	}
	if err := s.store.PublishPending(ctx, kind, record); err != nil {
		return false, false, fmt.Errorf("janitor: restore pending %s: %w", kind, err)
	}
	return false, true, nil
}
