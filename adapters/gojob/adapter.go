package gojob

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// RetryPolicy bounds queue retry behavior so a failing maintenance job cannot
// requeue itself forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps a nack against the policy for the given attempt count.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// BoundedDelivery wraps a queue delivery so every nack passes through the
// retry policy.
type BoundedDelivery struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewBoundedDelivery(delivery queue.Delivery, policy RetryPolicy) *BoundedDelivery {
	return &BoundedDelivery{delivery: delivery, policy: policy}
}

func (d *BoundedDelivery) Unwrap() queue.Delivery {
	if d == nil {
		return nil
	}
	return d.delivery
}

func (d *BoundedDelivery) NackForAttempt(ctx context.Context, opts queue.NackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return nil
	}
	return d.delivery.Nack(ctx, d.policy.Normalize(opts, attempt))
}

// LoggingHook observes worker lifecycle events and reports them through glog.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.WithContext(ctx).Debug("job started",
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
	)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.WithContext(ctx).Info("job succeeded",
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
		"duration", event.Duration.String(),
	)
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.WithContext(ctx).Error("job failed",
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
		"error", event.Err,
	)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.WithContext(ctx).Warn("job retrying",
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
		"delay", event.Delay.String(),
		"error", event.Err,
	)
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return strings.TrimSpace(message.JobID)
}

var _ worker.Hook = (*LoggingHook)(nil)
