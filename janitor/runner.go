package janitor

import (
	"context"
	"fmt"
	"strings"

	gojobadapter "github.com/goliatone/go-callbridge/adapters/gojob"
	gologgeradapter "github.com/goliatone/go-callbridge/adapters/gologger"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDSweep = "callbridge.janitor.sweep"

// SweepMessage builds the queue message that triggers one sweep. The dedup
// policy drops duplicate enqueues of the same idempotency key so overlapping
// schedulers do not pile up sweeps.
func SweepMessage(idempotencyKey string) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          JobIDSweep,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// EnqueueSweep schedules one sweep on the queue.
func EnqueueSweep(ctx context.Context, enqueuer queue.Enqueuer, idempotencyKey string) error {
	if enqueuer == nil {
		return fmt.Errorf("janitor: enqueuer is required")
	}
	return enqueuer.Enqueue(ctx, SweepMessage(idempotencyKey))
}

// Runner consumes sweep jobs from a go-job queue and executes them against
// the sweeper, with nacks bounded by the retry policy. Job outcomes are
// reported through the go-job logger bridge so the worker logs land on the
// same sink as the rest of the bridge.
type Runner struct {
	dequeuer  queue.Dequeuer
	sweeper   *Sweeper
	policy    gojobadapter.RetryPolicy
	logger    glog.Logger
	jobLogger job.Logger
}

func NewRunner(dequeuer queue.Dequeuer, sweeper *Sweeper, policy gojobadapter.RetryPolicy, logger glog.Logger) (*Runner, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("janitor: dequeuer is required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("janitor: sweeper is required")
	}
	_, runLogger, _, jobLogger := gologgeradapter.ResolveForJob("callbridge.janitor.worker", nil, logger)
	runLogger = glog.Ensure(runLogger)
	if jobLogger == nil {
		jobLogger = gologgeradapter.ToJobLogger(runLogger)
	}
	return &Runner{
		dequeuer:  dequeuer,
		sweeper:   sweeper,
		policy:    policy,
		logger:    runLogger,
		jobLogger: jobLogger,
	}, nil
}

// RunOnce dequeues a single job and processes it. Messages that are not
// sweep jobs are dead-lettered; a failed sweep is nacked for requeue so the
// next attempt can retry it.
func (r *Runner) RunOnce(ctx context.Context, attempt int) (Report, error) {
	if r == nil || r.dequeuer == nil {
		return Report{}, fmt.Errorf("janitor: runner is not configured")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("janitor: dequeue sweep job: %w", err)
	}
	bounded := gojobadapter.NewBoundedDelivery(delivery, r.policy)

	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDSweep {
		_ = bounded.NackForAttempt(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     "unexpected job id",
		}, attempt)
		r.logger.WithContext(ctx).Warn("dead-lettering unexpected job", "job_id", jobID(msg))
		return Report{}, fmt.Errorf("janitor: unexpected job %q", jobID(msg))
	}

	report, err := r.sweeper.Sweep(ctx)
	if err != nil {
		_ = bounded.NackForAttempt(ctx, queue.NackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}, attempt)
		r.logger.WithContext(ctx).Error("sweep job failed", "error", err.Error(), "attempt", attempt)
		return report, err
	}
	if err := delivery.Ack(ctx); err != nil {
		return report, fmt.Errorf("janitor: ack sweep job: %w", err)
	}
	r.jobLogger.Info("sweep job done",
		"job_id", JobIDSweep,
		"guard_active", report.GuardActive,
		"offer_cleared", report.OfferCleared,
	)
	return report, nil
}

func jobID(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	return msg.JobID
}
