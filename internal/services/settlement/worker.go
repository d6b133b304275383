package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domainerrors "digipay/internal/errors"
)

const (
	DefaultWorkerBackoff  = 2 * time.Second
	DefaultWorkerAttempts = 5
	DefaultSweepInterval  = time.Minute
	DefaultStaleAfter     = 5 * time.Minute
)

type WorkerConfig struct {
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff     time.Duration
	MaxAttempts int
	// SweepInterval is how often pending settlements older than
	// StaleAfter are pushed back onto the queue.
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

// Worker consumes settlement ids from a Queue and processes them. Store and
// queue errors are retried with exponential backoff; a gateway refusal is
// not retried because Process already failed and compensated the
// settlement. A settlement that still cannot be processed after
// MaxAttempts is abandoned and its amount credited back.
type Worker struct {
	svc    Service
	queue  Queue
	config WorkerConfig
	sleep  func(ctx context.Context, d time.Duration) bool
	now    func() time.Time
}

func NewWorker(svc Service, queue Queue, config WorkerConfig) *Worker {
	if svc == nil {
		panic("settlement service is required")
	}
	if queue == nil {
		panic("queue is required")
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultWorkerBackoff
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultWorkerAttempts
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	return &Worker{svc: svc, queue: queue, config: config, sleep: sleepCtx, now: time.Now}
}

// Run consumes jobs until ctx is cancelled. Jobs left unacknowledged by a
// previous run are requeued first, and a background sweep re-enqueues
// settlements stuck in pending.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("🔁 Settlement worker started (backoff %s, max attempts %d)", w.config.Backoff, w.config.MaxAttempts)

	if rq, ok := w.queue.(Requeuer); ok {
		n, err := rq.Requeue(ctx)
		if err != nil {
			log.Printf("⚠️ Failed to requeue unacknowledged settlements: %v", err)
		} else if n > 0 {
			log.Printf("📥 Requeued %d unacknowledged settlements", n)
		}
	}

	sweepDone := make(chan struct{})
	go func() {
		w.sweep(ctx)
		close(sweepDone)
	}()
	defer func() { <-sweepDone }()

	for {
		if ctx.Err() != nil {
			log.Println("🛑 Settlement worker stopped")
			return
		}

		id, err := w.queue.Dequeue(ctx)
		switch {
		case err == nil:
			w.Handle(ctx, id)
			if ctx.Err() != nil {
				// left unacknowledged for the next run
				continue
			}
			if err := w.queue.Ack(ctx, id); err != nil {
				log.Printf("⚠️ Failed to ack settlement %s: %v", id, err)
			}
		case errors.Is(err, ErrQueueEmpty):
		case ctx.Err() != nil:
		default:
			log.Printf("⚠️ Settlement queue error: %v", err)
			w.sleep(ctx, w.config.Backoff)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.svc.RequeueStale(ctx, w.now().Add(-w.config.StaleAfter)); err != nil && ctx.Err() == nil {
				log.Printf("⚠️ Stale settlement sweep failed: %v", err)
			}
		}
	}
}

// Handle processes one settlement id, retrying transient failures.
func (w *Worker) Handle(ctx context.Context, settlementID string) error {
	var err error
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		err = w.svc.Process(ctx, settlementID)
		if err == nil {
			return nil
		}
		if domainerrors.Is(err, domainerrors.ErrSettlementNotFound) {
			log.Printf("⚠️ Dropping job for unknown settlement %s", settlementID)
			return err
		}
		if attempt == w.config.MaxAttempts {
			break
		}

		delay := w.config.Backoff << (attempt - 1)
		log.Printf("⚠️ Settlement %s attempt %d failed, retrying in %s: %v", settlementID, attempt, delay, err)
		if !w.sleep(ctx, delay) {
			return ctx.Err()
		}
	}

	log.Printf("❌ Giving up on settlement %s after %d attempts: %v", settlementID, w.config.MaxAttempts, err)
	reason := fmt.Sprintf("Settlement processing failed after %d attempts: %v", w.config.MaxAttempts, err)
	if _, abandonErr := w.svc.Abandon(context.WithoutCancel(ctx), settlementID, reason); abandonErr != nil {
		log.Printf("❌ Failed to abandon settlement %s: %v", settlementID, abandonErr)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
