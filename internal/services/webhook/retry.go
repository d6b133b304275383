package webhook

import (
	"context"
	"log"
	"time"
)

// RetryWorker re-drives failed deliveries whose NextRetryAt has passed.
// Each retry reuses the stored body and signature.
type RetryWorker struct {
	svc *Service
}

func NewRetryWorker(svc *Service) *RetryWorker {
	return &RetryWorker{svc: svc}
}

// Run polls until ctx is cancelled.
func (w *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.svc.config.RetryInterval)
	defer ticker.Stop()

	log.Printf("🔁 Webhook retry worker started (interval %s, max attempts %d)", w.svc.config.RetryInterval, w.svc.config.MaxAttempts)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				log.Printf("⚠️ Webhook retry pass failed: %v", err)
			}
		}
	}
}

// RunOnce redelivers one batch of due deliveries and returns how many
// succeeded.
func (w *RetryWorker) RunOnce(ctx context.Context) (int, error) {
	due, err := w.svc.repo.DueDeliveries(ctx, w.svc.now(), w.svc.config.RetryBatch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range due {
		d := &due[i]
		d.Attempts++
		w.svc.deliver(ctx, d)
		if d.Success {
			delivered++
		}
		if err := w.svc.repo.UpdateDelivery(ctx, d); err != nil {
			log.Printf("⚠️ Failed to update webhook delivery %d: %v", d.ID, err)
		}
	}
	return delivered, nil
}
