package card

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aiacard/models"

	"github.com/hibiken/asynq"
)

// HandleCardOpenTask retries the open step for the task's account. A returned
// error makes asynq retry with backoff.
func HandleCardOpenTask(s *Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.CardOpenPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.AccountID == "" {
			return fmt.Errorf("invalid card open payload: %w", asynq.SkipRetry)
		}
		return s.RetryOpenCard(ctx, p.AccountID)
	}
}

// HandleReconcileTask sweeps stalled issuances.
func HandleReconcileTask(s *Service, olderThan time.Duration, batch int) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		_, err := s.ReconcilePending(ctx, olderThan, batch)
		return err
	}
}
