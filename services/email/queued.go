package email

import (
	"context"
	"encoding/json"
	"fmt"

	"aiacard/models"
	"aiacard/services/tasks"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the queued mailer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuedMailer hands messages to the background worker, which retries
// delivery with the wrapped Mailer.
type QueuedMailer struct {
	queue Enqueuer
}

func NewQueuedMailer(queue Enqueuer) *QueuedMailer {
	return &QueuedMailer{queue: queue}
}

func (m *QueuedMailer) Send(ctx context.Context, to, subject, body string) error {
	task, opts, err := tasks.NewEmailTask(models.EmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("build email task: %w", err)
	}
	if _, err := m.queue.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue email to %s: %w", to, err)
	}
	return nil
}

// HandleEmailTask delivers a queued message. Returning an error makes asynq retry.
func HandleEmailTask(mailer Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.EmailPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid email payload: %v: %w", err, asynq.SkipRetry)
		}
		return mailer.Send(ctx, p.To, p.Subject, p.Body)
	}
}
