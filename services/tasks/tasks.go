package tasks

import (
	"encoding/json"
	"time"

	"aiacard/models"

	"github.com/hibiken/asynq"
)

const (
	TypeCardOpen      = "card:open"
	TypeCardReconcile = "card:reconcile"
	TypeEmailSend     = "email:send"
)

// NewCardOpenTask retries the card-open step for one account. The task id is
// derived from the account so at most one retry is queued at a time.
func NewCardOpenTask(accountID string, maxRetry int, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.CardOpenPayload{AccountID: accountID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCardOpen, b)
	opts := []asynq.Option{
		asynq.MaxRetry(maxRetry),
		asynq.ProcessIn(delay),
		asynq.TaskID("card-open:" + accountID),
	}
	return task, opts, nil
}

// NewCardReconcileTask is the periodic sweep over stuck card issuances.
func NewCardReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeCardReconcile, nil)
}

func NewEmailTask(payload models.EmailPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return asynq.NewTask(TypeEmailSend, b), []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(30 * time.Second)}, nil
}
