package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeGenerateAgreement = "agreement:generate"

// GenerateAgreementPayload is the body of an agreement:generate task.
type GenerateAgreementPayload struct {
	AgreementID string `json:"agreementId"`
}

// NewGenerateAgreementTask builds the task that renders and stores a signed
// agreement. The task ID is derived from the agreement so a double
// submission is rejected by the queue.
func NewGenerateAgreementTask(agreementID string) (*asynq.Task, []asynq.Option, error) {
	if agreementID == "" {
		return nil, nil, errors.New("tasks: agreement id is required")
	}
	b, err := json.Marshal(GenerateAgreementPayload{AgreementID: agreementID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeGenerateAgreement, b)
	opts := []asynq.Option{
		asynq.TaskID("agreement-generate:" + agreementID),
		asynq.MaxRetry(5),
		asynq.Timeout(2 * time.Minute),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

// ParseGenerateAgreementPayload decodes a task body.
func ParseGenerateAgreementPayload(t *asynq.Task) (GenerateAgreementPayload, error) {
	var p GenerateAgreementPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("tasks: invalid %s payload: %w", TypeGenerateAgreement, err)
	}
	if p.AgreementID == "" {
		return p, fmt.Errorf("tasks: %s payload without agreement id", TypeGenerateAgreement)
	}
	return p, nil
}

// Enqueuer submits background tasks.
type Enqueuer struct {
	Client *asynq.Client
}

// NewEnqueuer returns an Enqueuer writing to the queue behind opt.
func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{Client: asynq.NewClient(opt)}
}

// EnqueueGenerateAgreement queues document generation for an agreement.
// A task already queued for the same agreement counts as success.
func (e *Enqueuer) EnqueueGenerateAgreement(ctx context.Context, agreementID string) error {
	task, opts, err := NewGenerateAgreementTask(agreementID)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("tasks: failed to enqueue %s: %w", TypeGenerateAgreement, err)
	}
	return nil
}

// Close releases the client connection.
func (e *Enqueuer) Close() error {
	return e.Client.Close()
}
