package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/briangreenhill/fitplan/internal/domain"
)

const TaskGeneratePlan = "plan:generate"

type GeneratePlanPayload struct {
	JobID       string             `json:"job_id"`
	Preferences domain.Preferences `json:"preferences"`
}

// NewGeneratePlanTask builds a plan generation task. Failed generations are
// not retried.
func NewGeneratePlanTask(p GeneratePlanPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGeneratePlan, b, asynq.MaxRetry(0), asynq.TaskID(p.JobID)), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueGeneratePlan validates prefs and queues a generation, returning the
// new job id.
func EnqueueGeneratePlan(ctx context.Context, q Enqueuer, prefs domain.Preferences) (string, error) {
	prefs = prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	task, err := NewGeneratePlanTask(GeneratePlanPayload{JobID: id, Preferences: prefs})
	if err != nil {
		return "", fmt.Errorf("build task: %w", err)
	}
	if _, err := q.EnqueueContext(ctx, task); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TaskGeneratePlan, err)
	}
	return id, nil
}
