package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The export queue is the opaque async-task facility: callers submit a task
// keyed by patient id and poll a result handle. The core never blocks a
// request on export generation.

const (
	queueKey      = "export:queue"
	taskKeyPrefix = "export:task:"
)

var ErrTaskNotFound = errors.New("export task not found")

type TaskStatus string

const (
	TaskQueued  TaskStatus = "queued"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

type Task struct {
	ID          string    `json:"id"`
	PatientID   int64     `json:"patient_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Result is the poll handle state for one task.
type Result struct {
	TaskID    string     `json:"task_id"`
	PatientID int64      `json:"patient_id"`
	Status    TaskStatus `json:"status"`
	FilePath  string     `json:"file_path,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Queue is a Redis-list backed task queue with per-task status keys.
type Queue struct {
	client    *redis.Client
	retention time.Duration
}

func NewQueue(client *redis.Client, retention time.Duration) *Queue {
	return &Queue{client: client, retention: retention}
}

// Submit enqueues a CSV export for the patient and returns the task id.
func (q *Queue) Submit(ctx context.Context, patientID int64) (string, error) {
	task := Task{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		RequestedAt: time.Now(),
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal export task: %w", err)
	}

	if err := q.setResult(ctx, Result{
		TaskID:    task.ID,
		PatientID: patientID,
		Status:    TaskQueued,
		UpdatedAt: time.Now(),
	}); err != nil {
		return "", err
	}

	if err := q.client.LPush(ctx, queueKey, payload).Err(); err != nil {
		return "", fmt.Errorf("enqueue export task: %w", err)
	}
	return task.ID, nil
}

// Result returns the current state of a task handle.
func (q *Queue) Result(ctx context.Context, taskID string) (*Result, error) {
	raw, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load export task: %w", err)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode export task: %w", err)
	}
	return &res, nil
}

func (q *Queue) setResult(ctx context.Context, res Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal export result: %w", err)
	}
	if err := q.client.Set(ctx, taskKeyPrefix+res.TaskID, payload, q.retention).Err(); err != nil {
		return fmt.Errorf("store export result: %w", err)
	}
	return nil
}

// Next blocks for up to timeout waiting for a task. A nil task with nil
// error means the wait timed out and the caller should loop.
func (q *Queue) Next(ctx context.Context, timeout time.Duration) (*Task, error) {
	vals, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop export task: %w", err)
	}
	if len(vals) != 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(vals[1]), &task); err != nil {
		return nil, fmt.Errorf("decode export task: %w", err)
	}
	return &task, nil
}
