package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue audit events are enqueued on.
	QueueDefault = "default"
	// TaskTypeRecord is the task type for persisting an audit event.
	TaskTypeRecord = "audit:record"
)

// NewRecordTask wraps an event in an Asynq task.
func NewRecordTask(event Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, data, asynq.Queue(QueueDefault)), nil
}

// QueueSink enqueues events for the background worker instead of writing
// them inline. The worker owns the Postgres write.
type QueueSink struct {
	client *asynq.Client
}

// NewQueueSink returns a sink that enqueues via the given client.
func NewQueueSink(client *asynq.Client) *QueueSink {
	return &QueueSink{client: client}
}

// Record enqueues the event.
func (s *QueueSink) Record(ctx context.Context, event Event) error {
	if s == nil || s.client == nil {
		return errors.New("audit: queue sink not initialised")
	}
	task, err := NewRecordTask(event)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task)
	return err
}

// RecordHandler returns the worker-side Asynq handler that persists queued
// events through the given sink.
func RecordHandler(sink Sink) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event Event
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		return sink.Record(ctx, event)
	}
}
