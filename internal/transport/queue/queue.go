package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/knoxfield/corpusflow/internal/types"
)

// RecordChangedTask carries one content change event from the upstream
// connectors to the coordinator worker.
const RecordChangedTask = "record:changed"

// EnqueueChange enqueues a change event for processing. Connectors are
// the producers; the coordinator worker is the only consumer.
func EnqueueChange(ctx context.Context, client *asynq.Client, ev types.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	task := asynq.NewTask(RecordChangedTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue change event: %w", err)
	}
	return nil
}

// DecodeChange unpacks a task payload back into the event shape.
func DecodeChange(task *asynq.Task) (types.ChangeEvent, error) {
	var ev types.ChangeEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return types.ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}
