package worker

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/knoxfield/corpusflow/internal/ingestion/coordinator"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/transport/queue"
)

// Processor drives one coordinator run per delivered task. A returned
// error is asynq's redelivery signal; the coordinator leaves no partial
// milestones behind when it raises.
type Processor struct {
	coord *coordinator.Coordinator
	log   *logger.Logger
}

func NewProcessor(coord *coordinator.Coordinator, baseLog *logger.Logger) *Processor {
	return &Processor{coord: coord, log: baseLog.With("component", "TransportWorker")}
}

func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.RecordChangedTask, p.handleChange)
	return mux
}

func (p *Processor) handleChange(ctx context.Context, task *asynq.Task) error {
	ev, err := queue.DecodeChange(task)
	if err != nil {
		return err
	}

	seq, err := p.coord.Process(ctx, ev)
	if err != nil {
		p.log.Error("change event rejected", "record_id", ev.Payload.RecordID, "error", err)
		return err
	}

	// Drain the phase stream; milestones go to the downstream indexing
	// stage, which consumes them off this worker's emit log.
	for phase, perr := range seq {
		if perr != nil {
			p.log.Error("extraction failed mid-stream", "record_id", ev.Payload.RecordID, "error", perr)
			return perr
		}
		p.log.Info("phase milestone", "record_id", phase.RecordID, "event", phase.Name)
	}
	return nil
}
