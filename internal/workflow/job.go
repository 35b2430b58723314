package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/copilot-ai/copilot/internal/event"
)

// JobRunTranscription is the queue name of the transcription pipeline job.
const JobRunTranscription = "run-transcription-pipeline"

// TranscriptionJobPayload carries one transcription pipeline run.
type TranscriptionJobPayload struct {
	JobID     string `json:"jobId"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content"`
}

// Runner executes workflow graphs as background jobs. Failures are returned
// to the queue so its retry policy governs re-attempts.
type Runner struct {
	executor *Executor
	bus      *event.Bus
}

// NewRunner creates a job runner. bus may be nil.
func NewRunner(executor *Executor, bus *event.Bus) *Runner {
	return &Runner{executor: executor, bus: bus}
}

// HandleTranscriptionJob runs the transcription graph over the payload's
// content and announces the outcome on the bus.
func (r *Runner) HandleTranscriptionJob(ctx context.Context, payload []byte) error {
	var p TranscriptionJobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad transcription payload: %w", err)
	}

	if _, err := r.executor.Run(ctx, TranscriptionGraph(), Params{"content": p.Content}); err != nil {
		r.publish(event.TranscriptionFailed, event.TranscriptionData{
			JobID:     p.JobID,
			SessionID: p.SessionID,
			Error:     err.Error(),
		})
		return err
	}

	r.publish(event.TranscriptionFinished, event.TranscriptionData{
		JobID:     p.JobID,
		SessionID: p.SessionID,
	})
	return nil
}

func (r *Runner) publish(t event.Type, data any) {
	if r.bus != nil {
		r.bus.Publish(event.Event{Type: t, Data: data})
	}
}
