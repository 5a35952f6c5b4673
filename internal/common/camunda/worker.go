// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"triage-workers/internal/common/logger"
)

// JobHandler is implemented by every triage worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerOptions tunes a single job subscription.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	PollInterval  time.Duration
}

// CamundaWorker is one open job subscription.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType on client.
func NewWorker(client zbc.Client, taskType string, handler JobHandler, opts WorkerOptions, log logger.Logger) *CamundaWorker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		Name("triage-workers")

	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}
	if opts.PollInterval > 0 {
		step = step.PollInterval(opts.PollInterval)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   log,
		taskType: taskType,
	}
	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout_ms":    opts.Timeout.Milliseconds(),
	})
	return w
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the subscription and waits for in-flight jobs up to ctx's deadline.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})

	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop before deadline", map[string]interface{}{"taskType": w.taskType})
	}
}
