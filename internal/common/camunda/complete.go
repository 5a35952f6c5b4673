package camunda

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// CompleteJob completes job with output serialized as process variables,
// resending on transient gateway errors.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command for job %d: %w", job.GetKey(), err)
	}

	_, err = ExecuteWithRetry(ctx, CompleteJobRetry, func(ctx context.Context) (interface{}, error) {
		return request.Send(ctx)
	}, "complete-job")
	if err != nil {
		return fmt.Errorf("complete job %d: %w", job.GetKey(), err)
	}
	return nil
}
