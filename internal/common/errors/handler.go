// internal/common/errors/handler.go
package errors

import (
	"context"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails or throws a job according to the error's code.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError reports err back to the broker for job.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries, throw := NextAction(stdErr, job.Retries)
	h.logError(job, stdErr, bpmnErr, retries, throw)

	if throw {
		h.throwBPMNError(ctx, client, job, bpmnErr)
		return
	}
	h.failJobWithRetries(ctx, client, job, bpmnErr, retries)
}

// Normalize returns the StandardError inside err, or wraps err as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// NextAction decides how a failed job is reported. A retryable error with
// budget left is failed with the decremented retry count, capped by the
// code's budget; everything else is thrown as a BPMN error.
func NextAction(stdErr *StandardError, jobRetries int32) (retries int32, throw bool) {
	if !stdErr.Retryable || !IsRetryableErrorCode(stdErr.Code) {
		return 0, true
	}
	budget := int32(GetRetryCount(stdErr.Code))
	remaining := jobRetries - 1
	if remaining <= 0 {
		return 0, true
	}
	if remaining > budget {
		remaining = budget
	}
	return remaining, false
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	var err error
	if withVars, varsErr := cmd.VariablesFromObject(bpmnErr.ToErrorVariables()); varsErr == nil {
		_, err = withVars.Send(ctx)
	} else {
		_, err = cmd.Send(ctx)
	}
	if err != nil {
		h.logSendFailure("fail-job", job, bpmnErr, err)
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	var err error
	if withVars, varsErr := cmd.VariablesFromObject(bpmnErr.ToErrorVariables()); varsErr == nil {
		_, err = withVars.Send(ctx)
	} else {
		_, err = cmd.Send(ctx)
	}
	if err != nil {
		h.logSendFailure("throw-error", job, bpmnErr, err)
	}
}

// logSendFailure reports a job the broker did not hear about; it stays
// activated until its timeout expires.
func (h *ErrorHandler) logSendFailure(command string, job entities.Job, bpmnErr *BPMNError, err error) {
	h.logger.Error("Job error report not delivered", map[string]interface{}{
		"command":       command,
		"jobKey":        job.Key,
		"jobType":       job.Type,
		"bpmnErrorCode": bpmnErr.Code,
		"error":         err.Error(),
	})
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, retries int32, throw bool) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retriesLeft":      retries,
		"thrown":           throw,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
