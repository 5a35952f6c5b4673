package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-workers/internal/common/errors"
)

func fastRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("rpc error: code = Unavailable desc = connection refused")))
	assert.True(t, isRetryableZeebeError(stderrors.New("context deadline exceeded")))
	assert.False(t, isRetryableZeebeError(stderrors.New("NOT_FOUND: job 42")))
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code errors.ErrorCode
	}{
		{"context deadline exceeded", errors.ErrCodeTimeout},
		{"job not found", errors.ErrCodeInternalError},
		{"permission denied", errors.ErrCodeInternalError},
		{"connection refused", errors.ErrCodeExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(stderrors.New(tt.msg), "complete-job", 0)
			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Contains(t, stdErr.Details, "complete-job")
		})
	}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0

	res, err := ExecuteWithRetry(context.Background(), fastRetry(3), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("unavailable")
		}
		return "ok", nil
	}, "publish-message")

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0

	_, err := ExecuteWithRetry(context.Background(), fastRetry(3), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("process definition not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	calls := 0

	_, err := ExecuteWithRetry(context.Background(), fastRetry(2), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("connection reset by peer")
	}, "activate-jobs")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeExternalService, stdErr.Code)
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	slow := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecuteWithRetry(ctx, slow, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("timeout")
	}, "topology")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
