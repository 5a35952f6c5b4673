package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-workers/internal/common/camunda/camundatest"
)

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func failedJob(retries int32) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                9,
		Type:               "triage.facility.locate",
		ProcessInstanceKey: 90,
		Retries:            retries,
	}}
}

func TestHandleJobError_ThrowsBusinessError(t *testing.T) {
	client := camundatest.NewJobClient()
	log := &recordingLogger{}

	err := NewInvalidInputError("lat: out of range").WithMetadata("field", "lat")
	NewErrorHandler(log).HandleJobError(context.Background(), client, failedJob(3), err)

	require.Len(t, client.Gateway.Thrown, 1)
	assert.Empty(t, client.Gateway.Failed)
	thrown := client.Gateway.Thrown[0]
	assert.Equal(t, "INVALID_INPUT", thrown.GetErrorCode())

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(thrown.GetVariables()), &vars))
	assert.Equal(t, "lat", vars["field"])
	assert.Equal(t, []string{"Job failed"}, log.messages)
}

func TestHandleJobError_FailsRetryableWithDecrement(t *testing.T) {
	client := camundatest.NewJobClient()

	err := NewRegistryLoadFailedError("postgres:facilities", fmt.Errorf("conn refused"))
	NewErrorHandler(&recordingLogger{}).HandleJobError(context.Background(), client, failedJob(3), err)

	require.Len(t, client.Gateway.Failed, 1)
	assert.Empty(t, client.Gateway.Thrown)
	assert.Equal(t, int32(2), client.Gateway.Failed[0].GetRetries())
}

func TestHandleJobError_LogsUndeliveredReport(t *testing.T) {
	tests := []struct {
		name    string
		err     *StandardError
		prepare func(g *camundatest.Gateway)
		command string
	}{
		{
			name:    "throw rejected",
			err:     NewNoFacilityAvailableError("registry is empty"),
			prepare: func(g *camundatest.Gateway) { g.ThrowErrs = []error{fmt.Errorf("unavailable")} },
			command: "throw-error",
		},
		{
			name:    "fail rejected",
			err:     NewNotificationSendFailedError("sms", fmt.Errorf("throttled")),
			prepare: func(g *camundatest.Gateway) { g.FailErrs = []error{fmt.Errorf("unavailable")} },
			command: "fail-job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			tt.prepare(client.Gateway)
			log := &recordingLogger{}

			NewErrorHandler(log).HandleJobError(context.Background(), client, failedJob(3), tt.err)

			require.Len(t, log.messages, 2)
			assert.Equal(t, "Job error report not delivered", log.messages[1])
			assert.Equal(t, tt.command, log.fields[1]["command"])
			assert.Equal(t, "unavailable", log.fields[1]["error"])
		})
	}
}
