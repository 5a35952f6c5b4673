package extractsignals

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-workers/internal/common/camunda/camundatest"
	"triage-workers/internal/common/config"
	"triage-workers/internal/common/errors"
	"triage-workers/internal/common/logger"
)

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "triage-process",
		ElementId:          "Activity_ExtractSignals",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, cfg *Config) *Handler {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h, err := NewHandler(HandlerOptions{CustomConfig: cfg, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func intPtr(i int) *int { return &i }

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{name: "defaults", opts: HandlerOptions{CustomConfig: DefaultConfig()}},
		{name: "no config at all", opts: HandlerOptions{}},
		{
			name:    "invalid timeout",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, MaxJobsActive: 1}},
			wantErr: "timeout must be positive",
		},
		{
			name:    "invalid max jobs active",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, Timeout: time.Second}},
			wantErr: "max_jobs_active must be positive",
		},
		{
			name: "empty vocabulary category",
			opts: HandlerOptions{CustomConfig: &Config{
				Enabled: true, MaxJobsActive: 1, Timeout: time.Second,
				Vocabulary: map[string][]string{"nausea": {}},
			}},
			wantErr: `vocabulary category "nausea" has no phrases`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
			assert.True(t, h.IsEnabled())
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	app := &config.Config{
		Workers: map[string]config.WorkerConfig{
			WorkerName: {Enabled: false, MaxJobsActive: 20, Timeout: 1500},
		},
		Triage: config.TriageConfig{Vocabulary: map[string][]string{"nausea": {"nausea"}}},
	}

	cfg := createConfigFromAppConfig(app, nil)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 20, cfg.MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, []string{"nausea"}, cfg.Vocabulary["nausea"])

	custom := DefaultConfig()
	assert.Same(t, custom, createConfigFromAppConfig(app, custom))
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantField string
		want      *Input
	}{
		{
			name:      "text only",
			variables: map[string]interface{}{"text": "fell off a ladder"},
			want:      &Input{Text: "fell off a ladder"},
		},
		{
			name:      "text with age hint",
			variables: map[string]interface{}{"text": "fell", "age_years": 67},
			want:      &Input{Text: "fell", AgeYears: intPtr(67)},
		},
		{
			name:      "null age hint",
			variables: map[string]interface{}{"text": "fell", "age_years": nil},
			want:      &Input{Text: "fell"},
		},
		{
			name:      "extra process variables are ignored",
			variables: map[string]interface{}{"text": "fell", "caseId": "c-1"},
			want:      &Input{Text: "fell"},
		},
		{
			name:      "very long text",
			variables: map[string]interface{}{"text": strings.Repeat("a", 50000)},
			want:      &Input{Text: strings.Repeat("a", 50000)},
		},
		{name: "missing text", variables: map[string]interface{}{}, wantField: "text"},
		{name: "blank text", variables: map[string]interface{}{"text": "   "}, wantField: "text"},
		{name: "non-string text", variables: map[string]interface{}{"text": 42}, wantField: "text"},
		{name: "fractional age", variables: map[string]interface{}{"text": "x", "age_years": 4.5}, wantField: "age_years"},
		{name: "string age", variables: map[string]interface{}{"text": "x", "age_years": "40"}, wantField: "age_years"},
		{name: "negative age", variables: map[string]interface{}{"text": "x", "age_years": -3}, wantField: "age_years"},
		{name: "age beyond integer range", variables: map[string]interface{}{"text": "x", "age_years": 1e20}, wantField: "age_years"},
		{name: "bad text reported before bad age", variables: map[string]interface{}{"text": "", "age_years": 1e20}, wantField: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantField != "" {
				require.Error(t, err)
				stdErr, ok := err.(*errors.StandardError)
				require.True(t, ok, "error should be StandardError")
				assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
				assert.Equal(t, tt.wantField, stdErr.Metadata["field"])
				assert.False(t, stdErr.Retryable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, input)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name      string
		input     *Input
		wantAge   *int
		wantFlags []string
	}{
		{
			name:      "age and chest symptoms from text",
			input:     &Input{Text: "34 yr male with CHEST PAIN and short of breath"},
			wantAge:   intPtr(34),
			wantFlags: []string{"breathlessness", "chest_pain", "pain"},
		},
		{
			name:      "out of range age is dropped",
			input:     &Input{Text: "150 years old, feels fine"},
			wantFlags: []string{},
		},
		{
			name:      "hint wins over text",
			input:     &Input{Text: "34 yr, unconscious", AgeYears: intPtr(80)},
			wantAge:   intPtr(80),
			wantFlags: []string{"unconscious"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAge, out.AgeYears)
			assert.Equal(t, tt.wantFlags, out.Flags)
			assert.Equal(t, out.Flags, out.Symptoms)
			assert.Equal(t, tt.input.Text, out.FreeText)
		})
	}
}

func TestHandler_Handle(t *testing.T) {
	longText := strings.Repeat("waiting room chatter. ", 2000) + "patient is now unconscious"

	t.Run("long text completes", func(t *testing.T) {
		client := camundatest.NewJobClient()
		newTestHandler(t, nil).Handle(client, createMockJob(2, map[string]interface{}{"text": longText}))

		require.Len(t, client.Gateway.Completed, 1)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(client.Gateway.Completed[0].GetVariables()), &out))
		assert.Equal(t, []interface{}{"unconscious"}, out["flags"])
	})

	t.Run("overflowing age hint is thrown", func(t *testing.T) {
		client := camundatest.NewJobClient()
		newTestHandler(t, nil).Handle(client, createMockJob(3, map[string]interface{}{"text": "pain", "age_years": 1e20}))

		assert.Empty(t, client.Gateway.Completed)
		require.Len(t, client.Gateway.Thrown, 1)
		assert.Equal(t, string(errors.ErrCodeInvalidInput), client.Gateway.Thrown[0].GetErrorCode())

		var vars map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(client.Gateway.Thrown[0].GetVariables()), &vars))
		assert.Equal(t, "age_years", vars["field"])
	})
}

func TestHandler_Execute_BlankText(t *testing.T) {
	h := newTestHandler(t, nil)

	_, err := h.Execute(context.Background(), &Input{Text: "\t\n"})
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
	assert.Equal(t, "text", stdErr.Metadata["field"])
}

func TestHandler_Execute_CancelledContext(t *testing.T) {
	h := newTestHandler(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, &Input{Text: "chest pain"})
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTimeout, stdErr.Code)
}

func TestHandler_Execute_CustomVocabulary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vocabulary = map[string][]string{"nausea": {"nausea", "vomiting"}}
	h := newTestHandler(t, cfg)

	out, err := h.Execute(context.Background(), &Input{Text: "Vomiting since noon, chest pain"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nausea"}, out.Flags)
}

func TestOutput_JSONShape(t *testing.T) {
	out := &Output{FreeText: "x", Flags: []string{}, Symptoms: []string{}}
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"age_years":null,"free_text":"x","flags":[],"symptoms":[]}`, string(raw))
}
