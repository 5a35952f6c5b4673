package classifyseverity

import (
	"context"
	"encoding/json"
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

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                7,
		Type:               TaskType,
		ProcessInstanceKey: 70,
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig(), Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func intPtr(i int) *int { return &i }

func TestHandler_NewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: &Config{MaxJobsActive: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout must be positive")

	h, err := NewHandler(HandlerOptions{AppConfig: &config.Config{
		Workers: map[string]config.WorkerConfig{WorkerName: {Enabled: true, Timeout: 250}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, h.GetConfig().Timeout)
	assert.Equal(t, 10, h.GetConfig().MaxJobsActive)
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name      string
		variables map[string]interface{}
		want      *Input
		wantField string
	}{
		{
			name:      "flags and age",
			variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": 80},
			want:      &Input{Flags: []string{"pain"}, AgeYears: intPtr(80)},
		},
		{
			name:      "empty flags",
			variables: map[string]interface{}{"flags": []string{}},
			want:      &Input{Flags: []string{}},
		},
		{
			name:      "blank flag kept",
			variables: map[string]interface{}{"flags": []string{""}},
			want:      &Input{Flags: []string{""}},
		},
		{
			name:      "oldest accepted age",
			variables: map[string]interface{}{"flags": []string{}, "age_years": 120},
			want:      &Input{Flags: []string{}, AgeYears: intPtr(120)},
		},
		{
			name:      "symptoms alias",
			variables: map[string]interface{}{"symptoms": []string{"fever"}, "age_years": nil},
			want:      &Input{Flags: []string{"fever"}},
		},
		{
			name:      "flags win over symptoms",
			variables: map[string]interface{}{"flags": []string{"fever"}, "symptoms": []string{"bleeding"}},
			want:      &Input{Flags: []string{"fever"}},
		},
		{name: "null flags rejected", variables: map[string]interface{}{"flags": nil}, wantField: "flags"},
		{name: "missing flags", variables: map[string]interface{}{"age_years": 3}, wantField: "flags"},
		{name: "flags not an array", variables: map[string]interface{}{"flags": "chest_pain"}, wantField: "flags"},
		{name: "non-string flag", variables: map[string]interface{}{"flags": []interface{}{"pain", 3}}, wantField: "flags"},
		{name: "non-integer age", variables: map[string]interface{}{"flags": []string{}, "age_years": "old"}, wantField: "age_years"},
		{name: "negative age", variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": -1}, wantField: "age_years"},
		{name: "age above range", variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": 121}, wantField: "age_years"},
		{name: "age beyond integer range", variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": 1e20}, wantField: "age_years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(tt.variables))
			if tt.wantField != "" {
				require.Error(t, err)
				stdErr, ok := err.(*errors.StandardError)
				require.True(t, ok)
				assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
				assert.Equal(t, tt.wantField, stdErr.Metadata["field"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, input)
		})
	}
}

func TestHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantLevel string
		wantField string
	}{
		{name: "pain in an adult", variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": 40}, wantLevel: "BLS"},
		{name: "blank flag", variables: map[string]interface{}{"flags": []string{""}}, wantLevel: "BLS"},
		{name: "overflowing age is rejected", variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": 1e20}, wantField: "age_years"},
		{name: "negative age is rejected", variables: map[string]interface{}{"flags": []string{"pain"}, "age_years": -5}, wantField: "age_years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			newTestHandler(t).Handle(client, createMockJob(tt.variables))

			gw := client.Gateway
			if tt.wantField != "" {
				assert.Empty(t, gw.Completed)
				require.Len(t, gw.Thrown, 1)
				assert.Equal(t, string(errors.ErrCodeInvalidInput), gw.Thrown[0].GetErrorCode())

				var vars map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(gw.Thrown[0].GetVariables()), &vars))
				assert.Equal(t, tt.wantField, vars["field"])
				return
			}

			assert.Empty(t, gw.Thrown)
			require.Len(t, gw.Completed, 1)
			var out map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(gw.Completed[0].GetVariables()), &out))
			assert.Equal(t, tt.wantLevel, out["level_of_care"])
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name  string
		input *Input
		want  string
	}{
		{"no flags", &Input{Flags: []string{}}, "General"},
		{"no flags elderly", &Input{Flags: []string{}, AgeYears: intPtr(90)}, "General"},
		{"unconscious", &Input{Flags: []string{"unconscious"}}, "Critical"},
		{"bleeding beats chest pain", &Input{Flags: []string{"chest_pain", "bleeding"}}, "Critical"},
		{"stroke", &Input{Flags: []string{"stroke_signs"}}, "ALS"},
		{"child with fever", &Input{Flags: []string{"fever"}, AgeYears: intPtr(11)}, "ALS"},
		{"twelve year old with fever", &Input{Flags: []string{"fever"}, AgeYears: intPtr(12)}, "BLS"},
		{"seventy five with pain", &Input{Flags: []string{"pain"}, AgeYears: intPtr(75)}, "BLS"},
		{"seventy six with pain", &Input{Flags: []string{"pain"}, AgeYears: intPtr(76)}, "ALS"},
		{"unknown flag", &Input{Flags: []string{"rash"}}, "BLS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.LevelOfCare)
		})
	}
}

func TestHandler_Execute_NormalizesFlags(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{Flags: []string{"pain", "fever", "pain"}, AgeYears: intPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, []string{"fever", "pain"}, out.Flags)
	assert.Equal(t, 40, *out.AgeYears)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"level_of_care":"BLS","flags":["fever","pain"],"age_years":40}`, string(raw))
}
