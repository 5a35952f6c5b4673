package classifyseverity

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"triage-workers/internal/common/camunda"
	"triage-workers/internal/common/config"
	"triage-workers/internal/common/errors"
	"triage-workers/internal/common/logger"
	"triage-workers/internal/common/metrics"
	"triage-workers/internal/common/observability"
	"triage-workers/internal/common/validation"
	"triage-workers/internal/models"
	"triage-workers/internal/triage"
)

const (
	TaskType   = "triage.severity.classify"
	WorkerName = "classify-severity"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	obs := opts.Observability
	if obs == nil {
		obs = &observability.Observability{}
	}

	return &Handler{
		config:       workerConfig,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.GetKey()))
	defer span.End()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}
	span.SetAttributes(attribute.String("triage.level_of_care", output.LevelOfCare))

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "completed")
	h.logger.Info("Severity classified", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"levelOfCare":        output.LevelOfCare,
	})
}

// Execute classifies input. It never fails for a well-formed input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(WorkerName, err)
	}

	c := triage.ClassifySignals(&models.ExtractedSignals{
		AgeYears: input.AgeYears,
		Flags:    input.Flags,
	})
	metrics.LevelOfCare.WithLabelValues(c.LevelOfCare.String()).Inc()

	return &Output{
		LevelOfCare: c.LevelOfCare.String(),
		Flags:       []string(c.Flags),
		AgeYears:    c.AgeYears,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	schema := GetInputSchema()
	result := validation.ValidateInput(variables, schema)
	if !result.Valid {
		return nil, errors.NewInvalidInputError(result.Error()).
			WithMetadata("field", result.InvalidField(schema))
	}

	raw, ok := variables["flags"]
	if !ok {
		raw, ok = variables["symptoms"]
	}
	if !ok {
		return nil, errors.NewInvalidInputError("flags: required field missing").
			WithMetadata("field", "flags")
	}

	input := &Input{Flags: []string{}}
	if items, ok := raw.([]interface{}); ok {
		for _, item := range items {
			input.Flags = append(input.Flags, item.(string))
		}
	} else if raw != nil {
		return nil, errors.NewInvalidInputError("flags: must be an array of strings").
			WithMetadata("field", "flags")
	}

	if age, ok := validation.IntValue(variables["age_years"]); ok {
		input.AgeYears = &age
	}
	return input, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	if workerCfg, exists := appConfig.Workers[WorkerName]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}
	return cfg
}
