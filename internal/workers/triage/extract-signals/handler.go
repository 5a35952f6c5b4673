package extractsignals

import (
	"context"
	stderrors "errors"
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
	"triage-workers/internal/triage"
)

const (
	TaskType   = "triage.signals.extract"
	WorkerName = "extract-signals"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	extractor    *triage.Extractor
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

	vocab := triage.DefaultVocabulary()
	if len(workerConfig.Vocabulary) > 0 {
		vocab = triage.NewVocabulary(workerConfig.Vocabulary)
	}

	return &Handler{
		config:       workerConfig,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
		extractor:    triage.NewExtractor(vocab),
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

	h.logger.Debug("Processing signal extraction", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

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
	h.logger.Info("Signals extracted", map[string]interface{}{
		"jobKey": job.GetKey(),
		"flags":  output.Flags,
		"hasAge": output.AgeYears != nil,
	})
}

// Execute runs extraction on an already validated input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(WorkerName, err)
	}

	signals, err := h.extractor.Extract(input.Text, input.AgeYears)
	if err != nil {
		return nil, convertToStandardError(err)
	}

	for _, flag := range signals.Flags {
		metrics.FlagsDetected.WithLabelValues(flag).Inc()
	}

	flags := []string(signals.Flags)
	symptoms := make([]string, len(flags))
	copy(symptoms, flags)

	return &Output{
		AgeYears: signals.AgeYears,
		FreeText: signals.FreeText,
		Flags:    flags,
		Symptoms: symptoms,
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

	input := &Input{Text: variables["text"].(string)}
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

func convertToStandardError(err error) *errors.StandardError {
	var inputErr *triage.InputError
	if stderrors.As(err, &inputErr) {
		return errors.NewInvalidInputError(err.Error()).WithMetadata("field", inputErr.Field)
	}
	return errors.Normalize(err)
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
	cfg.Vocabulary = appConfig.Triage.Vocabulary
	return cfg
}
