package locatenearest

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
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
	"triage-workers/internal/facility"
	"triage-workers/internal/models"
	"triage-workers/internal/triage"
)

const (
	TaskType   = "triage.facility.locate"
	WorkerName = "locate-nearest"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	registry     *facility.Registry
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Registry      *facility.Registry
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%s requires a facility registry", WorkerName)
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
		registry:     opts.Registry,
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
	ctx, span := h.obs.StartSpan(ctx, TaskType,
		attribute.Int64("job.key", job.GetKey()),
		attribute.Int("registry.facilities", h.registry.Len()),
	)
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
	h.logger.Info("Nearest facility located", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"facility":           output.NearestHospital,
		"distanceKm":         output.DistanceKm,
	})
}

// Execute finds the facility closest to the input point. Severity is carried
// into the result but does not restrict the candidates.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(WorkerName, err)
	}

	result, err := h.registry.Nearest(input.Severity, input.Lat, input.Lng)
	if err != nil {
		return nil, convertToStandardError(err)
	}

	metrics.LocateDistance.WithLabelValues(severityLabel(input.Severity)).Observe(result.DistanceKm)
	return &Output{
		NearestHospital: result.NearestHospital,
		Phone:           result.Phone,
		DistanceKm:      result.DistanceKm,
		Severity:        result.Severity,
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

	input := &Input{}
	input.Lat, _ = validation.FloatValue(variables["lat"])
	input.Lng, _ = validation.FloatValue(variables["lng"])
	if s, ok := variables["severity"].(string); ok && strings.TrimSpace(s) != "" {
		input.Severity = s
	} else if s, ok := variables["level_of_care"].(string); ok && strings.TrimSpace(s) != "" {
		input.Severity = s
	} else {
		return nil, errors.NewInvalidInputError("severity: required field missing").
			WithMetadata("field", "severity")
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

// HealthCheck fails when the registry snapshot is empty, since every job
// would then end in NO_FACILITY_AVAILABLE.
func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.registry.Len() == 0 {
		return fmt.Errorf("facility registry %s is empty", h.registry.Source())
	}
	return nil
}

func severityLabel(severity string) string {
	if lvl, err := models.ParseSeverityLevel(severity); err == nil {
		return lvl.String()
	}
	return "unknown"
}

func convertToStandardError(err error) *errors.StandardError {
	var inputErr *triage.InputError
	switch {
	case stderrors.As(err, &inputErr):
		return errors.NewInvalidInputError(err.Error()).WithMetadata("field", inputErr.Field)
	case stderrors.Is(err, triage.ErrNoFacilityAvailable):
		return errors.NewNoFacilityAvailableError(err.Error())
	default:
		return errors.Normalize(err)
	}
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
