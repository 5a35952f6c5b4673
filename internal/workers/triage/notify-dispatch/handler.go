package notifydispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	awsclients "triage-workers/internal/common/aws"
	"triage-workers/internal/common/camunda"
	"triage-workers/internal/common/config"
	"triage-workers/internal/common/errors"
	"triage-workers/internal/common/logger"
	"triage-workers/internal/common/metrics"
	"triage-workers/internal/common/observability"
	"triage-workers/internal/common/validation"
	"triage-workers/internal/models"
)

const (
	TaskType   = "triage.dispatch.notify"
	WorkerName = "notify-dispatch"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	sesClient    SESService
	snsClient    SNSService
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	now          func() time.Time
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Logger        logger.Logger
	Observability *observability.Observability
	SES           SESService
	SNS           SNSService
}

// NewHandler builds AWS clients from the default credential chain unless
// both services are supplied.
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

	h := &Handler{
		config:       workerConfig,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient:    opts.SES,
		snsClient:    opts.SNS,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		now:          time.Now,
	}

	needSES := workerConfig.EmailEnabled && h.sesClient == nil
	needSNS := workerConfig.SMSEnabled && h.snsClient == nil
	if needSES || needSNS {
		clients, err := awsclients.NewClients(context.Background(), workerConfig.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", WorkerName, err)
		}
		if needSES {
			h.sesClient = clients.SES
		}
		if needSNS {
			h.snsClient = clients.SNS
		}
	}
	return h, nil
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
	span.SetAttributes(attribute.String("notification.status", output.Status))

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
	h.logger.Info("Dispatch notification handled", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"notificationId":     output.NotificationID,
		"status":             output.Status,
	})
}

// Execute alerts the dispatch desk when the level of care meets the
// configured threshold. Any channel failure fails the whole notification so
// the job is retried.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	level, err := models.ParseSeverityLevel(input.LevelOfCare)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error()).WithMetadata("field", "level_of_care")
	}

	output := &Output{NotificationID: uuid.New().String()}
	if !level.AtLeast(h.config.Threshold) {
		output.Status = StatusSkipped
		return output, nil
	}
	if !h.config.Enabled || (!h.config.EmailEnabled && !h.config.SMSEnabled) {
		output.Status = StatusDisabled
		return output, nil
	}

	data := messageData(input)
	body := render(bodyTemplate, data)

	if h.config.EmailEnabled {
		if err := h.sendEmail(ctx, render(subjectTemplate, data), body); err != nil {
			metrics.NotificationsSent.WithLabelValues(ChannelEmail, "failed").Inc()
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err).
				WithMetadata("notification_id", output.NotificationID)
		}
		metrics.NotificationsSent.WithLabelValues(ChannelEmail, "sent").Inc()
	}

	if h.config.SMSEnabled {
		if err := h.sendSMS(ctx, truncate(body, smsLimit)); err != nil {
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, "failed").Inc()
			return nil, errors.NewNotificationSendFailedError(ChannelSMS, err).
				WithMetadata("notification_id", output.NotificationID)
		}
		metrics.NotificationsSent.WithLabelValues(ChannelSMS, "sent").Inc()
	}

	output.Status = StatusSent
	output.SentAt = h.now().UTC().Format(time.RFC3339)
	return output, nil
}

func (h *Handler) sendEmail(ctx context.Context, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{ToAddresses: h.config.ToEmails},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, message string) error {
	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if h.config.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(h.config.SenderID),
		}
	}

	var failed []string
	for _, number := range h.config.DispatchNumbers {
		_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
			PhoneNumber:       aws.String(number),
			Message:           aws.String(message),
			MessageAttributes: attrs,
		})
		if err != nil {
			h.logger.Warn("SMS publish failed", map[string]interface{}{
				"phone": number,
				"error": err,
			})
			failed = append(failed, number)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("publish failed for %s", strings.Join(failed, ", "))
	}
	return nil
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

	input := &Input{
		LevelOfCare:     variables["level_of_care"].(string),
		NearestHospital: variables["nearest_hospital"].(string),
	}
	input.DistanceKm, _ = validation.FloatValue(variables["distance_km"])
	if phone, ok := variables["phone"].(string); ok {
		input.Phone = &phone
	}
	if text, ok := variables["free_text"].(string); ok {
		input.FreeText = text
	}
	if caseID, ok := variables["case_id"].(string); ok {
		input.CaseID = caseID
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

	n := appConfig.Notifications
	if lvl, err := models.ParseSeverityLevel(n.SMS.PriorityThreshold); err == nil {
		cfg.Threshold = lvl
	}
	cfg.EmailEnabled = n.Email.Enabled
	cfg.FromEmail = n.Email.FromEmail
	cfg.ToEmails = n.Email.ToEmails
	cfg.SMSEnabled = n.SMS.Enabled
	cfg.DispatchNumbers = n.SMS.DispatchNumbers
	cfg.SenderID = n.SMS.SenderID
	if n.AWS.Region != "" {
		cfg.AWSRegion = n.AWS.Region
	}
	return cfg
}
