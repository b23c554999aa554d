package publishsanctionevent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "publish-sanction-event"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	snsClient SNSService
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
	now       func() time.Time
}

func NewHandler(config *Config, snsClient SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		snsClient: snsClient,
		logger:    l,
		errors:    apperrors.NewErrorHandler(l),
		now:       time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err})
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.snsClient == nil || h.config.TopicARN == "" {
		return nil, apperrors.NewEventPublishFailedError(fmt.Errorf("no topic configured"))
	}

	event := SanctionEvent{
		EventType:    EventType,
		Source:       h.config.Source,
		SessionID:    input.SessionID,
		CustomerID:   input.CustomerID,
		Applicant:    input.Letter.ApplicantName,
		Amount:       input.Letter.Amount,
		TenureMonths: input.Letter.TenureMonths,
		MonthlyEMI:   input.Letter.MonthlyEMI,
		LetterFile:   input.Letter.FileName,
		OccurredAt:   h.now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return nil, apperrors.NewEventPublishFailedError(fmt.Errorf("encode event: %w", err))
	}

	resp, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String("Loan sanctioned"),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(EventType),
			},
		},
	})
	if err != nil {
		h.logger.Warn("sanction event publish failed", map[string]interface{}{
			"error":     err,
			"sessionId": input.SessionID,
		})
		return nil, apperrors.NewEventPublishFailedError(err)
	}

	messageID := aws.ToString(resp.MessageId)
	h.logger.Info("sanction event published", map[string]interface{}{
		"messageId": messageID,
		"sessionId": input.SessionID,
	})

	return &Output{MessageID: messageID}, nil
}

// Publish is the in-process entry point used by the chat engine.
func (h *Handler) Publish(ctx context.Context, input *Input) (string, error) {
	out, err := h.execute(ctx, input)
	if err != nil {
		return "", err
	}
	return out.MessageID, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
