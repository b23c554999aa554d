package evaluateeligibility

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evaluate-eligibility"
)

type Handler struct {
	config *Config
	logger logger.Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		logger: l,
		errors: apperrors.NewErrorHandler(l),
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	var app models.LoanApplication
	if input.Application != nil {
		app = *input.Application
	} else {
		var err error
		if app, err = h.config.BuildApplication(input.Customer, input.Utterance); err != nil {
			return nil, apperrors.NewInvalidApplicationError(err.Error())
		}
	}

	if err := validate(app); err != nil {
		return nil, err
	}

	decision := h.config.Policy.Evaluate(app)

	outcome := "rejected"
	if decision.Approved {
		outcome = "approved"
	}
	metrics.EligibilityDecisions.WithLabelValues(outcome).Inc()

	h.logger.Info("eligibility evaluated", map[string]interface{}{
		"approved":     decision.Approved,
		"reason":       decision.Reason,
		"amount":       app.Amount,
		"tenureMonths": app.TenureMonths,
		"salary":       app.Salary,
		"existingEmi":  app.ExistingEMI,
	})

	return &Output{
		Approved:    decision.Approved,
		Reason:      decision.Reason,
		Application: app,
	}, nil
}

func validate(app models.LoanApplication) error {
	switch {
	case app.Amount <= 0:
		return apperrors.NewInvalidApplicationError("amount must be positive")
	case app.TenureMonths <= 0:
		return apperrors.NewInvalidApplicationError("tenure must be positive")
	case app.Salary <= 0:
		return apperrors.NewInvalidApplicationError("salary must be positive")
	case app.ExistingEMI < 0:
		return apperrors.NewInvalidApplicationError("existing EMI cannot be negative")
	}
	return nil
}

// Decide is the in-process entry point used by the chat engine.
func (h *Handler) Decide(ctx context.Context, customer *models.CustomerRecord, utterance string) (models.EligibilityDecision, error) {
	out, err := h.execute(ctx, &Input{Utterance: utterance, Customer: customer})
	if err != nil {
		return models.EligibilityDecision{}, err
	}
	return models.EligibilityDecision{
		Approved:    out.Approved,
		Reason:      out.Reason,
		Application: out.Application,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
