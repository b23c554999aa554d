package lookupcustomer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "lookup-customer"

	EligibleRemark = " You are eligible for quick approval. Please upload your salary slip."
	declinedRemark = " Unfortunately, your credit score is below %d, so this loan may be declined."
)

// CustomerReader is the read side of the customer store.
type CustomerReader interface {
	Get(id string) (models.CustomerRecord, bool)
}

type Handler struct {
	config *Config
	store  CustomerReader
	logger logger.Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, store CustomerReader, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
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
	if input.CustomerID == "" {
		return nil, apperrors.NewInvalidInputError("customerId is required")
	}

	rec, ok := h.store.Get(input.CustomerID)
	if !ok {
		h.logger.Info("customer not found, onboarding required", map[string]interface{}{
			"customerId": input.CustomerID,
		})
		return &Output{
			NeedsOnboarding: true,
			Reply:           OnboardingPrompt(input.CustomerID),
		}, nil
	}

	eligible := rec.CreditScore >= h.config.MinCreditScore
	h.logger.Info("customer found", map[string]interface{}{
		"customerId":  rec.CustomerID,
		"creditScore": rec.CreditScore,
		"eligible":    eligible,
	})

	return &Output{
		Found:    true,
		Customer: &rec,
		Eligible: eligible,
		Reply:    h.describe(rec, eligible),
	}, nil
}

func (h *Handler) describe(rec models.CustomerRecord, eligible bool) string {
	reply := fmt.Sprintf("Customer %s found from %s. Pre-approved limit: ₹%s, Credit Score: %d.",
		rec.Name, rec.City, FormatAmount(rec.PreApprovedLimit), rec.CreditScore)
	if eligible {
		return reply + EligibleRemark
	}
	return reply + fmt.Sprintf(declinedRemark, h.config.MinCreditScore)
}

// OnboardingPrompt is the reply for an unknown customer ID.
func OnboardingPrompt(customerID string) string {
	return fmt.Sprintf("I couldn't find Customer ID %s. Let's get you onboarded: please share your "+
		"Name, Age, City, Employment (Salaried or Self-Employed), monthly Salary, existing EMI, "+
		"a KYC document and your latest salary slip.", customerID)
}

// FormatAmount renders a limit without trailing zeros or grouping.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
