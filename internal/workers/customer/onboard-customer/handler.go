package onboardcustomer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/common/validation"
	"loan-assistant/internal/models"
	"loan-assistant/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "onboard-customer"

	metadataValidationErrors = "validationErrors"
)

var schema = validation.MustCompile(formSchema)

// CustomerWriter is the write side of the customer store.
type CustomerWriter interface {
	Exists(id string) bool
	Create(rec models.CustomerRecord) error
}

type Handler struct {
	config *Config
	store  CustomerWriter
	logger logger.Logger
	errors *apperrors.ErrorHandler

	mu  sync.Mutex
	rng *rand.Rand
}

func NewHandler(config *Config, store CustomerWriter, log logger.Logger) *Handler {
	return NewHandlerWithRand(config, store, rand.New(rand.NewSource(time.Now().UnixNano())), log)
}

// NewHandlerWithRand fixes the source used for credit scores.
func NewHandlerWithRand(config *Config, store CustomerWriter, rng *rand.Rand, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		logger: l,
		errors: apperrors.NewErrorHandler(l),
		rng:    rng,
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
	if input.Form == nil {
		return nil, apperrors.NewOnboardingValidationError("form is required")
	}

	result, err := schema.Validate(input.Form)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		h.logger.Info("onboarding form rejected", map[string]interface{}{
			"errorCount": len(result.Errors),
		})
		return nil, apperrors.NewOnboardingValidationError(strings.Join(result.GetErrorMessages(), "; ")).
			WithMetadata(metadataValidationErrors, result.Errors)
	}

	form, err := decodeForm(input.Form)
	if err != nil {
		return nil, apperrors.NewOnboardingValidationError(err.Error())
	}

	if h.store.Exists(form.CustomerID) {
		return nil, apperrors.NewDuplicateCustomerError(form.CustomerID)
	}

	rec := models.CustomerRecord{
		CustomerID:       form.CustomerID,
		Name:             form.Name,
		Age:              form.Age,
		City:             form.City,
		Employment:       form.Employment,
		Salary:           form.Salary,
		EMI:              form.EMI,
		CreditScore:      h.creditScore(),
		PreApprovedLimit: h.config.LimitMultiplier * float64(form.Salary),
	}

	if err := h.store.Create(rec); err != nil {
		// Another caller may have taken the ID since Exists.
		if errors.Is(err, store.ErrDuplicateCustomer) {
			return nil, apperrors.NewDuplicateCustomerError(rec.CustomerID)
		}
		return nil, err
	}

	metrics.CustomersOnboarded.Inc()
	h.logger.Info("customer onboarded", map[string]interface{}{
		"customerId":    rec.CustomerID,
		"creditScore":   rec.CreditScore,
		"hasKYC":        form.KYCDocument != "",
		"hasSalarySlip": form.SalarySlip != "",
	})

	return &Output{
		CustomerID:       rec.CustomerID,
		Customer:         &rec,
		CreditScore:      rec.CreditScore,
		PreApprovedLimit: rec.PreApprovedLimit,
		Reply:            welcome(rec),
		ValidationErrors: []validation.ValidationError{},
	}, nil
}

func decodeForm(raw map[string]interface{}) (models.OnboardingForm, error) {
	var form models.OnboardingForm
	data, err := json.Marshal(raw)
	if err != nil {
		return form, fmt.Errorf("encode form: %w", err)
	}
	if err := json.Unmarshal(data, &form); err != nil {
		return form, fmt.Errorf("decode form: %w", err)
	}
	form.Name = strings.TrimSpace(form.Name)
	form.City = strings.TrimSpace(form.City)
	return form, nil
}

// creditScore draws uniformly from [MinCreditScore, MaxCreditScore].
func (h *Handler) creditScore() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config.MinCreditScore + h.rng.Intn(h.config.MaxCreditScore-h.config.MinCreditScore+1)
}

func welcome(rec models.CustomerRecord) string {
	return fmt.Sprintf("Welcome %s! You're registered as %s. Credit Score: %d, Pre-approved limit: ₹%s. "+
		"Please upload your salary slip to continue.",
		rec.Name, rec.CustomerID, rec.CreditScore, formatAmount(rec.PreApprovedLimit))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ValidationErrors returns the field errors carried by an onboarding
// validation failure, or nil for any other error.
func ValidationErrors(err error) []validation.ValidationError {
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok || stdErr.Code != apperrors.ErrCodeOnboardingValidationFailed {
		return nil
	}
	errs, _ := stdErr.Metadata[metadataValidationErrors].([]validation.ValidationError)
	return errs
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
