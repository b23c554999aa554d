package recorddecision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "record-decision"
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.db == nil {
		return nil, apperrors.NewDecisionRecordFailedError(fmt.Errorf("no database configured"))
	}

	id := uuid.New().String()
	recordedAt := time.Now().UTC()
	app := input.Decision.Application

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO loan_decisions (
			id, session_id, customer_id, amount, tenure_months,
			salary, existing_emi, approved, reason, letter_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id,
		input.SessionID,
		input.CustomerID,
		app.Amount,
		app.TenureMonths,
		app.Salary,
		app.ExistingEMI,
		input.Decision.Approved,
		input.Decision.Reason,
		input.LetterPath,
		recordedAt,
	)
	if err != nil {
		return nil, apperrors.NewDecisionRecordFailedError(fmt.Errorf("insert decision: %w", err))
	}

	// The audit row is best effort.
	details, err := json.Marshal(map[string]interface{}{
		"sessionId":  input.SessionID,
		"customerId": input.CustomerID,
		"approved":   input.Decision.Approved,
		"amount":     app.Amount,
	})
	if err != nil {
		details = []byte("{}")
	}
	eventType := "loan_rejected"
	if input.Decision.Approved {
		eventType = "loan_approved"
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventType,
		"loan_decision",
		id,
		details,
		recordedAt,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":      err,
			"decisionId": id,
		})
	}

	h.logger.Info("decision recorded", map[string]interface{}{
		"decisionId": id,
		"sessionId":  input.SessionID,
		"approved":   input.Decision.Approved,
	})

	return &Output{DecisionID: id, RecordedAt: recordedAt}, nil
}

// Record is the in-process entry point used by the chat engine.
func (h *Handler) Record(ctx context.Context, input *Input) (string, error) {
	out, err := h.execute(ctx, input)
	if err != nil {
		return "", err
	}
	return out.DecisionID, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
