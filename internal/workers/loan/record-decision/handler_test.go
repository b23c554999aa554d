package recorddecision

import (
	"context"
	"errors"
	"testing"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInput(approved bool) *Input {
	return &Input{
		SessionID:  "sess-1",
		CustomerID: "C001",
		Decision: models.EligibilityDecision{
			Approved: approved,
			Reason:   "within policy",
			Application: models.LoanApplication{
				Amount: 60000, TenureMonths: 24, Salary: 50000, ExistingEMI: 1000,
			},
		},
		LetterPath: "letters/sanction_letter_Asha.pdf",
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO loan_decisions`).
		WithArgs(sqlmock.AnyArg(), "sess-1", "C001", int64(60000), 24, int64(50000), int64(1000),
			true, "within policy", "letters/sanction_letter_Asha.pdf", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("loan_approved", "loan_decision", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), createTestInput(true))

	require.NoError(t, err)
	_, parseErr := uuid.Parse(out.DecisionID)
	assert.NoError(t, parseErr)
	assert.False(t, out.RecordedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_RejectedDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO loan_decisions`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("loan_rejected", "loan_decision", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), createTestInput(false))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO loan_decisions`).WillReturnError(errors.New("connection reset"))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), createTestInput(true))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDecisionRecordFailed))
	assert.Equal(t, 3, apperrors.GetRetryCount(apperrors.ErrCodeDecisionRecordFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AuditFailureIsNotFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO loan_decisions`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("relation does not exist"))

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	id, err := h.Record(context.Background(), createTestInput(true))

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoDatabase(t *testing.T) {
	h := NewHandler(LoadConfig(), nil, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), createTestInput(true))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDecisionRecordFailed))
}
