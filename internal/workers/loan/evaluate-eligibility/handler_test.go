package evaluateeligibility

import (
	"context"
	"strings"
	"testing"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprove(t *testing.T) {
	tests := []struct {
		name string
		app  models.LoanApplication
		want bool
	}{
		{"fixture is rejected", models.LoanApplication{Amount: 200000, TenureMonths: 24, Salary: 50000, ExistingEMI: 9500}, false},
		{"both limits exactly met", models.LoanApplication{Amount: 75000, TenureMonths: 12, Salary: 50000, ExistingEMI: 25000}, true},
		{"amount one over", models.LoanApplication{Amount: 75001, TenureMonths: 12, Salary: 50000, ExistingEMI: 0}, false},
		{"emi one over", models.LoanApplication{Amount: 1000, TenureMonths: 12, Salary: 50000, ExistingEMI: 25001}, false},
		{"odd salary boundary", models.LoanApplication{Amount: 15001, Salary: 10001, ExistingEMI: 5000}, true},
		{"zero emi", models.LoanApplication{Amount: 10, Salary: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Approve(tt.app))
		})
	}
}

func TestApprove_TenureIsIgnored(t *testing.T) {
	base := models.LoanApplication{Amount: 60000, Salary: 50000, ExistingEMI: 1000}
	for _, tenure := range []int{1, 12, 24, 60, 360} {
		app := base
		app.TenureMonths = tenure
		assert.True(t, Approve(app), "tenure %d", tenure)
	}
}

func TestPolicy_EvaluateReasons(t *testing.T) {
	p := DefaultPolicy
	assert.Equal(t, "within policy", p.Evaluate(models.LoanApplication{Amount: 1, Salary: 10}).Reason)
	assert.Contains(t, p.Evaluate(models.LoanApplication{Amount: 100, Salary: 10}).Reason, "amount exceeds 1.5x")
	assert.Contains(t, p.Evaluate(models.LoanApplication{Amount: 1, Salary: 10, ExistingEMI: 6}).Reason, "existing EMI exceeds 0.5x")
	r := p.Evaluate(models.LoanApplication{Amount: 100, Salary: 10, ExistingEMI: 6}).Reason
	assert.Contains(t, r, "amount exceeds")
	assert.Contains(t, r, "EMI exceeds")
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		utterance string
		want      Request
	}{
		{"upload salary slip", Request{}},
		{"upload salary slip for 50k", Request{Amount: 50000}},
		{"Upload salary slip for 50K loan", Request{Amount: 50000}},
		{"upload slip, need 150000", Request{Amount: 150000}},
		{"upload slip for 1,50,000", Request{Amount: 150000}},
		{"upload slip 2 lakh for 36 months", Request{Amount: 200000, TenureMonths: 36}},
		{"upload slip for 12 months", Request{TenureMonths: 12}},
		{"upload 1m over 48 months", Request{Amount: 1000000, TenureMonths: 48}},
		{"upload slip for C001", Request{}},
		{"upload salary slip for 1.5 lakh", Request{Amount: 150000}},
		{"upload slip for 2.5k over 6 months", Request{Amount: 2500, TenureMonths: 6}},
		{"upload slip for 1,20,000.60", Request{Amount: 120001}},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got, err := ParseRequest(tt.utterance)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRequest_AmountOutOfRange(t *testing.T) {
	for _, utterance := range []string{
		"upload salary slip 18446744073710m",
		"upload slip for 9007199254741000",
		"upload slip for 1" + strings.Repeat("0", 400),
	} {
		_, err := ParseRequest(utterance)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, utterance)
	}
}

func TestConfig_BuildApplication(t *testing.T) {
	customer := &models.CustomerRecord{CustomerID: "C001", Salary: 80000, EMI: 2000}

	cfg := LoadConfig()
	app, err := cfg.BuildApplication(nil, "upload salary slip")
	require.NoError(t, err)
	assert.Equal(t, cfg.Fixture, app)

	app, err = cfg.BuildApplication(customer, "upload salary slip for 100k for 36 months")
	require.NoError(t, err)
	assert.Equal(t, models.LoanApplication{Amount: 100000, TenureMonths: 36, Salary: 80000, ExistingEMI: 2000}, app)

	cfg.UseCustomerProfile = false
	app, err = cfg.BuildApplication(customer, "upload salary slip")
	require.NoError(t, err)
	assert.Equal(t, cfg.Fixture, app)
}

func TestHandler_Decide_UnreadableAmount(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	customer := &models.CustomerRecord{Salary: 50000, EMI: 9500}

	decision, err := h.Decide(context.Background(), customer, "upload salary slip for 1.5 lakh")
	require.NoError(t, err)
	assert.Equal(t, int64(150000), decision.Application.Amount)

	_, err = h.Decide(context.Background(), customer, "upload salary slip 18446744073710m")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidApplication), "got %v", err)
}

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Utterance: "upload salary slip"})
	require.NoError(t, err)
	assert.False(t, out.Approved, "fixture values must be rejected")

	customer := &models.CustomerRecord{CustomerID: "C001", Salary: 200000, EMI: 5000}
	out, err = h.Execute(context.Background(), &Input{Utterance: "upload salary slip", Customer: customer})
	require.NoError(t, err)
	assert.True(t, out.Approved)
	assert.Equal(t, int64(200000), out.Application.Amount)
	assert.Equal(t, 24, out.Application.TenureMonths)

	explicit := &models.LoanApplication{Amount: 10, TenureMonths: 1, Salary: 10}
	out, err = h.Execute(context.Background(), &Input{Utterance: "ignored 999999", Application: explicit})
	require.NoError(t, err)
	assert.Equal(t, *explicit, out.Application)
}

func TestHandler_Execute_InvalidApplication(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewNoOpLogger())

	for _, app := range []models.LoanApplication{
		{Amount: 0, TenureMonths: 12, Salary: 10},
		{Amount: 1, TenureMonths: 0, Salary: 10},
		{Amount: 1, TenureMonths: 12, Salary: 0},
		{Amount: 1, TenureMonths: 12, Salary: 10, ExistingEMI: -1},
	} {
		app := app
		_, err := h.Execute(context.Background(), &Input{Application: &app})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidApplication), "%+v", app)
	}
}

func TestHandler_Decide(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	customer := &models.CustomerRecord{Salary: 100000, EMI: 0}

	d, err := h.Decide(context.Background(), customer, "upload salary slip for 150k")
	require.NoError(t, err)
	assert.True(t, d.Approved)

	d, err = h.Decide(context.Background(), customer, "upload salary slip for 150001")
	require.NoError(t, err)
	assert.False(t, d.Approved)
}
