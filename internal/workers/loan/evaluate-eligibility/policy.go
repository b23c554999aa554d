package evaluateeligibility

import (
	"fmt"

	"loan-assistant/internal/models"
)

// DefaultPolicy approves when the amount is at most 1.5x monthly salary and
// existing EMI is at most half of it.
var DefaultPolicy = Policy{MaxAmountToSalary: 1.5, MaxEMIToSalary: 0.5}

// Approve applies DefaultPolicy. Tenure plays no part.
func Approve(app models.LoanApplication) bool {
	return DefaultPolicy.Evaluate(app).Approved
}

func (p Policy) Evaluate(app models.LoanApplication) models.EligibilityDecision {
	salary := float64(app.Salary)
	amountOK := float64(app.Amount) <= p.MaxAmountToSalary*salary
	emiOK := float64(app.ExistingEMI) <= p.MaxEMIToSalary*salary

	var reason string
	switch {
	case amountOK && emiOK:
		reason = "within policy"
	case !amountOK && !emiOK:
		reason = fmt.Sprintf("amount exceeds %gx salary and existing EMI exceeds %gx salary",
			p.MaxAmountToSalary, p.MaxEMIToSalary)
	case !amountOK:
		reason = fmt.Sprintf("amount exceeds %gx salary", p.MaxAmountToSalary)
	default:
		reason = fmt.Sprintf("existing EMI exceeds %gx salary", p.MaxEMIToSalary)
	}

	return models.EligibilityDecision{
		Approved:    amountOK && emiOK,
		Reason:      reason,
		Application: app,
	}
}
