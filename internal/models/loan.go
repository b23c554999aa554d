package models

import "time"

// LoanApplication is the explicit input to the eligibility rule.
type LoanApplication struct {
	Amount       int64 `json:"amount"`
	TenureMonths int   `json:"tenureMonths"`
	Salary       int64 `json:"salary"`
	ExistingEMI  int64 `json:"existingEmi"`
}

// EligibilityDecision is the outcome of evaluating a LoanApplication.
type EligibilityDecision struct {
	Approved    bool            `json:"approved"`
	Reason      string          `json:"reason"`
	Application LoanApplication `json:"application"`
}

// SanctionLetter describes a rendered letter on disk.
type SanctionLetter struct {
	ApplicantName string    `json:"applicantName"`
	Amount        int64     `json:"amount"`
	TenureMonths  int       `json:"tenureMonths"`
	MonthlyEMI    float64   `json:"monthlyEmi"`
	Path          string    `json:"path"`
	FileName      string    `json:"fileName"`
	CreatedAt     time.Time `json:"createdAt"`
}
