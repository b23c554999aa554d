package evaluateeligibility

import (
	"time"

	"loan-assistant/internal/models"
)

// Policy holds the two salary ratios an application must satisfy.
type Policy struct {
	MaxAmountToSalary float64
	MaxEMIToSalary    float64
}

type Config struct {
	Policy Policy
	// Fixture is the application used when nothing better is known.
	Fixture models.LoanApplication
	// UseCustomerProfile replaces the fixture salary and EMI with the
	// active customer's stored values.
	UseCustomerProfile bool
	Timeout            time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Policy: Policy{
			MaxAmountToSalary: 1.5,
			MaxEMIToSalary:    0.5,
		},
		Fixture: models.LoanApplication{
			Amount:       200000,
			TenureMonths: 24,
			Salary:       50000,
			ExistingEMI:  9500,
		},
		UseCustomerProfile: true,
		Timeout:            5 * time.Second,
	}
}
