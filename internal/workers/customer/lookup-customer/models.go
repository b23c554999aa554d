package lookupcustomer

import "loan-assistant/internal/models"

type Input struct {
	CustomerID string `json:"customerId"`
}

type Output struct {
	Found    bool                   `json:"found"`
	Customer *models.CustomerRecord `json:"customer,omitempty"`
	Eligible bool                   `json:"eligible"`
	// NeedsOnboarding is set on a miss; the caller should collect the form.
	NeedsOnboarding bool   `json:"needsOnboarding"`
	Reply           string `json:"reply"`
}
