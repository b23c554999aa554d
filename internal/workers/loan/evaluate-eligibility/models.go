package evaluateeligibility

import "loan-assistant/internal/models"

type Input struct {
	Utterance string                 `json:"utterance"`
	Customer  *models.CustomerRecord `json:"customer,omitempty"`
	// Application, when present, is evaluated as-is.
	Application *models.LoanApplication `json:"application,omitempty"`
}

type Output struct {
	Approved    bool                   `json:"approved"`
	Reason      string                 `json:"reason"`
	Application models.LoanApplication `json:"application"`
}
