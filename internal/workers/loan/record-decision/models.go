package recorddecision

import (
	"time"

	"loan-assistant/internal/models"
)

type Input struct {
	SessionID  string                     `json:"sessionId"`
	CustomerID string                     `json:"customerId"`
	Decision   models.EligibilityDecision `json:"decision"`
	LetterPath string                     `json:"letterPath,omitempty"`
}

type Output struct {
	DecisionID string    `json:"decisionId"`
	RecordedAt time.Time `json:"recordedAt"`
}
