package publishsanctionevent

import (
	"time"

	"loan-assistant/internal/models"
)

const EventType = "loan.sanctioned"

type Input struct {
	SessionID  string                `json:"sessionId"`
	CustomerID string                `json:"customerId"`
	Letter     models.SanctionLetter `json:"letter"`
}

type Output struct {
	MessageID string `json:"messageId"`
}

// SanctionEvent is the JSON body published to the topic.
type SanctionEvent struct {
	EventType    string    `json:"eventType"`
	Source       string    `json:"source"`
	SessionID    string    `json:"sessionId"`
	CustomerID   string    `json:"customerId,omitempty"`
	Applicant    string    `json:"applicant"`
	Amount       int64     `json:"amount"`
	TenureMonths int       `json:"tenureMonths"`
	MonthlyEMI   float64   `json:"monthlyEmi"`
	LetterFile   string    `json:"letterFile"`
	OccurredAt   time.Time `json:"occurredAt"`
}
