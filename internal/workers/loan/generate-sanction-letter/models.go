package generatesanctionletter

import "loan-assistant/internal/models"

type Input struct {
	ApplicantName string `json:"applicantName"`
	Amount        int64  `json:"amount"`
	TenureMonths  int    `json:"tenureMonths"`
}

type Output struct {
	Letter models.SanctionLetter `json:"letter"`
}
