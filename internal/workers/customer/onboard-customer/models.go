package onboardcustomer

import (
	"loan-assistant/internal/common/validation"
	"loan-assistant/internal/models"
)

type Input struct {
	Form map[string]interface{} `json:"form"`
}

type Output struct {
	CustomerID       string                       `json:"customerId"`
	Customer         *models.CustomerRecord       `json:"customer,omitempty"`
	CreditScore      int                          `json:"creditScore"`
	PreApprovedLimit float64                      `json:"preApprovedLimit"`
	Reply            string                       `json:"reply"`
	ValidationErrors []validation.ValidationError `json:"validationErrors"`
}

var formSchema = map[string]interface{}{
	"type": "object",
	"required": []interface{}{
		"customerId", "name", "age", "city", "employment", "salary", "emi",
	},
	"properties": map[string]interface{}{
		"customerId": map[string]interface{}{"type": "string", "pattern": "^C"},
		"name":       map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 100, "pattern": `\S`},
		"age":        map[string]interface{}{"type": "integer", "minimum": 18, "maximum": 70},
		"city":       map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 100, "pattern": `\S`},
		"employment": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{models.EmploymentSalaried, models.EmploymentSelfEmployed},
		},
		"salary":      map[string]interface{}{"type": "integer", "minimum": 10000, "maximum": 500000},
		"emi":         map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 200000},
		"kycDocument": map[string]interface{}{"type": "string"},
		"salarySlip":  map[string]interface{}{"type": "string"},
	},
}
