package models

// Employment values accepted by onboarding.
const (
	EmploymentSalaried     = "Salaried"
	EmploymentSelfEmployed = "Self-Employed"
)

// CustomerRecord is one row of the customer CSV file. The csv tag order is
// the file's column order.
type CustomerRecord struct {
	CustomerID       string  `csv:"CustomerID" json:"customerId"`
	Name             string  `csv:"Name" json:"name"`
	Age              int     `csv:"Age" json:"age"`
	City             string  `csv:"City" json:"city"`
	Employment       string  `csv:"Employment" json:"employment"`
	Salary           int64   `csv:"Salary" json:"salary"`
	EMI              int64   `csv:"EMI" json:"emi"`
	CreditScore      int     `csv:"CreditScore" json:"creditScore"`
	PreApprovedLimit float64 `csv:"PreApprovedLimit" json:"preApprovedLimit"`
}

// CustomerHeader is the header row written for an empty store.
var CustomerHeader = []string{
	"CustomerID", "Name", "Age", "City", "Employment",
	"Salary", "EMI", "CreditScore", "PreApprovedLimit",
}

// OnboardingForm is the decoded new-customer form. Document fields hold the
// uploaded file names; the files themselves are never stored.
type OnboardingForm struct {
	CustomerID  string `json:"customerId"`
	Name        string `json:"name"`
	Age         int    `json:"age"`
	City        string `json:"city"`
	Employment  string `json:"employment"`
	Salary      int64  `json:"salary"`
	EMI         int64  `json:"emi"`
	KYCDocument string `json:"kycDocument,omitempty"`
	SalarySlip  string `json:"salarySlip,omitempty"`
}
