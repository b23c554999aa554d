package evaluateeligibility

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"loan-assistant/internal/models"
)

var (
	tenureRegex = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,3})\s*(?:months?|mos?)\b`)
	amountRegex = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d[\d,]*(?:\.\d+)?)\s*(k|m|lakhs?|lacs?)?\b`)
)

// maxAmount is the largest amount a float64 holds exactly.
const maxAmount = 1 << 53

// ErrAmountOutOfRange is returned when the stated amount is too large to
// represent.
var ErrAmountOutOfRange = errors.New("loan amount out of range")

// Request is what the user asked for in free text. Zero fields were not
// mentioned.
type Request struct {
	Amount       int64
	TenureMonths int
}

// ParseRequest pulls a loan amount ("50k", "1.5 lakh", "150000") and a tenure
// ("for 36 months") out of an utterance. Fractional rupees are rounded.
func ParseRequest(utterance string) (Request, error) {
	var req Request
	text := strings.ToLower(utterance)

	if m := tenureRegex.FindStringSubmatchIndex(text); m != nil {
		if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil && n > 0 {
			req.TenureMonths = n
		}
		text = text[:m[0]] + " " + text[m[1]:]
	}

	for _, m := range amountRegex.FindAllStringSubmatch(text, -1) {
		num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			continue
		}
		switch {
		case m[2] == "k":
			num *= 1000
		case m[2] == "m":
			num *= 1000000
		case strings.HasPrefix(m[2], "la"):
			num *= 100000
		}
		num = math.Round(num)
		if num == 0 {
			continue
		}
		if num > maxAmount {
			return Request{}, ErrAmountOutOfRange
		}
		req.Amount = int64(num)
		break
	}
	return req, nil
}

// BuildApplication starts from the fixture, swaps in the customer's salary
// and EMI when allowed, then applies whatever the user asked for.
func (c *Config) BuildApplication(customer *models.CustomerRecord, utterance string) (models.LoanApplication, error) {
	app := c.Fixture
	if c.UseCustomerProfile && customer != nil {
		app.Salary = customer.Salary
		app.ExistingEMI = customer.EMI
	}

	req, err := ParseRequest(utterance)
	if err != nil {
		return models.LoanApplication{}, err
	}
	if req.Amount > 0 {
		app.Amount = req.Amount
	}
	if req.TenureMonths > 0 {
		app.TenureMonths = req.TenureMonths
	}
	return app, nil
}
