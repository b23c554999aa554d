package classifyintent

import "strings"

// Intent is the branch a single utterance is routed to.
type Intent string

const (
	IntentLoanInquiry    Intent = "loan_inquiry"
	IntentCustomerLookup Intent = "customer_lookup"
	IntentDocumentUpload Intent = "document_upload"
	IntentFallback       Intent = "fallback"
)

// Rule pairs an intent with the predicate that selects it.
type Rule struct {
	Intent      Intent
	Description string
	Match       func(utterance string) bool
}

// rules is evaluated top to bottom and the first match wins. An utterance
// containing "loan" that also starts with "C" is a loan inquiry.
var rules = []Rule{
	{
		Intent:      IntentLoanInquiry,
		Description: `contains "loan" (case-insensitive)`,
		Match: func(u string) bool {
			return strings.Contains(strings.ToLower(u), "loan")
		},
	},
	{
		Intent:      IntentCustomerLookup,
		Description: `starts with "C" (case-sensitive, no trimming)`,
		Match: func(u string) bool {
			return strings.HasPrefix(u, "C")
		},
	},
	{
		Intent:      IntentDocumentUpload,
		Description: `contains "upload" or "salary slip" (case-insensitive)`,
		Match: func(u string) bool {
			l := strings.ToLower(u)
			return strings.Contains(l, "upload") || strings.Contains(l, "salary slip")
		},
	},
	{
		Intent:      IntentFallback,
		Description: "anything else",
		Match:       func(string) bool { return true },
	},
}

// Rules returns a copy of the decision table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify routes one utterance. It depends on nothing but the text.
func Classify(utterance string) Intent {
	intent, _ := classify(utterance)
	return intent
}

func classify(utterance string) (Intent, int) {
	for i, r := range rules {
		if r.Match(utterance) {
			return r.Intent, i
		}
	}
	return IntentFallback, len(rules) - 1
}
