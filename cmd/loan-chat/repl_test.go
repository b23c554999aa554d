package main

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loan-assistant/internal/chat"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/store"
	lookupcustomer "loan-assistant/internal/workers/customer/lookup-customer"
	onboardcustomer "loan-assistant/internal/workers/customer/onboard-customer"
	evaluateeligibility "loan-assistant/internal/workers/loan/evaluate-eligibility"
	generatesanctionletter "loan-assistant/internal/workers/loan/generate-sanction-letter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoLLM struct{}

func (echoLLM) Reply(_ context.Context, utterance, model string) string {
	return "[" + model + "] " + utterance
}

func newEngine(t *testing.T) (*chat.Engine, *store.CustomerStore) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"CustomerID,Name,Age,City,Employment,Salary,EMI,CreditScore,PreApprovedLimit\n"+
			"C001,Asha,34,Pune,Salaried,60000,5000,750,90000\n"), 0o644))

	log := logger.NewTestLogger(t)
	s, err := store.Open(path, log)
	require.NoError(t, err)

	letterCfg := generatesanctionletter.LoadConfig()
	letterCfg.OutputDir = filepath.Join(dir, "letters")

	return chat.NewEngine(chat.Options{
		Brand:         "Tata Capital",
		AllowedModels: []string{"model/a", "model/b"},
		Lookup:        lookupcustomer.NewHandler(lookupcustomer.LoadConfig(), s, log),
		Onboard:       onboardcustomer.NewHandlerWithRand(onboardcustomer.LoadConfig(), s, rand.New(rand.NewSource(5)), log),
		Eligibility:   evaluateeligibility.NewHandler(evaluateeligibility.LoadConfig(), log),
		Letters:       generatesanctionletter.NewHandler(letterCfg, log),
		LLM:           echoLLM{},
	}, log), s
}

func TestREPL_Conversation(t *testing.T) {
	engine, _ := newEngine(t)
	in := strings.NewReader(strings.Join([]string{
		"I need a loan",
		"C001",
		"/model model/b",
		"what documents do you need?",
		"/model nope",
		"/history",
		"/quit",
		"never read",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), engine, in, &out))

	got := out.String()
	assert.Contains(t, got, "assistant> Hello! I'm your Tata Capital")
	assert.Contains(t, got, "assistant> "+chat.LoanInquiryReply)
	assert.Contains(t, got, "Customer Asha found from Pune")
	assert.Contains(t, got, "model set to model/b")
	assert.Contains(t, got, "[model/b] what documents do you need?")
	assert.Contains(t, got, `cannot use "nope"`)
	assert.Contains(t, got, "user: C001")
	assert.Contains(t, got, "Goodbye!")
	assert.NotContains(t, got, "never read")
}

func TestREPL_OnboardingForm(t *testing.T) {
	engine, s := newEngine(t)
	in := strings.NewReader(strings.Join([]string{
		"C900",
		"/onboard",
		"Meera Iyer",
		"29",
		"Chennai",
		"Salaried",
		"80,000",
		"0",
		"aadhaar.pdf",
		"slip-june.pdf",
		"/quit",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), engine, in, &out))

	got := out.String()
	assert.Contains(t, got, "(type /onboard to fill in the form)")
	assert.Contains(t, got, "KYC document file (optional): ")
	assert.Contains(t, got, "Salary slip file (optional): ")
	assert.Contains(t, got, "Welcome Meera Iyer!")
	assert.True(t, s.Exists("C900"))
}

func TestREPL_OnboardingDocumentsAreOptional(t *testing.T) {
	engine, s := newEngine(t)
	in := strings.NewReader(strings.Join([]string{
		"/onboard", "C902", "Ravi", "35", "Nagpur", "Salaried", "60000", "5000", "", "",
		"/quit",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), engine, in, &out))

	assert.Contains(t, out.String(), "Welcome Ravi!")
	assert.True(t, s.Exists("C902"))
}

func TestREPL_UtteranceIsSentAsTyped(t *testing.T) {
	engine, _ := newEngine(t)
	in := strings.NewReader(strings.Join([]string{" C001", "  /quit  "}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), engine, in, &out))

	got := out.String()
	assert.Contains(t, got, "assistant> [model/a]  C001")
	assert.NotContains(t, got, "Customer Asha found")
	assert.Contains(t, got, "Goodbye!")
}

func TestREPL_OnboardingAsksForIDWithoutLookup(t *testing.T) {
	engine, s := newEngine(t)
	in := strings.NewReader(strings.Join([]string{
		"/onboard", "C901", "Dev", "17", "Agra", "Salaried", "30000", "0", "", "",
		"/quit",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), engine, in, &out))

	assert.Contains(t, out.String(), "Customer ID: ")
	assert.Contains(t, out.String(), "Please correct the following")
	assert.False(t, s.Exists("C901"))
}

func TestREPL_EndOfInput(t *testing.T) {
	engine, _ := newEngine(t)
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), engine, strings.NewReader("C001"), &out))
	assert.Contains(t, out.String(), "Customer Asha found from Pune")
}
