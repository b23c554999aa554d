package chat

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"
	"loan-assistant/internal/store"
	classifyintent "loan-assistant/internal/workers/ai-conversation/classify-intent"
	lookupcustomer "loan-assistant/internal/workers/customer/lookup-customer"
	onboardcustomer "loan-assistant/internal/workers/customer/onboard-customer"
	evaluateeligibility "loan-assistant/internal/workers/loan/evaluate-eligibility"
	generatesanctionletter "loan-assistant/internal/workers/loan/generate-sanction-letter"
	publishsanctionevent "loan-assistant/internal/workers/loan/publish-sanction-event"
	recorddecision "loan-assistant/internal/workers/loan/record-decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersCSV = `CustomerID,Name,Age,City,Employment,Salary,EMI,CreditScore,PreApprovedLimit
C001,Asha,34,Pune,Salaried,60000,5000,750,90000
C002,Ravi,45,Delhi,Self-Employed,120000,30000,650,180000
`

var testModels = []string{"model/a", "model/b"}

type fakeLLM struct {
	mu     sync.Mutex
	calls  []string
	models []string
	reply  func(utterance string) string
}

func (f *fakeLLM) Reply(_ context.Context, utterance, model string) string {
	f.mu.Lock()
	f.calls = append(f.calls, utterance)
	f.models = append(f.models, model)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(utterance)
	}
	return "echo: " + utterance
}

type fakeRecorder struct {
	inputs []*recorddecision.Input
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, in *recorddecision.Input) (string, error) {
	f.inputs = append(f.inputs, in)
	return "dec-1", f.err
}

type fakePublisher struct {
	inputs []*publishsanctionevent.Input
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, in *publishsanctionevent.Input) (string, error) {
	f.inputs = append(f.inputs, in)
	return "msg-1", f.err
}

type testEnv struct {
	engine    *Engine
	store     *store.CustomerStore
	llm       *fakeLLM
	recorder  *fakeRecorder
	publisher *fakePublisher
	letterDir string
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(customersCSV), 0o644))

	log := logger.NewTestLogger(t)
	s, err := store.Open(path, log)
	require.NoError(t, err)

	letterCfg := generatesanctionletter.LoadConfig()
	letterCfg.OutputDir = filepath.Join(dir, "letters")

	env := &testEnv{
		store:     s,
		llm:       &fakeLLM{},
		recorder:  &fakeRecorder{},
		publisher: &fakePublisher{},
		letterDir: letterCfg.OutputDir,
	}

	opts := Options{
		Brand:         "Tata Capital",
		AllowedModels: testModels,
		Lookup:        lookupcustomer.NewHandler(lookupcustomer.LoadConfig(), s, log),
		Onboard:       onboardcustomer.NewHandlerWithRand(onboardcustomer.LoadConfig(), s, rand.New(rand.NewSource(1)), log),
		Eligibility:   evaluateeligibility.NewHandler(evaluateeligibility.LoadConfig(), log),
		Letters:       generatesanctionletter.NewHandler(letterCfg, log),
		LLM:           env.llm,
		Recorder:      env.recorder,
		Events:        env.publisher,
	}
	for _, m := range mutate {
		m(&opts)
	}

	env.engine = NewEngine(opts, log)
	return env
}

func say(t *testing.T, e *Engine, sessionID, text string) Reply {
	t.Helper()
	r, err := e.HandleMessage(context.Background(), sessionID, text)
	require.NoError(t, err)
	return r
}

func TestEngine_NewSessionGreets(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderAssistant, msgs[0].Sender)
	assert.Contains(t, msgs[0].Text, "Tata Capital")
	assert.Equal(t, "model/a", s.Model(), "first allowed model is the default")
	assert.Equal(t, testModels, env.engine.Models())
}

func TestEngine_LoanInquiryWinsOverCustomerPrefix(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	for _, text := range []string{"I want a loan", "C001 LOAN please", "upload my loan docs"} {
		r := say(t, env.engine, s.ID, text)
		assert.Equal(t, classifyintent.IntentLoanInquiry, r.Intent, text)
		assert.Equal(t, LoanInquiryReply, r.Text)
	}
	assert.Nil(t, s.Customer(), "a loan inquiry never looks anyone up")
	assert.Empty(t, env.llm.calls)
}

func TestEngine_LookupHit(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "C001")
	assert.Equal(t, classifyintent.IntentCustomerLookup, r.Intent)
	assert.Contains(t, r.Text, "Asha")
	assert.Contains(t, r.Text, "eligible for quick approval")
	require.NotNil(t, s.Customer())
	assert.Equal(t, "C001", s.Customer().CustomerID)

	r = say(t, env.engine, s.ID, "C002")
	assert.Contains(t, r.Text, "Ravi")
	assert.Contains(t, r.Text, "may be declined")
	assert.NotContains(t, r.Text, "eligible for quick approval")
}

func TestEngine_OnboardThenApprove(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "C777")
	assert.True(t, r.NeedsOnboarding)
	assert.Equal(t, "C777", s.PendingCustomerID())
	assert.False(t, env.store.Exists("C777"), "a miss alone never creates a record")

	form := map[string]interface{}{
		"name": "Nisha", "age": 29.0, "city": "Kochi", "employment": "Salaried",
		"salary": 60000.0, "emi": 4000.0, "kycDocument": "pan.pdf", "salarySlip": "march.pdf",
	}
	r, err := env.engine.SubmitOnboarding(context.Background(), s.ID, form)
	require.NoError(t, err)
	assert.NotContains(t, form, "customerId", "the submitted form is not modified")
	assert.Equal(t, IntentOnboarding, r.Intent)
	assert.Contains(t, r.Text, "Nisha")
	assert.Contains(t, r.Text, "₹90000")
	assert.True(t, env.store.Exists("C777"))
	assert.Empty(t, s.PendingCustomerID())
	require.NotNil(t, s.Customer())
	assert.Equal(t, "C777", s.Customer().CustomerID)

	r = say(t, env.engine, s.ID, "upload salary slip for 50k for 12 months")
	assert.Equal(t, classifyintent.IntentDocumentUpload, r.Intent)
	assert.Contains(t, r.Text, "Loan approved!")
	require.NotNil(t, r.Letter)
	assert.Equal(t, "sanction_letter_Nisha.pdf", r.Letter.FileName)
	assert.Contains(t, r.Text, r.Letter.FileName)
	assert.FileExists(t, r.Letter.Path)

	path, err := env.engine.LetterPath(s.ID, r.Letter.FileName)
	require.NoError(t, err)
	assert.Equal(t, r.Letter.Path, path)

	_, err = env.engine.LetterPath(s.ID, "sanction_letter_Someone.pdf")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))

	require.Len(t, env.recorder.inputs, 1)
	rec := env.recorder.inputs[0]
	assert.True(t, rec.Decision.Approved)
	assert.Equal(t, "C777", rec.CustomerID)
	assert.Equal(t, r.Letter.Path, rec.LetterPath)
	assert.Equal(t, models.LoanApplication{Amount: 50000, TenureMonths: 12, Salary: 60000, ExistingEMI: 4000}, rec.Decision.Application)

	require.Len(t, env.publisher.inputs, 1)
	assert.Equal(t, "C777", env.publisher.inputs[0].CustomerID)
}

func TestEngine_UploadWithoutCustomerUsesFixture(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "upload salary slip")
	assert.Contains(t, r.Text, "manual review")
	assert.Contains(t, r.Text, "₹200000")
	assert.Nil(t, r.Letter)

	require.Len(t, env.recorder.inputs, 1)
	assert.False(t, env.recorder.inputs[0].Decision.Approved)
	assert.Empty(t, env.publisher.inputs)

	entries, _ := os.ReadDir(env.letterDir)
	assert.Empty(t, entries)
}

func TestEngine_AuditAndEventFailuresAreSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.recorder.err = errors.New("db down")
	env.publisher.err = errors.New("sns down")
	s := env.engine.NewSession()

	say(t, env.engine, s.ID, "C001")
	r := say(t, env.engine, s.ID, "upload salary slip for 10k")
	assert.Contains(t, r.Text, "Loan approved!")
}

func TestEngine_OnboardingValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()
	say(t, env.engine, s.ID, "C888")

	r, err := env.engine.SubmitOnboarding(context.Background(), s.ID, map[string]interface{}{
		"name": "Old", "age": 80.0, "city": "Goa", "employment": "Retired", "salary": 60000.0, "emi": 0.0,
	})
	require.NoError(t, err)
	assert.True(t, r.NeedsOnboarding)
	require.NotEmpty(t, r.ValidationErrors)
	assert.Contains(t, r.Text, "age")
	assert.Contains(t, r.Text, "employment")
	assert.False(t, env.store.Exists("C888"))
	assert.Equal(t, "C888", s.PendingCustomerID())
}

func TestEngine_OnboardingDuplicate(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	r, err := env.engine.SubmitOnboarding(context.Background(), s.ID, map[string]interface{}{
		"customerId": "C001", "name": "Impostor", "age": 30.0, "city": "Goa", "employment": "Salaried",
		"salary": 60000.0, "emi": 0.0,
	})
	require.NoError(t, err)
	assert.Contains(t, r.Text, "already registered")
	assert.Equal(t, 2, env.store.Len())
}

func TestEngine_FallbackUsesSessionModel(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "what is an EMI?")
	assert.Equal(t, classifyintent.IntentFallback, r.Intent)
	assert.Equal(t, "echo: what is an EMI?", r.Text)

	require.NoError(t, env.engine.SetModel(s.ID, "model/b"))
	say(t, env.engine, s.ID, "and a tenure?")

	err := env.engine.SetModel(s.ID, "model/zzz")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeModelNotAllowed))
	assert.Equal(t, "model/b", s.Model())

	assert.Equal(t, []string{"model/a", "model/b"}, env.llm.models)
}

func TestEngine_FallbackErrorTextIsRelayed(t *testing.T) {
	env := newTestEnv(t)
	env.llm.reply = func(string) string { return "[LLM ERROR] unexpected status 502" }
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "hello")
	assert.True(t, strings.HasPrefix(r.Text, "[LLM ERROR]"))
	assert.Equal(t, 3, len(s.Messages()))
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

func TestEngine_FallbackRateLimited(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Limiter = denyAll{} })
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "hello")
	assert.Equal(t, RateLimitedReply, r.Text)
	assert.Empty(t, env.llm.calls)
}

func TestEngine_PanicBecomesApology(t *testing.T) {
	env := newTestEnv(t)
	env.llm.reply = func(string) string { panic("boom") }
	s := env.engine.NewSession()

	r := say(t, env.engine, s.ID, "hello")
	assert.Equal(t, ApologyReply, r.Text)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, ApologyReply, msgs[2].Text)
}

func TestEngine_LetterWriteFailureApologizes(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.letterDir, []byte("blocked"), 0o644))
	s := env.engine.NewSession()

	say(t, env.engine, s.ID, "C001")
	r := say(t, env.engine, s.ID, "upload salary slip for 10k")
	assert.Equal(t, ApologyReply, r.Text)
	assert.Nil(t, r.Letter)

	r = say(t, env.engine, s.ID, "I want a loan")
	assert.Equal(t, LoanInquiryReply, r.Text, "the conversation continues")
}

func TestEngine_AmountOutOfRangeIsNotSanctioned(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	say(t, env.engine, s.ID, "C001")
	r := say(t, env.engine, s.ID, "upload salary slip 18446744073710m")
	assert.Equal(t, ApologyReply, r.Text)
	assert.Nil(t, r.Letter)
	assert.Empty(t, env.recorder.inputs)

	entries, _ := os.ReadDir(env.letterDir)
	assert.Empty(t, entries)
}

func TestEngine_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.HandleMessage(context.Background(), "nope", "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSessionNotFound))

	_, err = env.engine.SubmitOnboarding(context.Background(), "nope", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSessionNotFound))

	assert.Error(t, env.engine.SetModel("nope", "model/a"))
	assert.Error(t, env.engine.EndSession("nope"))
}

func TestEngine_EndSession(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	require.NoError(t, env.engine.EndSession(s.ID))
	_, err := env.engine.Session(s.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSessionNotFound))
}

func TestEngine_TurnsAreSerializedPerSession(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.NewSession()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.engine.HandleMessage(context.Background(), s.ID, "tell me something")
		}()
	}
	wg.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 1+2*n)
	for i := 1; i < len(msgs); i += 2 {
		assert.Equal(t, models.SenderUser, msgs[i].Sender)
		assert.Equal(t, models.SenderAssistant, msgs[i+1].Sender)
	}
}
