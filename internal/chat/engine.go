package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/common/observability"
	"loan-assistant/internal/common/validation"
	"loan-assistant/internal/models"
	classifyintent "loan-assistant/internal/workers/ai-conversation/classify-intent"
	lookupcustomer "loan-assistant/internal/workers/customer/lookup-customer"
	onboardcustomer "loan-assistant/internal/workers/customer/onboard-customer"
	evaluateeligibility "loan-assistant/internal/workers/loan/evaluate-eligibility"
	generatesanctionletter "loan-assistant/internal/workers/loan/generate-sanction-letter"
	publishsanctionevent "loan-assistant/internal/workers/loan/publish-sanction-event"
	recorddecision "loan-assistant/internal/workers/loan/record-decision"

	"github.com/google/uuid"
)

const (
	LoanInquiryReply = "Sure, I can help with that. Can I know your Customer ID to check pre-approved offers?"
	ApologyReply     = "Sorry, something went wrong while processing your request. Please try again."
	RateLimitedReply = "You've asked a lot of questions in a short time. Please wait a moment and try again."

	// IntentOnboarding labels turns that came through the form path.
	IntentOnboarding classifyintent.Intent = "onboarding"
)

// Replier answers free-form questions. Failures come back as tagged text.
type Replier interface {
	Reply(ctx context.Context, utterance, model string) string
}

type DecisionRecorder interface {
	Record(ctx context.Context, input *recorddecision.Input) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, input *publishsanctionevent.Input) (string, error)
}

type Options struct {
	Brand         string
	DefaultModel  string
	AllowedModels []string

	Lookup      *lookupcustomer.Handler
	Onboard     *onboardcustomer.Handler
	Eligibility *evaluateeligibility.Handler
	Letters     *generatesanctionletter.Handler
	LLM         Replier

	// Optional collaborators; nil disables them.
	Recorder DecisionRecorder
	Events   EventPublisher
	Limiter  Limiter
	Metrics  *observability.Observability
}

// Reply is the outcome of one turn.
type Reply struct {
	Text             string                       `json:"text"`
	Intent           classifyintent.Intent        `json:"intent"`
	Letter           *models.SanctionLetter       `json:"letter,omitempty"`
	NeedsOnboarding  bool                         `json:"needsOnboarding,omitempty"`
	ValidationErrors []validation.ValidationError `json:"validationErrors,omitempty"`
}

type Engine struct {
	opts   Options
	logger logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewEngine(opts Options, log logger.Logger) *Engine {
	if opts.DefaultModel == "" && len(opts.AllowedModels) > 0 {
		opts.DefaultModel = opts.AllowedModels[0]
	}
	return &Engine{
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "chat-engine"}),
		sessions: make(map[string]*Session),
	}
}

// Greeting is the first assistant message of every session.
func (e *Engine) Greeting() string {
	return fmt.Sprintf("Hello! I'm your %s personal loan assistant. Ask me about a loan, "+
		"or share your Customer ID to see your pre-approved offers.", e.opts.Brand)
}

// Models lists the selectable model identifiers.
func (e *Engine) Models() []string {
	out := make([]string, len(e.opts.AllowedModels))
	copy(out, e.opts.AllowedModels)
	return out
}

func (e *Engine) DefaultModel() string { return e.opts.DefaultModel }

func (e *Engine) NewSession() *Session {
	s := newSession(uuid.New().String(), e.opts.DefaultModel)
	s.transcript.Append(models.SenderAssistant, e.Greeting())

	e.mu.Lock()
	e.sessions[s.ID] = s
	e.mu.Unlock()

	metrics.ChatSessionsActive.Inc()
	e.logger.Info("session started", map[string]interface{}{"sessionId": s.ID})
	return s
}

func (e *Engine) Session(id string) (*Session, error) {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return s, nil
}

func (e *Engine) EndSession(id string) error {
	e.mu.Lock()
	_, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if !ok {
		return apperrors.NewSessionNotFoundError(id)
	}
	metrics.ChatSessionsActive.Dec()
	e.logger.Info("session ended", map[string]interface{}{"sessionId": id})
	return nil
}

func (e *Engine) SetModel(sessionID, model string) error {
	s, err := e.Session(sessionID)
	if err != nil {
		return err
	}
	for _, m := range e.opts.AllowedModels {
		if m == model {
			s.setModel(model)
			return nil
		}
	}
	return apperrors.NewModelNotAllowedError(model)
}

// HandleMessage runs one user turn. The only error is an unknown session;
// everything else is turned into reply text.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) (Reply, error) {
	s, err := e.Session(sessionID)
	if err != nil {
		return Reply{}, err
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	start := time.Now()
	s.transcript.Append(models.SenderUser, text)

	intent := classifyintent.Classify(text)
	reply := e.dispatch(ctx, s, intent, text)
	reply.Intent = intent

	e.finishTurn(ctx, s, reply, start)
	return reply, nil
}

// SubmitOnboarding handles the new-customer form for a session.
func (e *Engine) SubmitOnboarding(ctx context.Context, sessionID string, form map[string]interface{}) (Reply, error) {
	s, err := e.Session(sessionID)
	if err != nil {
		return Reply{}, err
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	start := time.Now()
	// The caller's map is left untouched.
	submitted := make(map[string]interface{}, len(form)+1)
	for k, v := range form {
		submitted[k] = v
	}
	form = submitted
	if _, ok := form["customerId"]; !ok && s.PendingCustomerID() != "" {
		form["customerId"] = s.PendingCustomerID()
	}
	s.transcript.Append(models.SenderUser, fmt.Sprintf("Submitted onboarding form for %v", form["customerId"]))

	reply := e.safely(s, func() Reply { return e.onboard(ctx, s, form) })
	reply.Intent = IntentOnboarding

	e.finishTurn(ctx, s, reply, start)
	return reply, nil
}

func (e *Engine) finishTurn(ctx context.Context, s *Session, reply Reply, start time.Time) {
	s.transcript.Append(models.SenderAssistant, reply.Text)
	metrics.ChatTurns.WithLabelValues(string(reply.Intent)).Inc()
	e.opts.Metrics.RecordTurn(ctx, string(reply.Intent), time.Since(start))
}

func (e *Engine) dispatch(ctx context.Context, s *Session, intent classifyintent.Intent, text string) Reply {
	return e.safely(s, func() Reply {
		switch intent {
		case classifyintent.IntentLoanInquiry:
			return Reply{Text: LoanInquiryReply}
		case classifyintent.IntentCustomerLookup:
			return e.lookup(ctx, s, text)
		case classifyintent.IntentDocumentUpload:
			return e.evaluate(ctx, s, text)
		default:
			return e.fallback(ctx, s, text)
		}
	})
}

// safely keeps a panicking collaborator from taking the session down.
func (e *Engine) safely(s *Session, fn func() Reply) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn panicked", map[string]interface{}{
				"sessionId": s.ID,
				"panic":     fmt.Sprint(r),
			})
			reply = Reply{Text: ApologyReply}
		}
	}()
	return fn()
}

func (e *Engine) lookup(ctx context.Context, s *Session, text string) Reply {
	out, err := e.opts.Lookup.Execute(ctx, &lookupcustomer.Input{CustomerID: text})
	if err != nil {
		e.logger.Error("customer lookup failed", map[string]interface{}{"sessionId": s.ID, "error": err})
		return Reply{Text: ApologyReply}
	}
	if out.Found {
		s.setCustomer(out.Customer)
		return Reply{Text: out.Reply}
	}
	s.setPending(text)
	return Reply{Text: out.Reply, NeedsOnboarding: true}
}

func (e *Engine) onboard(ctx context.Context, s *Session, form map[string]interface{}) Reply {
	out, err := e.opts.Onboard.Execute(ctx, &onboardcustomer.Input{Form: form})
	if err == nil {
		s.setCustomer(out.Customer)
		return Reply{Text: out.Reply}
	}

	if fieldErrs := onboardcustomer.ValidationErrors(err); fieldErrs != nil {
		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
		}
		return Reply{
			Text:             "Please correct the following and submit again: " + strings.Join(msgs, "; "),
			NeedsOnboarding:  true,
			ValidationErrors: fieldErrs,
		}
	}
	if apperrors.HasCode(err, apperrors.ErrCodeOnboardingValidationFailed) {
		return Reply{Text: "The onboarding form is incomplete. Please fill in every field and submit again.", NeedsOnboarding: true}
	}
	if apperrors.HasCode(err, apperrors.ErrCodeDuplicateCustomer) {
		return Reply{Text: fmt.Sprintf("Customer ID %v is already registered. Please enter it to see your offers.", form["customerId"])}
	}

	e.logger.Error("onboarding failed", map[string]interface{}{"sessionId": s.ID, "error": err})
	return Reply{Text: ApologyReply}
}

func (e *Engine) evaluate(ctx context.Context, s *Session, text string) Reply {
	customer := s.Customer()
	decision, err := e.opts.Eligibility.Decide(ctx, customer, text)
	if err != nil {
		e.logger.Error("eligibility evaluation failed", map[string]interface{}{"sessionId": s.ID, "error": err})
		return Reply{Text: ApologyReply}
	}

	customerID := ""
	applicant := "Customer"
	if customer != nil {
		customerID = customer.CustomerID
		applicant = customer.Name
	}
	app := decision.Application

	if !decision.Approved {
		e.record(ctx, s, customerID, decision, "")
		return Reply{Text: fmt.Sprintf("Salary slip uploaded successfully. Your application for ₹%d needs manual "+
			"review by our credit team, who will get back to you shortly.", app.Amount)}
	}

	letter, err := e.opts.Letters.Generate(ctx, applicant, app.Amount, app.TenureMonths)
	if err != nil {
		e.logger.Error("sanction letter failed", map[string]interface{}{"sessionId": s.ID, "error": err})
		e.record(ctx, s, customerID, decision, "")
		return Reply{Text: ApologyReply}
	}

	s.addLetter(letter)
	e.record(ctx, s, customerID, decision, letter.Path)
	e.publish(ctx, s, customerID, letter)

	return Reply{
		Text: fmt.Sprintf("Salary slip uploaded successfully. Loan approved! ₹%d for %d months at a monthly EMI of ₹%.2f. "+
			"Your sanction letter %s is ready to download.", app.Amount, app.TenureMonths, letter.MonthlyEMI, letter.FileName),
		Letter: &letter,
	}
}

func (e *Engine) record(ctx context.Context, s *Session, customerID string, decision models.EligibilityDecision, letterPath string) {
	if e.opts.Recorder == nil {
		return
	}
	if _, err := e.opts.Recorder.Record(ctx, &recorddecision.Input{
		SessionID:  s.ID,
		CustomerID: customerID,
		Decision:   decision,
		LetterPath: letterPath,
	}); err != nil {
		e.logger.Warn("decision audit failed", map[string]interface{}{"sessionId": s.ID, "error": err})
	}
}

func (e *Engine) publish(ctx context.Context, s *Session, customerID string, letter models.SanctionLetter) {
	if e.opts.Events == nil {
		return
	}
	if _, err := e.opts.Events.Publish(ctx, &publishsanctionevent.Input{
		SessionID:  s.ID,
		CustomerID: customerID,
		Letter:     letter,
	}); err != nil {
		e.logger.Warn("sanction event failed", map[string]interface{}{"sessionId": s.ID, "error": err})
	}
}

func (e *Engine) fallback(ctx context.Context, s *Session, text string) Reply {
	model := s.Model()
	if e.opts.Limiter != nil && !e.opts.Limiter.Allow(ctx, s.ID) {
		metrics.LLMRequests.WithLabelValues(model, "rate_limited").Inc()
		return Reply{Text: RateLimitedReply}
	}
	return Reply{Text: e.opts.LLM.Reply(ctx, text, model)}
}

// LetterPath returns the on-disk path of a letter issued in this session.
func (e *Engine) LetterPath(sessionID, fileName string) (string, error) {
	s, err := e.Session(sessionID)
	if err != nil {
		return "", err
	}
	path, ok := s.letter(fileName)
	if !ok {
		return "", apperrors.NewResourceNotFoundError("letters", fileName)
	}
	return path, nil
}
