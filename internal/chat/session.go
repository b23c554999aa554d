package chat

import (
	"sync"
	"time"

	"loan-assistant/internal/models"
)

// Session is one conversation. turn serializes HandleMessage and
// SubmitOnboarding; mu guards the small bits of state read from outside a turn.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn       sync.Mutex
	transcript *Transcript

	mu                sync.RWMutex
	model             string
	customer          *models.CustomerRecord
	pendingCustomerID string
	letters           map[string]string
}

func newSession(id, model string) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		transcript: NewTranscript(),
		model:      model,
		letters:    make(map[string]string),
	}
}

func (s *Session) Messages() []models.ChatMessage {
	return s.transcript.Messages()
}

func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *Session) setModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

// Customer returns a copy of the active customer, or nil.
func (s *Session) Customer() *models.CustomerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.customer == nil {
		return nil
	}
	c := *s.customer
	return &c
}

func (s *Session) setCustomer(c *models.CustomerRecord) {
	s.mu.Lock()
	s.customer = c
	s.pendingCustomerID = ""
	s.mu.Unlock()
}

// PendingCustomerID is the unknown ID awaiting an onboarding form.
func (s *Session) PendingCustomerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingCustomerID
}

func (s *Session) setPending(id string) {
	s.mu.Lock()
	s.pendingCustomerID = id
	s.mu.Unlock()
}

func (s *Session) addLetter(l models.SanctionLetter) {
	s.mu.Lock()
	s.letters[l.FileName] = l.Path
	s.mu.Unlock()
}

func (s *Session) letter(fileName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.letters[fileName]
	return path, ok
}
