package chat

import (
	"sync"
	"time"

	"loan-assistant/internal/models"
)

// Transcript is the ordered message history of one session. It only grows.
type Transcript struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
	now      func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

func (t *Transcript) Append(sender models.Sender, text string) models.ChatMessage {
	msg := models.ChatMessage{Sender: sender, Text: text, At: t.now().UTC()}

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	return msg
}

// Messages returns a copy in insertion order.
func (t *Transcript) Messages() []models.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
