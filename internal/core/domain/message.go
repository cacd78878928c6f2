package domain

import (
	"strings"
	"time"
)

// MessageRetention is how long a persisted message lives before the store
// expires it.
const MessageRetention = 6 * time.Hour

// Message is a point-to-point chat message. Immutable once persisted.
type Message struct {
	ID        string    `json:"id,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationKey identifies the unordered pair of participants, so that
// A->B and B->A map to the same key.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Validate checks the fields a relayed message must carry.
func (m Message) Validate() error {
	if strings.TrimSpace(m.From) == "" || strings.TrimSpace(m.To) == "" {
		return ErrValidation
	}
	if strings.TrimSpace(m.Text) == "" {
		return ErrValidation
	}
	return nil
}
