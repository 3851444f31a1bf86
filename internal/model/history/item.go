package history

import (
	"time"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
)

// Scope names an independent history domain: the anonymous store or one
// authenticated identity's store.
type Scope string

// ScopeAnonymous holds conversations recorded before sign-in.
const ScopeAnonymous Scope = "guest"

// ScopeForSubject returns the history scope of an authenticated subject.
func ScopeForSubject(subjectID string) Scope {
	return Scope("user-" + subjectID)
}

// Item is a persisted, display-ready snapshot of a conversation. Within one
// scope, ID is unique and is the merge key across scopes.
type Item struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Messages  []conversation.Message `json:"messages"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	c := it
	c.Messages = make([]conversation.Message, len(it.Messages))
	for i, m := range it.Messages {
		c.Messages[i] = m.Clone()
	}
	return c
}
