package conversation

import (
	"strings"
	"time"
)

// State enumerates the lifecycle of a live conversation.
type State string

const (
	// StateAwaitingIdea accepts a free-text idea submission.
	StateAwaitingIdea State = "awaiting_idea"
	// StateAwaitingAnswers accepts answers to open clarifying questions.
	StateAwaitingAnswers State = "awaiting_answers"
	// StateGenerating has a completion call in flight; all input is rejected.
	StateGenerating State = "generating"
	// StateComplete holds a finished artifact; only a new conversation follows.
	StateComplete State = "complete"
)

// ArtifactMarker is the heading the completion backend guarantees in every
// finished artifact. Conversations stored before messages carried an explicit
// kind tag are recognized by this marker.
const ArtifactMarker = "Prompt Engineering Structure"

// titleLimit is the number of leading idea characters used as the title.
const titleLimit = 30

// Conversation is the unit of work owned by the refinement service.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	State    State     `json:"state"`
	Messages []Message `json:"messages"`
	// ArtifactGenerated latches once the final generation call has been
	// issued for this conversation, guarding the completeness check against
	// firing twice.
	ArtifactGenerated bool      `json:"artifactGenerated"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AnswerSet maps a question field to the chosen value. It lives only for the
// duration of one refinement cycle.
type AnswerSet map[string]string

// Clone returns an independent copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	if a == nil {
		return nil
	}
	c := make(AnswerSet, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// DeriveTitle truncates an idea to the first 30 characters, ellipsized when
// longer.
func DeriveTitle(idea string) string {
	runes := []rune(idea)
	if len(runes) <= titleLimit {
		return idea
	}
	return string(runes[:titleLimit]) + "..."
}

// FirstIdea returns the text of the first user message, or "" when the
// conversation has no idea yet.
func (c *Conversation) FirstIdea() string {
	for _, m := range c.Messages {
		if m.Sender == SenderUser {
			return m.Text
		}
	}
	return ""
}

// QuestionCount counts messages bearing a question field. System messages
// never carry a field so they are excluded by construction.
func (c *Conversation) QuestionCount() int {
	n := 0
	for _, m := range c.Messages {
		if m.Field != "" {
			n++
		}
	}
	return n
}

// HasArtifact reports whether the terminal artifact is already present,
// checking the kind tag first and falling back to the legacy text marker for
// conversations persisted by older clients.
func (c *Conversation) HasArtifact() bool {
	for _, m := range c.Messages {
		if m.Kind == KindArtifact {
			return true
		}
		if m.Sender == SenderAssistant && strings.Contains(m.Text, ArtifactMarker) {
			return true
		}
	}
	return false
}

// CloneMessages returns a deep copy of the message sequence, suitable for
// handing to a history store without sharing mutable structure.
func (c *Conversation) CloneMessages() []Message {
	out := make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out[i] = m.Clone()
	}
	return out
}
