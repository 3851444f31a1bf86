package conversation

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Kind classifies a message's role in the refinement flow. Question and
// artifact messages drive the state machine; plain messages are display only.
type Kind string

const (
	KindPlain    Kind = "plain"
	KindQuestion Kind = "question"
	KindArtifact Kind = "artifact"
)

// Message is a single turn in a conversation.
//
// Field, Options, IsAnswered and Answer are populated only on question
// messages. Answer keeps the logical value separate from the rendered
// annotation appended to Text, so reloading a stored conversation can rebuild
// the answer set without parsing display text.
type Message struct {
	ID         string   `json:"id"`
	Sender     Sender   `json:"sender"`
	Kind       Kind     `json:"kind"`
	Text       string   `json:"text"`
	Options    []string `json:"options,omitempty"`
	Field      string   `json:"field,omitempty"`
	IsAnswered bool     `json:"isAnswered,omitempty"`
	Answer     string   `json:"answer,omitempty"`
}

// IsQuestion reports whether the message is a well-formed clarifying question.
func (m Message) IsQuestion() bool {
	return m.Kind == KindQuestion && m.Field != ""
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := m
	if m.Options != nil {
		c.Options = append([]string(nil), m.Options...)
	}
	return c
}
