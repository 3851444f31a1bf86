package refine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunarhue/promptii/backend/internal/identity"
	"github.com/lunarhue/promptii/backend/internal/model/conversation"
	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
	"github.com/lunarhue/promptii/backend/internal/service/ai"
	historyservice "github.com/lunarhue/promptii/backend/internal/service/history"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInputNotAccepted rejects input that the current state gates out:
	// free text outside AwaitingIdea, answers outside AwaitingAnswers, any
	// input while a completion call is in flight or once complete.
	ErrInputNotAccepted = errors.New("input not accepted in current state")
	ErrEmptyInput       = errors.New("input text is required")
	ErrUnknownField     = errors.New("no question with that field")
	ErrFieldAnswered    = errors.New("field already answered")
)

const (
	welcomeText          = "Welcome to promptii! Start by entering a simple idea or a prompt below."
	questionsFailedText  = "Sorry, I encountered an error fetching clarifying questions. Please try again."
	generationFailedText = "Sorry, I failed to generate the final prompt. Please try again."
)

// Service owns the live conversations and drives each one through the
// refinement state machine. One user event runs to completion, including its
// awaited model call, before the next is admitted for that conversation; the
// inFlight latch enforces the gating server-side.
type Service struct {
	mu      sync.Mutex
	adapter ai.Adapter
	history historyservice.Store
	convs   map[string]*live
}

type live struct {
	conv    conversation.Conversation
	answers conversation.AnswerSet
	// inFlight is true while a completion call for this conversation is
	// outstanding.
	inFlight bool
	// genSeq invalidates responses from superseded generations: a completion
	// result is applied only if the sequence still matches the one captured
	// when the call was issued.
	genSeq int
}

// NewService wires the state machine to its completion adapter and snapshot
// store.
func NewService(adapter ai.Adapter, history historyservice.Store) *Service {
	return &Service{
		adapter: adapter,
		history: history,
		convs:   make(map[string]*live),
	}
}

// NewConversation creates a fresh conversation seeded with the welcome
// message. It is not persisted until the first idea arrives.
func (s *Service) NewConversation(_ context.Context) conversation.Conversation {
	l := &live{
		conv: conversation.Conversation{
			ID:    uuid.NewString(),
			State: conversation.StateAwaitingIdea,
			Messages: []conversation.Message{{
				ID:     uuid.NewString(),
				Sender: conversation.SenderSystem,
				Kind:   conversation.KindPlain,
				Text:   welcomeText,
			}},
			UpdatedAt: time.Now().UTC(),
		},
		answers: make(conversation.AnswerSet),
	}

	s.mu.Lock()
	s.convs[l.conv.ID] = l
	s.mu.Unlock()

	return snapshot(l)
}

// Get returns a snapshot of a live conversation.
func (s *Service) Get(_ context.Context, id string) (conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.convs[id]
	if !ok {
		return conversation.Conversation{}, ErrConversationNotFound
	}
	return snapshot(l), nil
}

// LoadFromHistory seeds a live conversation from a stored item. The answer
// set resets and is rebuilt from answered question messages; presence of the
// terminal artifact makes the conversation Complete immediately.
func (s *Service) LoadFromHistory(ctx context.Context, scope historymodel.Scope, id string) (conversation.Conversation, error) {
	item, err := s.history.Get(ctx, scope, id)
	if err != nil {
		return conversation.Conversation{}, err
	}

	l := &live{
		conv: conversation.Conversation{
			ID:        item.ID,
			Title:     item.Title,
			Messages:  item.Messages,
			UpdatedAt: item.UpdatedAt,
		},
		answers: make(conversation.AnswerSet),
	}
	for _, m := range l.conv.Messages {
		if m.IsQuestion() && m.IsAnswered && m.Answer != "" {
			l.answers[m.Field] = m.Answer
		}
	}
	switch {
	case l.conv.HasArtifact():
		l.conv.State = conversation.StateComplete
		l.conv.ArtifactGenerated = true
	case l.conv.QuestionCount() > 0:
		l.conv.State = conversation.StateAwaitingAnswers
	default:
		l.conv.State = conversation.StateAwaitingIdea
	}

	s.mu.Lock()
	s.convs[l.conv.ID] = l
	s.mu.Unlock()

	return snapshot(l), nil
}

// SubmitIdea handles the first free-text submission. The tier, resolved by
// the caller at event time, selects the branch: free goes straight to final
// generation with an empty answer set, pro fetches clarifying questions.
func (s *Service) SubmitIdea(ctx context.Context, id, text string, tier identity.Tier, scope historymodel.Scope) (conversation.Conversation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return conversation.Conversation{}, ErrEmptyInput
	}

	s.mu.Lock()
	l, ok := s.convs[id]
	if !ok {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrConversationNotFound
	}
	if l.inFlight || l.conv.State != conversation.StateAwaitingIdea {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrInputNotAccepted
	}

	s.appendLocked(l, conversation.Message{
		ID:     uuid.NewString(),
		Sender: conversation.SenderUser,
		Kind:   conversation.KindPlain,
		Text:   text,
	})
	l.conv.Title = conversation.DeriveTitle(l.conv.FirstIdea())
	s.persistLocked(ctx, l, scope)

	if tier == identity.TierPro {
		return s.proposeQuestions(ctx, l, text, scope)
	}
	return s.generateArtifact(ctx, l, text, nil, scope, conversation.StateAwaitingIdea)
}

// proposeQuestions runs the pro branch: the adapter call happens outside the
// lock, and the result is applied only if the generation sequence is intact.
func (s *Service) proposeQuestions(ctx context.Context, l *live, idea string, scope historymodel.Scope) (conversation.Conversation, error) {
	l.inFlight = true
	l.genSeq++
	token := l.genSeq
	id := l.conv.ID
	s.mu.Unlock()

	questions, err := s.adapter.ProposeQuestions(ctx, idea)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.staleLocked(l, token); stale != nil {
		return *stale, nil
	}
	l.inFlight = false

	if err != nil {
		log.Printf("[refine] question proposal failed for conversation=%s: %v", id, err)
		s.appendLocked(l, systemMessage(questionsFailedText))
		l.conv.State = conversation.StateAwaitingIdea
		s.persistLocked(ctx, l, scope)
		return snapshot(l), nil
	}

	for _, q := range questions {
		s.appendLocked(l, conversation.Message{
			ID:      uuid.NewString(),
			Sender:  conversation.SenderAssistant,
			Kind:    conversation.KindQuestion,
			Text:    q.Question,
			Options: append([]string(nil), q.Options...),
			Field:   q.Field,
		})
	}
	l.conv.State = conversation.StateAwaitingAnswers
	s.persistLocked(ctx, l, scope)
	log.Printf("[refine] conversation=%s awaiting %d answers", id, len(questions))
	return snapshot(l), nil
}

// SubmitAnswer records one answer and runs the completeness check
// synchronously. The check fires the final generation exactly once: when all
// question fields are answered and the artifact has not been generated for
// this conversation yet.
func (s *Service) SubmitAnswer(ctx context.Context, id, field, value string, scope historymodel.Scope) (conversation.Conversation, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return conversation.Conversation{}, ErrEmptyInput
	}

	s.mu.Lock()
	l, ok := s.convs[id]
	if !ok {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrConversationNotFound
	}
	if l.inFlight || l.conv.State != conversation.StateAwaitingAnswers {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrInputNotAccepted
	}

	idx := -1
	for i, m := range l.conv.Messages {
		if m.IsQuestion() && m.Field == field {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrUnknownField
	}
	if l.conv.Messages[idx].IsAnswered {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrFieldAnswered
	}

	// The annotation is display-only; Answer carries the logical value.
	msg := &l.conv.Messages[idx]
	msg.IsAnswered = true
	msg.Answer = value
	msg.Text += "\n\nYour answer: " + value
	l.answers[field] = value
	l.conv.UpdatedAt = time.Now().UTC()
	s.persistLocked(ctx, l, scope)

	total := l.conv.QuestionCount()
	if total > 0 && len(l.answers) == total && !l.conv.ArtifactGenerated {
		return s.generateArtifact(ctx, l, l.conv.FirstIdea(), l.answers.Clone(), scope, conversation.StateAwaitingAnswers)
	}

	snap := snapshot(l)
	s.mu.Unlock()
	return snap, nil
}

// Retry re-runs the final generation after an adapter failure left the
// conversation in AwaitingAnswers with a full answer set. There is no
// automatic retry; this is the explicit affordance.
func (s *Service) Retry(ctx context.Context, id string, scope historymodel.Scope) (conversation.Conversation, error) {
	s.mu.Lock()
	l, ok := s.convs[id]
	if !ok {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrConversationNotFound
	}
	total := l.conv.QuestionCount()
	if l.inFlight || l.conv.State != conversation.StateAwaitingAnswers ||
		l.conv.ArtifactGenerated || total == 0 || len(l.answers) != total {
		s.mu.Unlock()
		return conversation.Conversation{}, ErrInputNotAccepted
	}
	return s.generateArtifact(ctx, l, l.conv.FirstIdea(), l.answers.Clone(), scope, conversation.StateAwaitingAnswers)
}

// generateArtifact issues the single expensive completion call. The
// ArtifactGenerated latch is set atomically with the transition into
// Generating; on failure it is released together with the rollback to
// failState so the user can resubmit or retry.
func (s *Service) generateArtifact(ctx context.Context, l *live, idea string, answers conversation.AnswerSet, scope historymodel.Scope, failState conversation.State) (conversation.Conversation, error) {
	l.inFlight = true
	l.conv.State = conversation.StateGenerating
	l.conv.ArtifactGenerated = true
	l.genSeq++
	token := l.genSeq
	id := l.conv.ID
	s.mu.Unlock()

	artifact, err := s.adapter.ComposeArtifact(ctx, idea, answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.staleLocked(l, token); stale != nil {
		return *stale, nil
	}
	l.inFlight = false

	if err != nil {
		log.Printf("[refine] artifact generation failed for conversation=%s: %v", id, err)
		s.appendLocked(l, systemMessage(generationFailedText))
		l.conv.State = failState
		l.conv.ArtifactGenerated = false
		s.persistLocked(ctx, l, scope)
		return snapshot(l), nil
	}

	s.appendLocked(l, conversation.Message{
		ID:     uuid.NewString(),
		Sender: conversation.SenderAssistant,
		Kind:   conversation.KindArtifact,
		Text:   artifact,
	})
	l.conv.State = conversation.StateComplete
	s.persistLocked(ctx, l, scope)
	log.Printf("[refine] conversation=%s complete", id)
	return snapshot(l), nil
}

// staleLocked returns the current snapshot when a completion response no
// longer targets the live object it was issued for, so a late response cannot
// mutate a conversation that moved on. The check is on object identity, not
// just the generation sequence: LoadFromHistory replaces the live object with
// a fresh one whose sequence restarts, and a sequence comparison alone would
// let a late response mutate and persist the orphaned pre-reload object.
func (s *Service) staleLocked(l *live, token int) *conversation.Conversation {
	current, ok := s.convs[l.conv.ID]
	if ok && current == l && l.genSeq == token {
		return nil
	}
	log.Printf("[refine] dropping stale completion result for conversation=%s", l.conv.ID)
	if !ok {
		empty := conversation.Conversation{}
		return &empty
	}
	snap := snapshot(current)
	return &snap
}

func (s *Service) appendLocked(l *live, m conversation.Message) {
	l.conv.Messages = append(l.conv.Messages, m)
	l.conv.UpdatedAt = time.Now().UTC()
}

// persistLocked hands a snapshot to the history store. Conversations holding
// only the welcome message are not persisted; persistence failures degrade to
// a log line and never fail the user event.
func (s *Service) persistLocked(ctx context.Context, l *live, scope historymodel.Scope) {
	if len(l.conv.Messages) <= 1 {
		return
	}
	item := historymodel.Item{
		ID:        l.conv.ID,
		Title:     l.conv.Title,
		Messages:  l.conv.CloneMessages(),
		UpdatedAt: l.conv.UpdatedAt,
	}
	if err := s.history.Upsert(ctx, scope, item); err != nil {
		log.Printf("[refine] failed to persist snapshot for conversation=%s: %v", l.conv.ID, err)
	}
}

func systemMessage(text string) conversation.Message {
	return conversation.Message{
		ID:     uuid.NewString(),
		Sender: conversation.SenderSystem,
		Kind:   conversation.KindPlain,
		Text:   text,
	}
}

func snapshot(l *live) conversation.Conversation {
	c := l.conv
	c.Messages = l.conv.CloneMessages()
	return c
}
