package chatui

import (
	"context"
	"strings"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseSending:
		return "sending"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

const ErrorReply = "Sorry, I encountered an error. Please try again."

// Asker sends one question to the chat API.
type Asker interface {
	Chat(ctx context.Context, message string) (domain.ChatResponse, error)
}

// Session is the UI-independent conversation state: an ordered transcript and
// the idle -> sending -> success|error -> idle cycle.
type Session struct {
	phase    Phase
	messages []domain.ChatMessage
}

func NewSession() *Session { return &Session{} }

func (s *Session) Phase() Phase { return s.phase }

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Begin records the user's message and enters the sending phase. It reports
// false, changing nothing, when a request is already in flight or the input
// is blank.
func (s *Session) Begin(input string) (string, bool) {
	if s.phase != PhaseIdle {
		return "", false
	}
	text := strings.TrimSpace(input)
	if text == "" {
		return "", false
	}
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	s.phase = PhaseSending
	return text, true
}

// Complete appends the assistant's reply, or the generic error reply when err
// is set. It is a no-op outside the sending phase.
func (s *Session) Complete(resp domain.ChatResponse, err error) {
	if s.phase != PhaseSending {
		return
	}
	if err != nil {
		s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: ErrorReply})
		s.phase = PhaseError
		return
	}
	s.messages = append(s.messages, domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: resp.Response,
		Sources: resp.Sources,
	})
	s.phase = PhaseSuccess
}

// Settle returns to idle after success or error.
func (s *Session) Settle() {
	if s.phase == PhaseSuccess || s.phase == PhaseError {
		s.phase = PhaseIdle
	}
}

// Send runs one full exchange synchronously and returns the phase it settled
// from. Ignored inputs return PhaseIdle.
func (s *Session) Send(ctx context.Context, api Asker, input string) Phase {
	text, ok := s.Begin(input)
	if !ok {
		return PhaseIdle
	}
	resp, err := api.Chat(ctx, text)
	s.Complete(resp, err)
	outcome := s.phase
	s.Settle()
	return outcome
}
