package chatui

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

type scriptedAPI struct {
	replies []domain.ChatResponse
	errs    []error
	asked   []string
}

func (s *scriptedAPI) Chat(_ context.Context, message string) (domain.ChatResponse, error) {
	i := len(s.asked)
	s.asked = append(s.asked, message)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return domain.ChatResponse{}, err
	}
	return s.replies[i], nil
}

func TestTwoSubmissionsProduceFourMessagesInOrder(t *testing.T) {
	api := &scriptedAPI{replies: []domain.ChatResponse{
		{Response: "Founded in 2010.", Sources: []string{"company_history.txt"}},
		{Response: "9 to 5.", Sources: []string{"faq.md"}},
	}}
	s := NewSession()

	if got := s.Send(context.Background(), api, "When was Acme founded?"); got != PhaseSuccess {
		t.Fatalf("first outcome: %v", got)
	}
	if got := s.Send(context.Background(), api, "  Support hours?  "); got != PhaseSuccess {
		t.Fatalf("second outcome: %v", got)
	}

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("messages: want=4 got=%d", len(msgs))
	}
	want := []struct {
		role    domain.Role
		content string
	}{
		{domain.RoleUser, "When was Acme founded?"},
		{domain.RoleAssistant, "Founded in 2010."},
		{domain.RoleUser, "Support hours?"},
		{domain.RoleAssistant, "9 to 5."},
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Content != w.content {
			t.Fatalf("message %d: got=%+v want=%+v", i, msgs[i], w)
		}
	}
	if msgs[3].Sources[0] != "faq.md" {
		t.Fatalf("sources lost: %+v", msgs[3])
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("should settle to idle, got %v", s.Phase())
	}
}

func TestSubmitWhileSendingIsRejected(t *testing.T) {
	s := NewSession()
	if _, ok := s.Begin("first"); !ok {
		t.Fatalf("first Begin should succeed")
	}
	if s.Phase() != PhaseSending {
		t.Fatalf("phase: %v", s.Phase())
	}
	if _, ok := s.Begin("second"); ok {
		t.Fatalf("Begin while sending must be rejected")
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("rejected input must not be recorded")
	}
}

func TestBlankInputIgnored(t *testing.T) {
	s := NewSession()
	api := &scriptedAPI{}
	for _, in := range []string{"", "   ", "\n\t"} {
		if got := s.Send(context.Background(), api, in); got != PhaseIdle {
			t.Fatalf("blank %q: outcome %v", in, got)
		}
	}
	if len(api.asked) != 0 || len(s.Messages()) != 0 {
		t.Fatalf("blank input must not send or record")
	}
}

func TestFailureAppendsGenericReplyAndReturnsToIdle(t *testing.T) {
	api := &scriptedAPI{errs: []error{errors.New("HTTP 500")}}
	s := NewSession()
	if got := s.Send(context.Background(), api, "hello"); got != PhaseError {
		t.Fatalf("outcome: %v", got)
	}
	msgs := s.Messages()
	if len(msgs) != 2 || msgs[1].Content != ErrorReply || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase: %v", s.Phase())
	}
}

func TestCompleteOutsideSendingIsNoop(t *testing.T) {
	s := NewSession()
	s.Complete(domain.ChatResponse{Response: "stray"}, nil)
	if len(s.Messages()) != 0 || s.Phase() != PhaseIdle {
		t.Fatalf("stray completion changed state")
	}
}
