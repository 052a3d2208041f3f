package chatui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

func typeText(m tea.Model, text string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestModelExchange(t *testing.T) {
	api := &scriptedAPI{replies: []domain.ChatResponse{{Response: "Founded in 2010.", Sources: []string{"company_history.txt"}}}}
	var m tea.Model = NewModel(api, 0)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = typeText(m, "When was Acme founded?")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("enter should start a request")
	}
	session := m.(Model).Session()
	if session.Phase() != PhaseSending {
		t.Fatalf("phase after enter: %v", session.Phase())
	}

	// A second enter while sending is ignored.
	m = typeText(m, "again")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(session.Messages()) != 1 {
		t.Fatalf("submit while sending must be rejected")
	}

	m, _ = m.Update(replyMsg{resp: api.replies[0]})
	if session.Phase() != PhaseIdle || len(session.Messages()) != 2 {
		t.Fatalf("phase=%v messages=%d", session.Phase(), len(session.Messages()))
	}
	if view := m.View(); !strings.Contains(view, "company_history.txt") {
		t.Fatalf("view should list sources:\n%s", view)
	}
}

func TestModelErrorReply(t *testing.T) {
	var m tea.Model = NewModel(&scriptedAPI{}, 0)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = typeText(m, "hello")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(replyMsg{err: errors.New("chat api 500")})

	msgs := m.(Model).Session().Messages()
	if len(msgs) != 2 || msgs[1].Content != ErrorReply {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
}
