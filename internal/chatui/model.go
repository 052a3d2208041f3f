package chatui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

type replyMsg struct {
	resp domain.ChatResponse
	err  error
}

// Model is the Bubble Tea front end over a Session.
type Model struct {
	api     Asker
	timeout time.Duration
	session *Session

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	lastErr  string
}

func NewModel(api Asker, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about Acme Tech Solutions"
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		api:      api,
		timeout:  timeout,
		session:  NewSession(),
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

func (m Model) Session() *Session { return m.session }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(text string) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp, err := api.Chat(ctx, text)
		return replyMsg{resp: resp, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		h := msg.Height - fh - ih - 3
		if h < 3 {
			h = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = h
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			text, ok := m.session.Begin(m.input.Value())
			if !ok {
				return m, nil
			}
			m.input.Reset()
			m.input.Blur()
			m.lastErr = ""
			m.refresh()
			return m, tea.Batch(m.ask(text), m.spinner.Tick)
		}
	case replyMsg:
		m.session.Complete(msg.resp, msg.err)
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		m.session.Settle()
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink
	case spinner.TickMsg:
		if m.session.Phase() != PhaseSending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.session.Phase() == PhaseSending {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.session.Messages(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Acme Tech Assistant")
	status := statusStyle.Render("enter to send, esc to quit")
	if m.session.Phase() == PhaseSending {
		status = m.spinner.View() + " thinking..."
	} else if m.lastErr != "" {
		status = errorStyle.Render(m.lastErr)
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func renderTranscript(msgs []domain.ChatMessage, width int) string {
	if len(msgs) == 0 {
		return statusStyle.Render("Ask a question about the company to get started.")
	}
	wrap := lipgloss.NewStyle()
	if width > 4 {
		wrap = wrap.Width(width - 4)
	}
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: "))
		default:
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(wrap.Render(msg.Content))
		if len(msg.Sources) > 0 {
			b.WriteString("\n")
			b.WriteString(statusStyle.Render("Sources: " + strings.Join(msg.Sources, ", ")))
		}
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
