// Package chat is the terminal UI for persona chat sessions.
package chat

import (
	"context"
	"strings"

	internalchat "synthfeed/internal/chat"
	"synthfeed/internal/logging"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	headerHeight = 2
	inputHeight  = 3
)

// Sender is the chat session the UI drives.
type Sender interface {
	Send(ctx context.Context, input string) (string, error)
	History() []string
	PersonaName() string
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleHistory
	roleError
)

type entry struct {
	role role
	text string
}

// replyMsg carries the result of a Send.
type replyMsg struct {
	text string
	err  error
}

// Model is the bubbletea model for a chat session.
type Model struct {
	ctx     context.Context
	session Sender
	names   []string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   Styles

	entries []entry
	loading bool
	ready   bool
	width   int
}

// New creates the chat UI. names lists the roster for the greeting.
func New(ctx context.Context, session Sender, names []string) Model {
	ti := textinput.New()
	ti.Placeholder = `Say something ("history" to review, "exit" to leave)`
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:      ctx,
		session:  session,
		names:    names,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		styles:   DefaultStyles(),
	}
	if len(names) > 0 {
		m.entries = append(m.entries, entry{role: roleHistory, text: "Available chatters: " + strings.Join(names, ", ")})
	}
	m.entries = append(m.entries, entry{role: roleHistory, text: "Chatting with " + session.PersonaName()})
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - headerHeight - inputHeight
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 6
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(msg.Width-4, 20)),
		)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case replyMsg:
		m.loading = false
		if msg.err != nil {
			m.entries = append(m.entries, entry{role: roleError, text: msg.err.Error()})
		} else {
			m.entries = append(m.entries, entry{role: roleAssistant, text: msg.text})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	if !m.loading {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	switch internalchat.ParseCommand(text) {
	case internalchat.CommandExit:
		return m, tea.Quit
	case internalchat.CommandHistory:
		m.entries = append(m.entries, entry{role: roleHistory, text: strings.Join(m.session.History(), "\n")})
		m.refresh()
		return m, nil
	}

	m.entries = append(m.entries, entry{role: roleUser, text: text})
	m.loading = true
	m.refresh()
	return m, tea.Batch(m.send(text), m.spinner.Tick)
}

func (m Model) send(text string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		reply, err := session.Send(ctx, text)
		if err != nil {
			logging.Get(logging.CategoryChat).Warn("Chat send failed: %v", err)
		}
		return replyMsg{text: reply, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch e.role {
		case roleUser:
			sb.WriteString(m.styles.User.Render("You: "))
			sb.WriteString(e.text)
			sb.WriteString("\n")
		case roleAssistant:
			sb.WriteString(m.styles.Assistant.Render(m.session.PersonaName() + ":"))
			sb.WriteString("\n")
			sb.WriteString(m.renderMarkdown(e.text))
		case roleHistory:
			sb.WriteString(m.styles.Muted.Render(e.text))
			sb.WriteString("\n")
		case roleError:
			sb.WriteString(m.styles.Error.Render("Error: " + e.text))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Header.Width(m.width).Render("synthfeed chat · " + m.session.PersonaName())

	var footer string
	if m.loading {
		footer = m.styles.Input.Render(m.spinner.View() + " " + m.session.PersonaName() + " is typing...")
	} else {
		footer = m.styles.Input.Render(m.input.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}
