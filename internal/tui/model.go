// Package tui is the terminal chat client: a login form followed by a chat
// view with timestamped messages, popular-question shortcuts and a spinner
// while the assistant is answering. It talks to the assistant in-process.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/54b3r/orangebot-go/internal/assistant"
	"github.com/54b3r/orangebot-go/internal/customer"
)

// Conversation is the assistant as seen by the chat view.
// *assistant.Conversation satisfies it.
type Conversation interface {
	Ask(ctx context.Context, session, question string, profile *customer.Profile) assistant.Reply
	Clear(ctx context.Context, session string) error
}

// Authenticator checks login credentials. *customer.Directory satisfies it.
type Authenticator interface {
	Authenticate(phone, password string) (customer.Profile, error)
}

type screen int

const (
	screenLogin screen = iota
	screenChat
)

type author int

const (
	authorUser author = iota
	authorAssistant
	authorSystem
)

// entry is one message in the chat view.
type entry struct {
	author author
	text   string
	at     time.Time
}

// replyMsg carries a finished assistant turn.
type replyMsg struct {
	reply assistant.Reply
}

// clearedMsg reports the result of clearing the session history.
type clearedMsg struct {
	err    error
	logout bool
}

// Model is the Bubble Tea model of the chat client.
type Model struct {
	ctx  context.Context
	conv Conversation
	auth Authenticator
	log  *slog.Logger
	now  func() time.Time

	screen screen

	phone    textinput.Model
	password textinput.Model
	focus    int
	loginErr string

	profile *customer.Profile
	session string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	entries  []entry
	busy     bool

	ready  bool
	width  int
	height int
}

// New builds the client on the login screen.
func New(ctx context.Context, conv Conversation, auth Authenticator, log *slog.Logger) Model {
	phone := textinput.New()
	phone.Prompt = "Phone    "
	phone.Placeholder = "01xxxxxxxxx"
	phone.CharLimit = 20
	phone.Focus()

	password := textinput.New()
	password.Prompt = "Password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 64

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask me anything about Orange services... (/help for commands)"
	input.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return Model{
		ctx:      ctx,
		conv:     conv,
		auth:     auth,
		log:      log,
		now:      time.Now,
		phone:    phone,
		password: password,
		input:    input,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and assistant events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateChat(msg)

	case replyMsg:
		m.busy = false
		m.add(authorAssistant, msg.reply.Text)
		m.log.Info("chat turn",
			slog.String("intent", string(msg.reply.Intent)),
			slog.Bool("direct", msg.reply.Direct),
			slog.Int("documents", len(msg.reply.Documents)),
			slog.Bool("failed", msg.reply.Failed),
		)
		return m, nil

	case clearedMsg:
		if msg.err != nil {
			m.log.Warn("tui: clearing history failed", slog.Any("error", msg.err))
		}
		if msg.logout {
			return m.logout(), textinput.Blink
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return m.setFocus(1 - m.focus), nil

	case tea.KeyEnter:
		if m.focus == 0 {
			return m.setFocus(1), nil
		}
		p, err := m.auth.Authenticate(strings.TrimSpace(m.phone.Value()), m.password.Value())
		m.password.Reset()
		if err != nil {
			m.log.Warn("tui: login rejected")
			m.loginErr = "Invalid phone number or password."
			return m, nil
		}
		m.log.Info("tui: login", slog.String("customer", p.MaskedPhone()))
		m.profile = &p
		m.session = "tui-" + uuid.NewString()
		m.loginErr = ""
		m.screen = screenChat
		m.password.Blur()
		m.phone.Blur()
		m.add(authorSystem, fmt.Sprintf("Welcome, %s! Type a question, or /shortcuts for popular questions.", displayName(p)))
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.phone, cmd = m.phone.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) setFocus(i int) Model {
	m.focus = i
	if i == 0 {
		m.phone.Focus()
		m.password.Blur()
	} else {
		m.phone.Blur()
		m.password.Focus()
	}
	return m
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.busy {
			return m, nil
		}
		m.input.Reset()
		if strings.HasPrefix(text, "/") {
			return m.command(text)
		}
		return m.ask(text)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// command runs a slash command.
func (m Model) command(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "/shortcuts":
		var sb strings.Builder
		sb.WriteString("Popular questions (send /ask N):")
		for i, q := range assistant.PopularQuestions {
			fmt.Fprintf(&sb, "\n  %d. %s", i+1, q)
		}
		m.add(authorSystem, sb.String())
		return m, nil

	case "/ask":
		n := 0
		if len(fields) == 2 {
			n, _ = strconv.Atoi(fields[1])
		}
		if n < 1 || n > len(assistant.PopularQuestions) {
			m.add(authorSystem, fmt.Sprintf("Usage: /ask N with N between 1 and %d. See /shortcuts.", len(assistant.PopularQuestions)))
			return m, nil
		}
		return m.ask(assistant.PopularQuestions[n-1])

	case "/clear":
		m.entries = nil
		m.refresh()
		return m, m.clearHistory(false)

	case "/logout":
		return m, m.clearHistory(true)

	case "/quit", "/exit":
		return m, tea.Quit

	case "/help":
		m.add(authorSystem, helpText)
		return m, nil
	}
	m.add(authorSystem, fmt.Sprintf("Unknown command %s. %s", fields[0], helpText))
	return m, nil
}

const helpText = "Commands: /shortcuts, /ask N, /clear, /logout, /quit."

// ask records the question and starts the assistant turn.
func (m Model) ask(question string) (tea.Model, tea.Cmd) {
	m.add(authorUser, question)
	m.busy = true

	ctx, conv, session, profile := m.ctx, m.conv, m.session, m.profile
	answer := func() tea.Msg {
		return replyMsg{reply: conv.Ask(ctx, session, question, profile)}
	}
	return m, tea.Batch(m.spinner.Tick, answer)
}

func (m Model) clearHistory(logout bool) tea.Cmd {
	ctx, conv, session := m.ctx, m.conv, m.session
	return func() tea.Msg {
		return clearedMsg{err: conv.Clear(ctx, session), logout: logout}
	}
}

// logout returns the model to an empty login screen.
func (m Model) logout() Model {
	m.log.Info("tui: logout")
	m.screen = screenLogin
	m.profile = nil
	m.session = ""
	m.entries = nil
	m.busy = false
	m.input.Reset()
	m.input.Blur()
	m.phone.Reset()
	m.password.Reset()
	m.refresh()
	return m.setFocus(0)
}

// add appends an entry and scrolls to it.
func (m *Model) add(a author, text string) {
	m.entries = append(m.entries, entry{author: a, text: text, at: m.now()})
	m.refresh()
}

func displayName(p customer.Profile) string {
	if strings.TrimSpace(p.Name) == "" {
		return "Customer"
	}
	return p.Name
}
