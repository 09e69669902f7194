package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Orange brand colour.
const orange = lipgloss.Color("208")

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(orange)
	accentStyle    = lipgloss.NewStyle().Foreground(orange)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(orange)
	systemText     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(orange).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	loginBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(orange).Padding(1, 3)
)

// timeLayout renders message timestamps.
const timeLayout = "15:04"

// View renders the current screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.screen == screenLogin {
		return m.loginView()
	}
	return m.chatView()
}

func (m Model) loginView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Orange Customer Service Assistant"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("Sign in with your phone number and password."))
	sb.WriteString("\n\n")
	sb.WriteString(m.phone.View())
	sb.WriteString("\n")
	sb.WriteString(m.password.View())
	if m.loginErr != "" {
		sb.WriteString("\n\n")
		sb.WriteString(errorStyle.Render(m.loginErr))
	}
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("tab: switch field • enter: sign in • ctrl+c: quit"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, loginBoxStyle.Render(sb.String()))
}

func (m Model) chatView() string {
	header := titleStyle.Render("Orange Assistant")
	if m.profile != nil {
		header += dimStyle.Render(fmt.Sprintf("  signed in as %s (%s)", displayName(*m.profile), m.profile.MaskedPhone()))
	}

	status := dimStyle.Render(helpText)
	if m.busy {
		status = m.spinner.View() + accentStyle.Render(" Orange Assistant is typing...")
	}

	return header + "\n" +
		chatBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

// resize fits the viewport and input to the window.
func (m *Model) resize() {
	cw, ch := chatBoxStyle.GetFrameSize()
	_, ih := inputBoxStyle.GetFrameSize()
	// header, input line, status line
	reserved := 1 + (1 + ih) + 1
	m.viewport.Width = max(20, m.width-cw)
	m.viewport.Height = max(3, m.height-reserved-ch)
	m.input.Width = max(10, m.width-cw-4)
	m.refresh()
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

// transcript renders every entry in chronological order.
func (m Model) transcript() string {
	if len(m.entries) == 0 {
		return dimStyle.Render("No messages yet.")
	}
	width := max(20, m.viewport.Width)
	body := lipgloss.NewStyle().Width(width)

	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		stamp := dimStyle.Render("(" + e.at.Format(timeLayout) + ")")
		switch e.author {
		case authorUser:
			parts = append(parts, userLabel.Render("You")+" "+stamp+"\n"+body.Render(e.text))
		case authorAssistant:
			parts = append(parts, assistantLabel.Render("Orange Assistant")+" "+stamp+"\n"+body.Render(e.text))
		default:
			parts = append(parts, systemText.Width(width).Render(e.text))
		}
	}
	return strings.Join(parts, "\n\n")
}
