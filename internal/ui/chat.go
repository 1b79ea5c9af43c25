package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AnYiFan117/chat-room/internal/session"
)

const waitHintAfter = 30 * time.Second

type refreshMsg struct{}
type waitHintMsg struct{}

// ChatModel is the bubbletea model for one room.
type ChatModel struct {
	manager *session.Manager
	roomID  string
	user    session.User
	changes <-chan struct{}

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width     int
	height    int
	ready     bool
	startedAt time.Time
	showHint  bool
}

// NewChat builds the chat model. changes must be fed by the session
// manager's change callback.
func NewChat(manager *session.Manager, roomID string, user session.User, changes <-chan struct{}) ChatModel {
	input := textinput.New()
	input.Placeholder = "Say something..."
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Primary)

	return ChatModel{
		manager:   manager,
		roomID:    roomID,
		user:      user,
		changes:   changes,
		input:     input,
		spinner:   sp,
		startedAt: time.Now(),
	}
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForChange(),
		m.spinner.Tick,
		textinput.Blink,
		tea.Tick(waitHintAfter, func(time.Time) tea.Msg { return waitHintMsg{} }),
	)
}

func (m ChatModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return refreshMsg{}
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatHeight := msg.Height - 6
		if chatHeight < 3 {
			chatHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, chatHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = chatHeight
		}
		m.input.Width = msg.Width - 6
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			content := strings.TrimSpace(m.input.Value())
			if content != "" {
				m.manager.SendMessage(m.roomID, session.Outgoing{
					SenderID:    m.user.ID,
					DisplayName: m.user.DisplayName,
					Content:     content,
				})
			}
			m.input.Reset()
		}

	case refreshMsg:
		m.refresh()
		cmds = append(cmds, m.waitForChange())

	case waitHintMsg:
		m.showHint = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refresh re-renders the viewport from the manager's materialized views.
func (m *ChatModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *ChatModel) renderMessages() string {
	messages := m.manager.Messages(m.roomID)
	if len(messages) == 0 {
		return MutedStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Kind {
		case session.KindSystem:
			b.WriteString(SystemStyle.Render("— " + msg.Content + " —"))
		default:
			stamp := time.UnixMilli(msg.Timestamp).Format("15:04")
			sender := SenderStyle
			if msg.SenderID == m.user.ID {
				sender = SelfSenderStyle
			}
			line := fmt.Sprintf("%s %s %s",
				TimestampStyle.Render(stamp),
				sender.Render(msg.SenderName+":"),
				msg.Content,
			)
			if !msg.WasEncrypted {
				line += " " + MutedStyle.Render("(plaintext)")
			}
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m ChatModel) statusLine() string {
	participants := m.manager.Participants(m.roomID)

	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName)
	}

	if len(participants) <= 1 {
		line := fmt.Sprintf("%s waiting for peers...", m.spinner.View())
		if m.showHint {
			line += MutedStyle.Render("  (no peers yet — check the room id and your network)")
		}
		return line
	}
	return MutedStyle.Render(fmt.Sprintf("%d online: %s", len(participants), strings.Join(names, ", ")))
}

func (m ChatModel) View() string {
	if !m.ready {
		return fmt.Sprintf("\n %s connecting to %s...", m.spinner.View(), m.roomID)
	}

	header := StatusBarStyle.Render("room "+m.roomID) + " " + m.statusLine()
	return fmt.Sprintf("%s\n%s\n%s",
		header,
		m.viewport.View(),
		InputStyle.Width(m.width-2).Render(m.input.View()),
	)
}
