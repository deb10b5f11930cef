// Package tui is the terminal lookup surface. It owns no lookup logic: Enter
// is forwarded to a controller and the controller's transitions arrive back
// as StateMsg.
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kapu/roblox-profile-go/internal/controller"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/render"
	"github.com/kapu/roblox-profile-go/internal/util"
	"go.uber.org/zap"
)

const descriptionWidth = 72

// StateMsg delivers a controller transition to the program.
type StateMsg struct {
	Seq   uint64
	State domain.DisplayState
}

// Trigger is the part of the controller the model drives.
type Trigger interface {
	KeyDown(key string) uint64
}

// QueryBuffer mirrors the text input for the controller, which reads it from
// whichever goroutine triggers a lookup.
type QueryBuffer struct {
	mu    sync.Mutex
	value string
}

func (b *QueryBuffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

func (b *QueryBuffer) Set(v string) {
	b.mu.Lock()
	b.value = v
	b.mu.Unlock()
}

type Model struct {
	input   textinput.Model
	spinner spinner.Model
	trigger Trigger
	query   *QueryBuffer
	state   domain.DisplayState
	seq     uint64
	width   int
}

func New(trigger Trigger, query *QueryBuffer) Model {
	ti := textinput.New()
	ti.Placeholder = "username or user id"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = mutedStyle

	return Model{
		input:   ti,
		spinner: s,
		trigger: trigger,
		query:   query,
		state:   domain.Idle{},
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, keyDown(m.trigger, controller.KeyEnter)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.query.Set(m.input.Value())
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StateMsg:
		m.state = msg.State
		m.seq = msg.Seq
		if msg.State.Kind() == domain.StateLoading {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if m.state.Kind() != domain.StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// keyDown runs the trigger off the event loop. The controller's listeners
// send back into the program, which would block if the loop itself were
// the caller.
func keyDown(trigger Trigger, key string) tea.Cmd {
	return func() tea.Msg {
		trigger.KeyDown(key)
		return nil
	}
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Roblox Profile Lookup"))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch s := m.state.(type) {
	case domain.Loading:
		sb.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), mutedStyle.Render(render.Text(s))))
	case domain.ShowingError:
		sb.WriteString(errorStyle.Render(s.Message))
	case domain.ShowingResults:
		if err := s.Result.Validate(); err == nil {
			sb.WriteString(profileView(render.NewProfileView(s.Result)))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("enter: look up • esc: quit"))
	return sb.String()
}

func profileView(v render.ProfileView) string {
	var card strings.Builder
	card.WriteString(headerStyle.Render(v.DisplayName))
	card.WriteString(mutedStyle.Render(fmt.Sprintf("  @%s  User ID: %d", v.Name, v.ID)))
	card.WriteString("\n")
	card.WriteString(util.TruncateString(v.Description, descriptionWidth))
	card.WriteString("\n\n")
	card.WriteString(fmt.Sprintf("Friends %d | Followers %d | Following %d", v.Friends, v.Followers, v.Following))

	var lists strings.Builder
	lists.WriteString(headerStyle.Render(fmt.Sprintf("Groups (%d)", v.GroupCount)))
	for _, g := range v.Groups {
		lists.WriteString(fmt.Sprintf("\n  %s %s", g.Group.Name, mutedStyle.Render(g.Role.Name)))
	}
	lists.WriteString("\n\n")
	lists.WriteString(headerStyle.Render(fmt.Sprintf("Badges (%d)", v.BadgeCount)))
	for _, b := range v.Badges {
		lists.WriteString(fmt.Sprintf("\n  %s %s", b.Name, mutedStyle.Render(b.Created)))
	}

	return cardStyle.Render(card.String()) + "\n" + lists.String()
}

func newProgram(lookuper controller.Lookuper, logger *zap.Logger, opts ...tea.ProgramOption) (*tea.Program, *controller.Controller) {
	query := &QueryBuffer{}
	ctrl := controller.New(lookuper, query, logger)

	program := tea.NewProgram(New(ctrl, query), opts...)
	ctrl.Subscribe(func(seq uint64, state domain.DisplayState) {
		program.Send(StateMsg{Seq: seq, State: state})
	})
	return program, ctrl
}

// Run starts the terminal surface against lookuper and blocks until the user
// quits.
func Run(lookuper controller.Lookuper, logger *zap.Logger) error {
	program, ctrl := newProgram(lookuper, logger)
	defer ctrl.Close()

	_, err := program.Run()
	return err
}
