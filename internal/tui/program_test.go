package tui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLookuper struct {
	result *domain.ProfileResult
}

func (s stubLookuper) Lookup(ctx context.Context, _ string) (*domain.ProfileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.result, nil
}

type programRun struct {
	model tea.Model
	err   error
}

// startProgram runs a program wired like Run, headless, and reports every
// settled (non-Loading) state it publishes.
func startProgram(t *testing.T, lookuper stubLookuper) (*tea.Program, <-chan domain.DisplayState, <-chan programRun) {
	t.Helper()
	program, ctrl := newProgram(lookuper, zap.NewNop(), tea.WithInput(nil), tea.WithOutput(io.Discard))
	t.Cleanup(ctrl.Close)

	settled := make(chan domain.DisplayState, 4)
	ctrl.Subscribe(func(_ uint64, state domain.DisplayState) {
		if state.Kind() != domain.StateLoading {
			settled <- state
		}
	})

	done := make(chan programRun, 1)
	go func() {
		m, err := program.Run()
		done <- programRun{model: m, err: err}
	}()
	return program, settled, done
}

func awaitSettled(t *testing.T, settled <-chan domain.DisplayState) domain.DisplayState {
	t.Helper()
	select {
	case s := <-settled:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("event loop stalled: no settled state after Enter")
		return nil
	}
}

func awaitExit(t *testing.T, done <-chan programRun) Model {
	t.Helper()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		m, ok := r.model.(Model)
		require.True(t, ok)
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("program did not exit after Esc")
		return Model{}
	}
}

func TestProgramBlankEnterKeepsEventLoopRunning(t *testing.T) {
	program, settled, done := startProgram(t, stubLookuper{})

	program.Send(tea.KeyMsg{Type: tea.KeyEnter})
	state := awaitSettled(t, settled)
	assert.Equal(t, domain.ShowingError{Message: "Enter a username or user id."}, state)

	program.Send(tea.KeyMsg{Type: tea.KeyEsc})
	m := awaitExit(t, done)
	assert.Equal(t, state, m.state)
}

func TestProgramLookupReachesModel(t *testing.T) {
	result := &domain.ProfileResult{
		User:      &domain.User{ID: 42, Name: "alice", DisplayName: "Alice"},
		Friends:   &domain.Count{Count: 1},
		Followers: &domain.Count{Count: 2},
		Following: &domain.Count{Count: 3},
	}
	program, settled, done := startProgram(t, stubLookuper{result: result})

	for _, r := range "alice" {
		program.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	program.Send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, domain.StateResults, awaitSettled(t, settled).Kind())

	program.Send(tea.KeyMsg{Type: tea.KeyEsc})
	m := awaitExit(t, done)
	assert.Equal(t, domain.ShowingResults{Result: result}, m.state)
	assert.Contains(t, m.View(), "Alice")
}
