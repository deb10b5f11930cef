package controller

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type outcome struct {
	result *domain.ProfileResult
	err    error
}

// gatedLookuper blocks each query until its outcome is released or its
// context ends.
type gatedLookuper struct {
	mu       sync.Mutex
	calls    []string
	gates    map[string]chan outcome
	canceled map[string]bool
}

func newGatedLookuper() *gatedLookuper {
	return &gatedLookuper{
		gates:    make(map[string]chan outcome),
		canceled: make(map[string]bool),
	}
}

func (g *gatedLookuper) gate(query string) chan outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[query]
	if !ok {
		ch = make(chan outcome, 1)
		g.gates[query] = ch
	}
	return ch
}

func (g *gatedLookuper) release(query string, o outcome) {
	g.gate(query) <- o
}

func (g *gatedLookuper) Lookup(ctx context.Context, query string) (*domain.ProfileResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, query)
	g.mu.Unlock()

	select {
	case o := <-g.gate(query):
		if ctx.Err() != nil {
			g.mu.Lock()
			g.canceled[query] = true
			g.mu.Unlock()
		}
		return o.result, o.err
	case <-ctx.Done():
		g.mu.Lock()
		g.canceled[query] = true
		g.mu.Unlock()
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, stderrors.New("gate never released")
	}
}

func (g *gatedLookuper) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recorder collects every transition a listener sees.
type recorder struct {
	mu     sync.Mutex
	states []domain.DisplayState
	seqs   []uint64
	ch     chan domain.DisplayState
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan domain.DisplayState, 16)}
}

func (r *recorder) listen(seq uint64, state domain.DisplayState) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.seqs = append(r.seqs, seq)
	r.mu.Unlock()
	r.ch <- state
}

func (r *recorder) next(t *testing.T) domain.DisplayState {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state transition")
		return nil
	}
}

func (r *recorder) kinds() []domain.StateKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.StateKind, 0, len(r.states))
	for _, s := range r.states {
		kinds = append(kinds, s.Kind())
	}
	return kinds
}

func profile(name string) *domain.ProfileResult {
	return &domain.ProfileResult{
		User:      &domain.User{ID: 1, Name: name, DisplayName: name},
		Friends:   &domain.Count{Count: 3},
		Followers: &domain.Count{Count: 5},
		Following: &domain.Count{Count: 2},
	}
}

type fieldValue struct {
	mu    sync.Mutex
	value string
}

func (f *fieldValue) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *fieldValue) set(v string) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

func newController(t *testing.T, lookuper Lookuper, field QueryField) (*Controller, *recorder) {
	t.Helper()
	c := New(lookuper, field, zap.NewNop())
	rec := newRecorder()
	c.Subscribe(rec.listen)
	t.Cleanup(c.Close)
	return c, rec
}

func TestInitialStateIsIdle(t *testing.T) {
	c := New(newGatedLookuper(), QueryFieldFunc(func() string { return "" }), nil)
	defer c.Close()
	assert.Equal(t, domain.StateIdle, c.State().Kind())
}

func TestBlankQueryShowsValidationErrorWithoutLoading(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		lookuper := newGatedLookuper()
		c, rec := newController(t, lookuper, QueryFieldFunc(func() string { return query }))

		seq := c.TriggerLookup()
		require.NotZero(t, seq)

		state := rec.next(t)
		require.Equal(t, domain.ShowingError{Message: "Enter a username or user id."}, state)
		assert.Equal(t, []domain.StateKind{domain.StateError}, rec.kinds())
		assert.Zero(t, lookuper.callCount())
	}
}

func TestSuccessfulLookupTransitions(t *testing.T) {
	lookuper := newGatedLookuper()
	c, rec := newController(t, lookuper, QueryFieldFunc(func() string { return "  alice " }))

	c.TriggerLookup()
	assert.Equal(t, domain.Loading{Query: "alice"}, rec.next(t))

	want := profile("alice")
	lookuper.release("alice", outcome{result: want})

	state := rec.next(t)
	require.Equal(t, domain.StateResults, state.Kind())
	assert.Same(t, want, state.(domain.ShowingResults).Result)
	assert.Equal(t, []domain.StateKind{domain.StateLoading, domain.StateResults}, rec.kinds())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"detail", errors.NewApplicationError(404, "user not found", nil), "user not found"},
		{"no detail", errors.NewApplicationError(502, "", nil), "Request failed."},
		{"transport", errors.NewTransportError("http://x/api/user", context.DeadlineExceeded), "Network error. Try again."},
		{"unknown", stderrors.New("boom"), "Network error. Try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookuper := newGatedLookuper()
			c, rec := newController(t, lookuper, QueryFieldFunc(func() string { return "alice" }))

			c.TriggerLookup()
			rec.next(t)
			lookuper.release("alice", outcome{err: tt.err})

			assert.Equal(t, domain.ShowingError{Message: tt.want}, rec.next(t))
			assert.Equal(t, domain.StateError, c.State().Kind())
		})
	}
}

func TestStaleSettlementIsDiscarded(t *testing.T) {
	lookuper := newGatedLookuper()
	field := &fieldValue{value: "slow"}
	c, rec := newController(t, lookuper, field)

	slowSeq := c.TriggerLookup()
	rec.next(t)

	field.set("fast")
	fastSeq := c.TriggerLookup()
	rec.next(t)
	require.Greater(t, fastSeq, slowSeq)

	lookuper.release("fast", outcome{result: profile("fast")})
	state := rec.next(t)
	require.Equal(t, "fast", state.(domain.ShowingResults).Result.User.Name)

	lookuper.release("slow", outcome{result: profile("slow")})

	// The slow settlement must not reach listeners or the state.
	select {
	case s := <-rec.ch:
		t.Fatalf("stale settlement was applied: %#v", s)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, "fast", c.State().(domain.ShowingResults).Result.User.Name)
}

func TestSupersededLookupIsCancelled(t *testing.T) {
	lookuper := newGatedLookuper()
	field := &fieldValue{value: "first"}
	c, rec := newController(t, lookuper, field)

	c.TriggerLookup()
	rec.next(t)
	field.set("second")
	c.TriggerLookup()
	rec.next(t)

	lookuper.release("second", outcome{result: profile("second")})
	require.Equal(t, domain.StateResults, rec.next(t).Kind())

	c.Close()
	lookuper.mu.Lock()
	defer lookuper.mu.Unlock()
	assert.True(t, lookuper.canceled["first"])
	assert.False(t, lookuper.canceled["second"])
}

func TestBlankQuerySupersedesInFlightLookup(t *testing.T) {
	lookuper := newGatedLookuper()
	field := &fieldValue{value: "alice"}
	c, rec := newController(t, lookuper, field)

	c.TriggerLookup()
	rec.next(t)

	field.set(" ")
	c.TriggerLookup()
	assert.Equal(t, domain.ShowingError{Message: "Enter a username or user id."}, rec.next(t))

	lookuper.release("alice", outcome{result: profile("alice")})
	c.Close()
	assert.Equal(t, domain.StateError, c.State().Kind())
}

func TestClickAndEnterTriggerTheSameLookup(t *testing.T) {
	lookuper := newGatedLookuper()
	c, rec := newController(t, lookuper, QueryFieldFunc(func() string { return "" }))

	assert.Zero(t, c.KeyDown("a"))
	assert.Zero(t, c.KeyDown("Tab"))

	first := c.Click()
	rec.next(t)
	second := c.KeyDown("Enter")
	rec.next(t)

	assert.Equal(t, first+1, second)
	assert.Equal(t, []domain.StateKind{domain.StateError, domain.StateError}, rec.kinds())
}

func TestCloseWaitsForInFlightLookups(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookuper := newGatedLookuper()
	c := New(lookuper, QueryFieldFunc(func() string { return "alice" }), zap.NewNop())
	c.TriggerLookup()
	c.Close()

	assert.Zero(t, c.TriggerLookup())
	assert.Equal(t, domain.StateLoading, c.State().Kind())
}

func TestStateFor(t *testing.T) {
	assert.Equal(t, domain.ShowingError{Message: "Network error. Try again."}, StateFor(nil, nil))
	assert.Equal(t, domain.ShowingError{Message: "Network error. Try again."},
		StateFor(nil, errors.NewMalformedResponseError("http://x/api/user", 200, stderrors.New("missing friends"))))
	assert.Equal(t, domain.ShowingError{Message: "Request failed."},
		StateFor(nil, errors.NewApplicationError(500, "", nil)))
	assert.Equal(t, domain.StateResults, StateFor(profile("a"), nil).Kind())
	assert.Equal(t, "Enter a username or user id.",
		MessageFor(errors.NewValidationError("Enter a username or user id.", "query", "")))
}

func TestListenerCanReadState(t *testing.T) {
	lookuper := newGatedLookuper()
	c := New(lookuper, QueryFieldFunc(func() string { return "alice" }), zap.NewNop())
	t.Cleanup(c.Close)

	seen := make(chan domain.DisplayState, 4)
	c.Subscribe(func(_ uint64, state domain.DisplayState) {
		current := c.State()
		assert.Equal(t, state, current)
		seen <- current
	})

	c.TriggerLookup()
	lookuper.release("alice", outcome{result: profile("alice")})

	for _, want := range []domain.StateKind{domain.StateLoading, domain.StateResults} {
		select {
		case s := <-seen:
			assert.Equal(t, want, s.Kind())
		case <-time.After(2 * time.Second):
			t.Fatal("listener reading State never returned")
		}
	}
}
