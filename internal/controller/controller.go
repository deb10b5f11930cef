// Package controller drives one profile lookup surface through the
// Idle -> Loading -> ShowingResults/ShowingError lifecycle.
package controller

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// KeyEnter is the key name that triggers a lookup from the query field.
const KeyEnter = "Enter"

// Lookuper resolves a trimmed, non-empty query into a profile.
type Lookuper interface {
	Lookup(ctx context.Context, query string) (*domain.ProfileResult, error)
}

// QueryField is the text source read on every trigger.
type QueryField interface {
	Value() string
}

// QueryFieldFunc adapts a function to QueryField.
type QueryFieldFunc func() string

func (f QueryFieldFunc) Value() string { return f() }

// Listener observes every applied transition, in order. seq identifies the
// lookup that produced the state. Listeners run while the next transition
// waits on them: they may read State but must not call Subscribe, Close or
// trigger a lookup on the same goroutine.
type Listener func(seq uint64, state domain.DisplayState)

// Controller owns the DisplayState of one surface. Only the most recently
// triggered lookup may update it: each trigger takes a new sequence number
// and settlements carrying an older number are dropped.
type Controller struct {
	lookuper Lookuper
	field    QueryField
	logger   *zap.Logger

	mu        sync.Mutex
	state     atomic.Pointer[domain.DisplayState]
	seq       uint64
	cancel    context.CancelFunc
	listeners []Listener
	closed    bool

	// notifyMu keeps listener calls in transition order.
	notifyMu sync.Mutex

	ctx  context.Context
	stop context.CancelFunc
	wg   conc.WaitGroup
}

func New(lookuper Lookuper, field QueryField, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &Controller{
		lookuper: lookuper,
		field:    field,
		logger:   logger,
		ctx:      ctx,
		stop:     stop,
	}
	c.setState(domain.Idle{})
	return c
}

// Subscribe registers l for all later transitions.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// State returns the current display state. It does not take the controller
// lock, so listeners may call it.
func (c *Controller) State() domain.DisplayState {
	return *c.state.Load()
}

func (c *Controller) setState(state domain.DisplayState) {
	c.state.Store(&state)
}

// Click is the search control's activation gesture.
func (c *Controller) Click() uint64 {
	return c.TriggerLookup()
}

// KeyDown handles a key pressed in the query field. Only Enter triggers a
// lookup; the returned sequence is 0 otherwise.
func (c *Controller) KeyDown(key string) uint64 {
	if key != KeyEnter {
		return 0
	}
	return c.TriggerLookup()
}

// TriggerLookup reads the query field and starts a lookup. A blank query
// moves straight to ShowingError without entering Loading or touching the
// network. The returned sequence number is 0 after Close.
func (c *Controller) TriggerLookup() uint64 {
	query := strings.TrimSpace(c.field.Value())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}

	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if query == "" {
		c.apply(seq, domain.ShowingError{Message: constants.Messages.EmptyQuery})
		return seq
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel

	// Started under mu so Close never races the WaitGroup; settle blocks on
	// mu until Loading has been applied.
	c.wg.Go(func() {
		defer cancel()
		result, err := c.lookuper.Lookup(ctx, query)
		c.settle(seq, result, err)
	})

	c.logger.Debug("Lookup triggered", zap.Uint64("seq", seq), zap.String("query", query))
	c.apply(seq, domain.Loading{Query: query})

	return seq
}

// Close cancels in-flight lookups and waits for them. Later triggers are
// ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

func (c *Controller) settle(seq uint64, result *domain.ProfileResult, err error) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale lookup", zap.Uint64("seq", seq))
		return
	}
	c.cancel = nil

	if err != nil {
		c.logger.Info("Lookup failed", zap.Uint64("seq", seq), zap.Error(err))
	}
	c.apply(seq, StateFor(result, err))
}

// apply sets the state and notifies listeners. It must be called with mu
// held and returns with mu released.
func (c *Controller) apply(seq uint64, state domain.DisplayState) {
	listeners := append([]Listener(nil), c.listeners...)

	c.notifyMu.Lock()
	c.setState(state)
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, l := range listeners {
		l(seq, state)
	}
}

// StateFor maps a settled lookup to the state it displays.
func StateFor(result *domain.ProfileResult, err error) domain.DisplayState {
	if err == nil {
		if result == nil {
			return domain.ShowingError{Message: constants.Messages.NetworkError}
		}
		return domain.ShowingResults{Result: result}
	}
	return domain.ShowingError{Message: MessageFor(err)}
}

// MessageFor is the user-facing text for a lookup error. Transport failures,
// unreadable responses and unclassified errors share one generic message.
func MessageFor(err error) string {
	var validationErr *errors.ValidationError
	if stderrors.As(err, &validationErr) {
		return validationErr.Message
	}

	var appErr *errors.ApplicationError
	if stderrors.As(err, &appErr) {
		if appErr.Detail != "" {
			return appErr.Detail
		}
		return constants.Messages.RequestFailed
	}

	return constants.Messages.NetworkError
}
