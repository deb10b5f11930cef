package controller

import (
	"context"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"go.uber.org/zap"
)

// LookupOnce drives a throwaway controller through a single trigger and
// returns the state it settles in. A done ctx yields the network error state.
func LookupOnce(ctx context.Context, lookuper Lookuper, query string, logger *zap.Logger) domain.DisplayState {
	c := New(lookuper, QueryFieldFunc(func() string { return query }), logger)
	defer c.Close()

	settled := make(chan domain.DisplayState, 1)
	c.Subscribe(func(_ uint64, state domain.DisplayState) {
		if state.Kind() != domain.StateLoading {
			settled <- state
		}
	})
	c.TriggerLookup()

	select {
	case state := <-settled:
		return state
	case <-ctx.Done():
		return domain.ShowingError{Message: constants.Messages.NetworkError}
	}
}
