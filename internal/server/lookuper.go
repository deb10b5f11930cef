package server

import (
	"context"
	stderrors "errors"

	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/pkg/errors"
)

// serviceLookuper lets a controller call the backend in process. Failures
// come back as the same ApplicationError an HTTP round trip would produce.
type serviceLookuper struct {
	backend Backend
}

func (l serviceLookuper) Lookup(ctx context.Context, query string) (*domain.ProfileResult, error) {
	result, err := l.backend.Lookup(ctx, query)
	if err == nil {
		return result, nil
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return nil, errors.NewTransportError("in-process", err)
	}

	appErr := errors.NewApplicationError(errors.StatusCode(err), errors.Detail(err), nil)
	appErr.Cause = err
	return nil, appErr
}
