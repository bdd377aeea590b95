package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

// TryInOrder runs attempt for each candidate in order. It stops at the first
// success, at the first error retryable rejects, or when ctx ends. When every
// candidate fails with a retryable error, the joined errors are returned.
func TryInOrder[C, T any](ctx context.Context, candidates []C, retryable func(error) bool, attempt func(context.Context, C) (T, error)) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}

	var errs []error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := attempt(ctx, c)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
		if !retryable(err) {
			break
		}
	}
	if len(errs) == 1 {
		return zero, errs[0]
	}
	return zero, errors.Join(errs...)
}

// CallWithModelFallback calls id.Model and then each fallback model while
// failures are retryable.
func CallWithModelFallback(ctx context.Context, a Adapter, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	models := id.Models()
	return TryInOrder(ctx, models, IsRetryable, func(ctx context.Context, model string) (string, error) {
		attemptID := id
		attemptID.Model = model
		out, err := a.Call(ctx, attemptID, credential, req, opts)
		if err != nil && len(models) > 1 {
			return "", fmt.Errorf("model %s: %w", model, err)
		}
		return out, err
	})
}
