package settings

import (
	"context"
)

type runContextKey struct{}

// IntoContext attaches the run parameters to ctx.
func IntoContext(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, runContextKey{}, r)
}

// FromContext returns the run parameters stored by IntoContext.
func FromContext(ctx context.Context) (*Run, bool) {
	r, ok := ctx.Value(runContextKey{}).(*Run)
	return r, ok && r != nil
}

// RunFrom returns the stored run parameters, or the interactive defaults when
// the pre-run hook never stored any.
func RunFrom(ctx context.Context) *Run {
	if r, ok := FromContext(ctx); ok {
		return r
	}
	return NewCliParams()
}
