package exec

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/cachequery/internal/query"
)

// Custom runs an SPI descriptor by delegating to the indexing provider
// registered for the descriptor's cache.
//
// The provider's items are returned in order; an item that is not an R fails
// the whole execution with ErrCodeProviderResult.
func Custom[R any](ctx context.Context, e *Engine, d *query.Descriptor[R]) ([]R, error) {
	if d == nil {
		return nil, newError(ErrCodeInvalidDescriptor, query.KindUnknown, nil, "descriptor is nil")
	}

	var out []R
	err := e.observe(ctx, d, func(log *zap.Logger) (int, error) {
		if err := validate(d, query.KindSPI); err != nil {
			return 0, err
		}

		provider, ok := e.provider(d.Cache().Name())
		if !ok {
			return 0, newError(ErrCodeNoProvider, d.Kind(), nil, "no indexing provider for cache %q", d.Cache().Name())
		}

		items, err := provider.Query(ctx, d.Cache(), d.KeepPortable())
		if err != nil {
			return 0, newError(ErrCodeProviderResult, d.Kind(), err, "indexing provider failed")
		}

		out = make([]R, 0, len(items))
		for i, item := range items {
			r, ok := item.(R)
			if !ok {
				return 0, newError(ErrCodeProviderResult, d.Kind(), nil, "item %d has type %T", i, item)
			}
			out = append(out, r)
		}

		log.Debug("indexing provider returned", zap.Int("items", len(items)))
		return len(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
