// internal/search/guarded.go
package search

import (
	"context"

	apperrors "github.com/valpere/LeadScout/internal/errors"
)

// GuardedConnector stops calling a backend that keeps failing. While the
// circuit is open every search fails at once with CIRCUIT_OPEN, which the
// enricher records as a failed lookup.
type GuardedConnector struct {
	inner   Connector
	breaker *apperrors.CircuitBreaker
}

// NewGuardedConnector wraps inner with breaker
func NewGuardedConnector(inner Connector, breaker *apperrors.CircuitBreaker) *GuardedConnector {
	return &GuardedConnector{inner: inner, breaker: breaker}
}

func (g *GuardedConnector) Name() string {
	return g.inner.Name()
}

// Search implements Connector
func (g *GuardedConnector) Search(ctx context.Context, q Query) ([]Result, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}
	results, err := g.inner.Search(ctx, q)
	// a cancelled run says nothing about the backend
	if ctx.Err() == nil {
		g.breaker.Record(err)
	}
	return results, err
}
