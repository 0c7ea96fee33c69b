// Package feed delivers trade ticks from an exchange stream or a local
// simulator to the analyzer.
package feed

import (
	"context"

	"github.com/quantarb/marketprofile/internal/domain"
)

// TickHandler consumes one trade tick.
type TickHandler func(domain.Tick)

// Feed streams trade ticks until the context is cancelled.
type Feed interface {
	Stream(ctx context.Context, handler TickHandler) error
}
