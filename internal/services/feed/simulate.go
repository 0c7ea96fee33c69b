package feed

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/quantarb/marketprofile/internal/domain"
)

// SimulateFeed generates a random-walk trade stream for offline runs.
type SimulateFeed struct {
	price    float64
	step     float64
	interval time.Duration
	logger   *zap.Logger
	rnd      *rand.Rand
}

// NewSimulateFeed creates a simulated feed starting at basePrice. step is
// the largest single-tick move, interval the spacing between ticks.
func NewSimulateFeed(basePrice, step float64, interval time.Duration, logger *zap.Logger) *SimulateFeed {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &SimulateFeed{
		price:    basePrice,
		step:     step,
		interval: interval,
		logger:   logger,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Stream emits random-walk ticks until ctx is cancelled.
func (f *SimulateFeed) Stream(ctx context.Context, handler TickHandler) error {
	f.logger.Info("simulated trade stream started",
		zap.Float64("base_price", f.price), zap.Duration("interval", f.interval))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			move := (f.rnd.Float64()*2 - 1) * f.step
			f.price += move
			if f.price < f.step {
				f.price = f.step
			}

			handler(domain.Tick{
				Price:  f.price,
				Volume: int64(1 + f.rnd.Intn(100)),
				IsBuy:  move >= 0,
				Time:   now,
			})
		}
	}
}
