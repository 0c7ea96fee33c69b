package feed

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantarb/marketprofile/internal/domain"
	"github.com/quantarb/marketprofile/pkg/retrier"
)

// BinanceFeed streams aggregated trades over the Binance public websocket.
// No authentication is required for public trade streams.
type BinanceFeed struct {
	symbol string
	// qtyShift converts fractional trade quantities into integer lots,
	// e.g. 3 turns 0.015 BTC into 15 lots.
	qtyShift int32
	logger   *zap.Logger
	retrier  *retrier.Retrier
}

// NewBinanceFeed creates a Binance aggregated-trade feed for the symbol.
func NewBinanceFeed(symbol string, qtyShift int32, logger *zap.Logger) *BinanceFeed {
	return &BinanceFeed{
		symbol:   symbol,
		qtyShift: qtyShift,
		logger:   logger,
		retrier: retrier.New(
			retrier.WithInitialInterval(time.Second),
			retrier.WithMaxInterval(time.Minute),
			retrier.WithMaxRetries(1<<30),
		),
	}
}

// Stream connects to the websocket and delivers ticks to handler until ctx
// is cancelled, reconnecting with backoff on stream failures.
func (f *BinanceFeed) Stream(ctx context.Context, handler TickHandler) error {
	err := f.retrier.Do(ctx, func(ctx context.Context) error {
		return f.streamOnce(ctx, handler)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrapf(err, "binance trade stream for %s", f.symbol)
	}
	return err
}

func (f *BinanceFeed) streamOnce(ctx context.Context, handler TickHandler) error {
	streamErr := make(chan error, 1)

	wsHandler := func(event *binance.WsAggTradeEvent) {
		tick, err := f.parseEvent(event)
		if err != nil {
			f.logger.Warn("skipping malformed trade event", zap.Error(err))
			return
		}
		if !tick.Valid() {
			return
		}
		handler(tick)
	}
	errHandler := func(err error) {
		select {
		case streamErr <- err:
		default:
		}
	}

	doneC, stopC, err := binance.WsAggTradeServe(f.symbol, wsHandler, errHandler)
	if err != nil {
		return errors.Wrap(err, "connect aggregated trade websocket")
	}

	f.logger.Info("binance trade stream connected", zap.String("symbol", f.symbol))

	select {
	case <-ctx.Done():
		close(stopC)
		<-doneC
		return ctx.Err()
	case err := <-streamErr:
		close(stopC)
		<-doneC
		return errors.Wrap(err, "trade stream failed")
	case <-doneC:
		return errors.New("trade stream closed by server")
	}
}

func (f *BinanceFeed) parseEvent(event *binance.WsAggTradeEvent) (domain.Tick, error) {
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return domain.Tick{}, errors.Wrap(err, "parse trade price")
	}
	qty, err := decimal.NewFromString(event.Quantity)
	if err != nil {
		return domain.Tick{}, errors.Wrap(err, "parse trade quantity")
	}

	priceF, _ := price.Float64()
	return domain.Tick{
		Price:  priceF,
		Volume: qty.Shift(f.qtyShift).Round(0).IntPart(),
		// The aggressor bought when the maker was the seller.
		IsBuy: !event.IsBuyerMaker,
		Time:  time.UnixMilli(event.TradeTime),
	}, nil
}
