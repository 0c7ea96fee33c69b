package feed

import (
	"context"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantarb/marketprofile/internal/domain"
	"github.com/quantarb/marketprofile/pkg/retrier"
)

// BybitFeed streams public trades over the Bybit V5 websocket.
type BybitFeed struct {
	symbol   string
	category bybit.CategoryV5
	qtyShift int32
	logger   *zap.Logger
	retrier  *retrier.Retrier
}

// NewBybitFeed creates a Bybit public trade feed for the symbol.
func NewBybitFeed(symbol string, category bybit.CategoryV5, qtyShift int32, logger *zap.Logger) *BybitFeed {
	if category == "" {
		category = bybit.CategoryV5Linear
	}
	return &BybitFeed{
		symbol:   symbol,
		category: category,
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
func (f *BybitFeed) Stream(ctx context.Context, handler TickHandler) error {
	err := f.retrier.Do(ctx, func(ctx context.Context) error {
		return f.streamOnce(ctx, handler)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrapf(err, "bybit trade stream for %s", f.symbol)
	}
	return err
}

func (f *BybitFeed) streamOnce(ctx context.Context, handler TickHandler) error {
	wsClient := bybit.NewWebsocketClient()
	svc, err := wsClient.V5().Public(f.category)
	if err != nil {
		return errors.Wrap(err, "create public websocket service")
	}

	unsubscribe, err := svc.SubscribeTrade(
		bybit.V5WebsocketPublicTradeParamKey{Symbol: bybit.SymbolV5(f.symbol)},
		func(resp bybit.V5WebsocketPublicTradeResponse) error {
			for _, trade := range resp.Data {
				tick, err := f.parseTrade(trade)
				if err != nil {
					f.logger.Warn("skipping malformed trade", zap.Error(err))
					continue
				}
				if !tick.Valid() {
					continue
				}
				handler(tick)
			}
			return nil
		},
	)
	if err != nil {
		return errors.Wrap(err, "subscribe public trades")
	}
	defer unsubscribe()

	f.logger.Info("bybit trade stream connected",
		zap.String("symbol", f.symbol), zap.String("category", string(f.category)))

	errHandler := func(isWebsocketClosed bool, err error) {
		f.logger.Warn("bybit websocket error",
			zap.Bool("closed", isWebsocketClosed), zap.Error(err))
	}
	if err := svc.Start(ctx, errHandler); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "trade stream failed")
	}
	return ctx.Err()
}

func (f *BybitFeed) parseTrade(trade bybit.V5WebsocketPublicTradeData) (domain.Tick, error) {
	price, err := decimal.NewFromString(trade.Trade)
	if err != nil {
		return domain.Tick{}, errors.Wrap(err, "parse trade price")
	}
	qty, err := decimal.NewFromString(trade.Value)
	if err != nil {
		return domain.Tick{}, errors.Wrap(err, "parse trade size")
	}

	priceF, _ := price.Float64()
	return domain.Tick{
		Price:  priceF,
		Volume: qty.Shift(f.qtyShift).Round(0).IntPart(),
		IsBuy:  trade.Side == bybit.SideBuy,
		Time:   time.UnixMilli(int64(trade.Timestamp)),
	}, nil
}
