// Command marketprofile runs the streaming market-profile analyzer.
// It consumes live trade ticks (Binance, Bybit or a local simulator),
// maintains session, rolling and multi-day composite volume profiles with
// order-flow delta and momentum, and serves the results over a web
// dashboard with an SSE snapshot stream.
//
// Usage:
//
//	marketprofile --config config.yaml
//	marketprofile --platform simulate --symbol BTCUSDT
//	marketprofile --setup
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hirokisan/bybit/v2"
	"go.uber.org/zap"

	"github.com/quantarb/marketprofile/config"
	"github.com/quantarb/marketprofile/internal"
	"github.com/quantarb/marketprofile/internal/services/feed"
	"github.com/quantarb/marketprofile/internal/setup"
	"github.com/quantarb/marketprofile/internal/storage/history"
	"github.com/quantarb/marketprofile/internal/storage/snapshots"
	"github.com/quantarb/marketprofile/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = append(os.Args[:1], "--config", setup.GeneratedConfigFile)
		flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	}

	configs, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, cfg := range configs {
		snapshotStore, err := snapshots.NewWALStore(cfg.SnapshotDir)
		if err != nil {
			log.Fatal(err)
		}
		defer snapshotStore.Close()

		historyStore, err := history.NewStore(cfg.HistoryDir, cfg.Symbol)
		if err != nil {
			log.Fatal(err)
		}

		tickFeed, err := buildFeed(cfg, logger)
		if err != nil {
			log.Fatal(err)
		}

		analyzer := internal.NewAnalyzer(cfg, tickFeed, snapshotStore, historyStore, logger)
		go func() {
			if err := analyzer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Fatal("analyzer failed", zap.Error(err))
			}
		}()

		server := web.NewServer(cfg.ListenAddr, snapshotStore)
		go func(addr string) {
			logger.Info("web dashboard listening", zap.String("addr", addr))
			if err := server.Start(ctx); err != nil {
				logger.Error("web server failed", zap.Error(err))
			}
		}(cfg.ListenAddr)
	}

	<-ctx.Done()
	logger.Info("shutting down")
}

func buildFeed(cfg config.Config, logger *zap.Logger) (feed.Feed, error) {
	switch cfg.Platform {
	case "binance":
		return feed.NewBinanceFeed(cfg.Symbol, int32(cfg.QtyShift), logger), nil
	case "bybit":
		return feed.NewBybitFeed(cfg.Symbol, bybit.CategoryV5(cfg.Category), int32(cfg.QtyShift), logger), nil
	default:
		return feed.NewSimulateFeed(cfg.SimBasePrice, cfg.SimStep, cfg.SimTickInterval, logger), nil
	}
}
