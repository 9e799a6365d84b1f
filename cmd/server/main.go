package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mtkach/arbscout/internal/api"
	"github.com/mtkach/arbscout/internal/config"
	"github.com/mtkach/arbscout/internal/detector"
	"github.com/mtkach/arbscout/internal/market"
	"github.com/mtkach/arbscout/internal/models"
	"github.com/mtkach/arbscout/internal/notify"
	"github.com/mtkach/arbscout/internal/paper"
	"github.com/mtkach/arbscout/internal/scanner"
	"github.com/mtkach/arbscout/internal/storage"
	"github.com/mtkach/arbscout/internal/stream"
	"github.com/mtkach/arbscout/internal/tracker"
)

// notifyMinInterval is the floor spacing between notification sink calls.
const notifyMinInterval = 2 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	queue := notify.NewQueue(newNotifier(cfg, logger), notifyMinInterval, logger)

	cache := market.NewCache()
	engine := detector.NewEngine(cfg, logger)
	trader := paper.NewTrader(cfg, logger)
	tracked := tracker.New(cfg, queue, store, logger)
	scan := scanner.New(cfg, cache, engine, trader, tracked, queue, logger)

	g, gctx := errgroup.WithContext(ctx)
	startIngestors(gctx, g, cfg, cache, queue, logger)
	g.Go(func() error {
		if err := scan.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	router := api.NewRouter(cfg, cache, trader, tracked, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server forced to shut down")
	}
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Engine exited with error")
	}
	logger.Info("Stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openStore connects the opportunity journal when a database is configured,
// degrading to a no-op store otherwise. A failed connection is not fatal:
// detection runs fine without persistence.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.OpportunityStore, func()) {
	if cfg.Database.DatabaseURL == "" {
		logger.Info("No database configured, opportunity journal disabled")
		return storage.NopStore{}, func() {}
	}
	store, err := storage.NewPostgres(ctx, cfg.Database.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Warn("Database unavailable, opportunity journal disabled")
		return storage.NopStore{}, func() {}
	}
	return store, store.Close
}

func newNotifier(cfg *config.Config, logger *logrus.Logger) notify.Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		logger.Info("No Telegram credentials, notifications go to the log")
		return notify.NewLogNotifier(logger)
	}
	tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	if err != nil {
		logger.WithError(err).Warn("Telegram unavailable, notifications go to the log")
		return notify.NewLogNotifier(logger)
	}
	return tg
}

// startIngestors launches one ingestor per venue, market category and symbol
// batch. A terminated ingestor never brings down its siblings; its venue's
// quotes simply go stale.
func startIngestors(ctx context.Context, g *errgroup.Group, cfg *config.Config, cache *market.Cache, alerter stream.Alerter, logger *logrus.Logger) {
	for _, venue := range cfg.Market.Venues {
		venue := venue
		spot, deriv := venueSymbols(cfg, venue)
		for _, part := range []struct {
			market  models.MarketType
			symbols []string
		}{
			{models.MarketSpot, spot},
			{models.MarketFutures, deriv},
		} {
			if len(part.symbols) == 0 {
				continue
			}
			src, ok := stream.ForVenue(venue, part.market, logger)
			if !ok {
				logger.WithFields(logrus.Fields{
					"venue":  venue,
					"market": part.market,
				}).Warn("No streaming transport for venue, skipping")
				break
			}
			for _, batch := range batches(part.symbols, cfg.Market.BatchSize) {
				ing := stream.NewIngestor(venue, batch, src, cache, alerter,
					cfg.Market.StreamBackoff, cfg.Scanner.MinVolume, logger)
				g.Go(func() error {
					if err := ing.Run(ctx); err != nil {
						logger.WithError(err).WithField("venue", venue).Error("Ingestor terminated")
					}
					return nil
				})
			}
		}
	}
}

// venueSymbols splits the configured universe into the venue's spot symbols
// and the derivative contracts named by the venue's own convention.
func venueSymbols(cfg *config.Config, venue string) (spot, deriv []string) {
	tracked := make(map[string]struct{}, len(cfg.Market.Symbols))
	for _, s := range cfg.Market.Symbols {
		tracked[s] = struct{}{}
	}
	for _, s := range cfg.Market.Symbols {
		if models.MarketTypeOf(s) == models.MarketSpot {
			spot = append(spot, s)
		}
	}
	seen := make(map[string]struct{})
	for _, s := range spot {
		if !models.IsSpotUSDT(s) {
			continue
		}
		contract := cfg.DerivativeSymbol(venue, models.BaseAsset(s))
		if contract == "" {
			continue
		}
		if _, ok := tracked[contract]; !ok {
			continue
		}
		if _, dup := seen[contract]; dup {
			continue
		}
		seen[contract] = struct{}{}
		deriv = append(deriv, contract)
	}
	return spot, deriv
}

func batches(symbols []string, size int) [][]string {
	if size <= 0 {
		return [][]string{symbols}
	}
	var out [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[start:end])
	}
	return out
}
