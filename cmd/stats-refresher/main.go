package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/cache"
	"github.com/sigmapool/stats-backend/internal/explorer"
	"github.com/sigmapool/stats-backend/internal/metrics"
	"github.com/sigmapool/stats-backend/internal/model"
	"github.com/sigmapool/stats-backend/internal/repository/clickhouse"
	"github.com/sigmapool/stats-backend/internal/service"
)

type config struct {
	ClickhouseDSN   string        `long:"clickhouse-dsn" env:"STATS_CLICKHOUSE_DSN" description:"ClickHouse DSN"`
	WalletAddress   string        `long:"wallet-address" env:"STATS_WALLET_ADDRESS" description:"demurrage wallet address" required:"true"`
	NodeURL         string        `long:"node-url" env:"STATS_NODE_URL" description:"Ergo node API base URL" default:"http://127.0.0.1:9053"`
	ExplorerURL     string        `long:"explorer-url" env:"STATS_EXPLORER_URL" description:"Ergo explorer API base URL" default:"https://api.ergoplatform.com/api/v1"`
	RefreshInterval time.Duration `long:"refresh-interval" env:"STATS_REFRESH_INTERVAL" description:"delay between refresh cycles" default:"4m"`
	HTTPTimeout     time.Duration `long:"http-timeout" env:"STATS_HTTP_TIMEOUT" description:"HTTP timeout for ledger requests" default:"30s"`
	MetricsAddr     string        `long:"metrics-addr" env:"STATS_METRICS_ADDR" description:"address for metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if cfg.ClickhouseDSN == "" {
		logger.Fatal("ClickHouse DSN is required")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("stats refresher failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", zap.Error(err))
		}
	}()

	ledger, err := explorer.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		explorer.Config{
			NodeBaseURL:     cfg.NodeURL,
			ExplorerBaseURL: cfg.ExplorerURL,
		},
		metrics.NewExplorerClient(),
		logger,
	)
	if err != nil {
		return fmt.Errorf("init ledger client: %w", err)
	}

	blocks := service.NewPoolBlockIndex(repo, logger, 0, 0)
	collector := service.NewTransferCollector(ledger, blocks, cfg.WalletAddress, 0, 0, logger)

	walletCache, err := cache.New[string, model.WalletStats](4)
	if err != nil {
		return fmt.Errorf("init wallet stats cache: %w", err)
	}
	epochCache, err := cache.New[string, model.EpochStats](4)
	if err != nil {
		return fmt.Errorf("init epoch stats cache: %w", err)
	}

	walletStats := service.NewWalletStatsService(collector, ledger, cfg.WalletAddress, walletCache, logger)
	epochStats := service.NewEpochStatsService(collector, ledger, epochCache, logger)

	refresher := service.NewStatsRefresher(
		walletStats,
		epochStats,
		metrics.NewStatsRefresher(),
		cfg.RefreshInterval,
		logger,
	)
	if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
