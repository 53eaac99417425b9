package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/api/middleware"
	"github.com/feral-file/ff-yield-ledger/internal/api/server"
	"github.com/feral-file/ff-yield-ledger/internal/config"
	"github.com/feral-file/ff-yield-ledger/internal/ledger"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/messaging"
	"github.com/feral-file/ff-yield-ledger/internal/payment"
	"github.com/feral-file/ff-yield-ledger/internal/providers/ethereum"
	"github.com/feral-file/ff-yield-ledger/internal/providers/jetstream"
	"github.com/feral-file/ff-yield-ledger/internal/ratelimit"
	"github.com/feral-file/ff-yield-ledger/internal/store"
	"github.com/feral-file/ff-yield-ledger/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadLedgerAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "ledger-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Yield Ledger API")

	// Connect to database, retrying while it comes up
	var db *gorm.DB
	err = backoff.RetryNotify(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		return err
	}, backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(time.Minute)), ctx),
		func(err error, wait time.Duration) {
			logger.WarnCtx(ctx, "Database not reachable, retrying", zap.Error(err), zap.Duration("wait", wait))
		})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()

	// Payment token and ledger parameters
	tokens, params, closeTokens := setupPayment(ctx, cfg)
	defer closeTokens()

	// Event publishing
	publisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
		URL:             cfg.NATS.URL,
		StreamName:      cfg.NATS.StreamName,
		MaxReconnects:   cfg.NATS.MaxReconnects,
		ReconnectWait:   cfg.NATS.ReconnectWait,
		ConnectionName:  cfg.NATS.ConnectionName,
		DuplicateWindow: cfg.NATS.DuplicateWindow,
	}, adapter.NewNatsJetStream())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create event publisher", zap.Error(err))
	}
	publishers := []messaging.Publisher{publisher}

	if len(cfg.Webhooks.Endpoints) > 0 {
		endpoints := make([]webhook.Endpoint, 0, len(cfg.Webhooks.Endpoints))
		for _, ep := range cfg.Webhooks.Endpoints {
			endpoints = append(endpoints, webhook.Endpoint{
				URL:        ep.URL,
				Secret:     ep.Secret,
				EventTypes: ep.EventTypes,
			})
		}
		hooks, err := webhook.NewPublisher(endpoints, adapter.NewHTTPClient(cfg.Webhooks.Timeout), clock)
		if err != nil {
			logger.FatalCtx(ctx, "Invalid webhook configuration", zap.Error(err))
		}
		publishers = append(publishers, hooks)
		logger.InfoCtx(ctx, "Delivering ledger events to webhooks", zap.Int("endpoints", len(endpoints)))
	}

	eventPublisher := messaging.Fanout(publishers...)
	defer eventPublisher.Close()

	dispatcher := messaging.NewDispatcher(ctx, messaging.DispatcherConfig{
		QueueSize:       cfg.Dispatcher.QueueSize,
		InitialInterval: cfg.Dispatcher.InitialInterval,
		MaxInterval:     cfg.Dispatcher.MaxInterval,
		MaxElapsedTime:  cfg.Dispatcher.MaxElapsedTime,
	}, eventPublisher, dataStore, clock)

	// Deliver what a previous run committed but never published
	replayed, err := dispatcher.Replay(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("component", "dispatcher"), zap.Int("replayed", replayed))
	} else if replayed > 0 {
		logger.InfoCtx(ctx, "Replayed unpublished ledger events", zap.Int("count", replayed))
	}

	// Ledger
	l, err := ledger.New(params, tokens,
		ledger.WithJournal(dataStore),
		ledger.WithNotifier(dispatcher),
		ledger.WithClock(clock))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create ledger", zap.Error(err))
	}

	snap, err := dataStore.LoadSnapshot(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load ledger snapshot", zap.Error(err))
	}
	if snap != nil {
		if err := l.Restore(snap); err != nil {
			logger.FatalCtx(ctx, "Failed to restore ledger snapshot", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Restored ledger",
			zap.Uint64("sequence", snap.Sequence),
			zap.Uint64("total_supply", l.TotalSupply(ctx)))
	} else {
		logger.InfoCtx(ctx, "No snapshot found, starting a new ledger",
			zap.String("name", params.Name),
			logger.Address("owner", params.Owner),
			logger.Amount("price", params.Price),
			zap.Uint64("max_supply", params.MaxSupply))
	}

	limiter := setupRateLimiter(ctx, cfg, clock)
	if limiter != nil {
		defer func() {
			if err := limiter.Close(); err != nil {
				logger.Warn("Failed to close rate limiter", zap.Error(err))
			}
		}()
	}

	// Create and start server
	srv := server.New(server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}, l, dataStore, limiter)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	// Let queued events drain before the publisher closes
	dispatcher.Stop()
	cancel()

	logger.Info("Ledger API stopped")
}

// setupPayment builds the payment token provider and the ledger parameters.
// The ethereum provider spends as its signer; the memory provider is for
// local development and keeps balances only for the life of the process.
func setupPayment(ctx context.Context, cfg *config.LedgerAPIConfig) (payment.Provider, ledger.Params, func()) {
	switch cfg.Payment.Provider {
	case config.PaymentProviderEthereum:
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Ethereum.SignerKey, "0x"))
		if err != nil {
			logger.FatalCtx(ctx, "Invalid ethereum signer key", zap.Error(err))
		}

		client, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err))
		}

		provider, err := ethereum.NewTokenProvider(ctx, client, key,
			ethereum.WithConfirmTimeout(cfg.Ethereum.ConfirmTimeout))
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create token provider", zap.Error(err))
		}

		params, err := cfg.Ledger.Params(provider.Signer())
		if err != nil {
			logger.FatalCtx(ctx, "Invalid ledger configuration", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Using ERC-20 payment token",
			logger.Address("token", params.PaymentToken),
			logger.Address("spender", params.Spender))
		return provider, params, client.Close

	default:
		params, err := cfg.Ledger.Params(common.Address{})
		if err != nil {
			logger.FatalCtx(ctx, "Invalid ledger configuration", zap.Error(err))
		}
		accounts, err := cfg.Payment.MemoryAccounts()
		if err != nil {
			logger.FatalCtx(ctx, "Invalid payment configuration", zap.Error(err))
		}
		token := payment.NewMemoryToken(params.PaymentToken)
		if err := token.Seed(params.Spender, accounts); err != nil {
			logger.FatalCtx(ctx, "Failed to seed in-memory payment token", zap.Error(err))
		}
		logger.WarnCtx(ctx, "Using in-memory payment token, balances are lost on restart",
			logger.Address("token", params.PaymentToken),
			zap.Int("seeded_accounts", len(accounts)))
		return payment.NewMemoryProvider(token), params, func() {}
	}
}

// setupRateLimiter returns nil when rate limiting is disabled. Without a
// Redis address each replica counts on its own.
func setupRateLimiter(ctx context.Context, cfg *config.LedgerAPIConfig, clock adapter.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if rl.RequestsPerMinute == 0 {
		logger.InfoCtx(ctx, "Rate limiting disabled")
		return nil
	}

	var rc adapter.RedisClient
	if rl.RedisAddr != "" {
		rc = adapter.NewRedisClient(adapter.RedisOptions{
			Addr:        rl.RedisAddr,
			Password:    rl.RedisPassword,
			DB:          rl.RedisDB,
			DialTimeout: 5 * time.Second,
		})
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute:   rl.RequestsPerMinute,
		Burst:               rl.Burst,
		KeyPrefix:           rl.KeyPrefix,
		EnableLocalFallback: rl.EnableLocalFallback,
		HealthCheckInterval: rl.HealthCheckInterval,
	}, rc, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Rate limiting enabled",
		zap.Int("requests_per_minute", rl.RequestsPerMinute),
		zap.Bool("distributed", rc != nil))
	return limiter
}
