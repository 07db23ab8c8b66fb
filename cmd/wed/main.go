package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/LakeLink/WE/internal/auth"
	"github.com/LakeLink/WE/internal/broker"
	"github.com/LakeLink/WE/internal/circuitbreaker"
	"github.com/LakeLink/WE/internal/config"
	"github.com/LakeLink/WE/internal/lifecycle"
	"github.com/LakeLink/WE/internal/notify"
	"github.com/LakeLink/WE/internal/sched"
	"github.com/LakeLink/WE/internal/store"
	"github.com/LakeLink/WE/internal/store/memory"
	"github.com/LakeLink/WE/internal/store/postgres"
	redisstore "github.com/LakeLink/WE/internal/store/redis"
	"github.com/LakeLink/WE/internal/tracing"
	"github.com/LakeLink/WE/internal/watcher"
	"github.com/LakeLink/WE/internal/xfb"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// settingsBackend is the composed persistence surface main wires up.
type settingsBackend interface {
	store.Settings
	store.ContextSync
}

func main() {
	oneshot := flag.Bool("oneshot", false, "run a single background poll cycle and exit with its status")
	exchangeState := flag.String("exchange-state", "", "state token captured from the authorization redirect")
	exchangeCode := flag.String("exchange-code", "", "code captured from the authorization redirect")
	flag.Parse()

	// A missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting wed",
		"version", version,
		"webapp_base", cfg.API.WebAppBaseURL,
		"qr_window", cfg.QR.Window,
		"foreground_interval", cfg.Sched.ForegroundInterval,
		"oneshot", *oneshot,
	)

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), "wed", version, tracingEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	settings := openSettings(cfg, logger)

	client, err := xfb.NewClient(cfg.API.WebAppBaseURL, logger)
	if err != nil {
		logger.Error("failed to build API client", "error", err)
		os.Exit(1)
	}

	if *exchangeState != "" || *exchangeCode != "" {
		os.Exit(runExchange(cfg, settings, logger, *exchangeState, *exchangeCode))
	}

	seedSession(cfg, settings, logger)
	seedNotifyFlag(cfg, settings, logger)

	factory := broker.NewFactory(client, cfg.API.DeviceID, logger, func(ctx context.Context) (string, error) {
		token, err := settings.SessionToken(ctx)
		if err != nil || token == "" {
			return cfg.API.SessionToken, err
		}
		return token, nil
	})

	alerts, feed := buildNotifiers(cfg, settings, logger)

	machine := lifecycle.New(factory, cfg.QR.Window, cfg.QR.TickInterval, logger,
		lifecycle.WithSettledFunc(func(amount string) {
			if err := alerts.Send(context.Background(), "Payment settled", fmt.Sprintf("¥%s charged", amount)); err != nil {
				logger.Warn("settlement notification failed", "error", err)
			}
		}),
		lifecycle.WithErrorFunc(func(err error) {
			if nerr := alerts.Send(context.Background(), "Refresh failed", err.Error()); nerr != nil {
				logger.Warn("error notification failed", "error", nerr)
			}
		}),
	)

	watchOpts := []watcher.Option{}
	if cfg.DB.URL != "" {
		db, err := postgres.New(postgres.Config{
			URL:             cfg.DB.URL,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if dir := os.Getenv("DB_MIGRATIONS_DIR"); dir != "" {
			if err := db.Migrate(context.Background(), dir); err != nil {
				logger.Error("failed to apply archive migrations", "error", err)
				os.Exit(1)
			}
		}
		watchOpts = append(watchOpts, watcher.WithArchive(postgres.NewTransactionRepo(db)))
		logger.Info("transaction archive enabled")
	}

	feedWatcher := watcher.New(factory, settings, logger, watchOpts...)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		OpenTimeout: cfg.Sched.ForegroundInterval,
	})

	coordinator := sched.New(machine, feedWatcher, breaker, alerts, feed, sched.Config{
		ForegroundInterval: cfg.Sched.ForegroundInterval,
		BackgroundDeadline: cfg.Sched.BackgroundDeadline,
	}, logger)

	if *oneshot {
		// Stand-in for the OS-granted background opportunity: one poll
		// cycle, completion signalled through the exit code.
		if coordinator.RunBackgroundCycle(context.Background()) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, coordinator, logger)
	})

	g.Go(func() error {
		return machine.Run(gCtx)
	})

	g.Go(func() error {
		return coordinator.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("wed exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("wed shut down gracefully")
}

// buildNotifiers composes the delivery channels. Health and settlement
// alerts always deliver; the per-transaction feed channel sits behind the
// runtime enable/disable toggle.
func buildNotifiers(cfg *config.Config, settings settingsBackend, logger *slog.Logger) (alerts, feed notify.Notifier) {
	channels := []notify.Notifier{notify.NewLog(logger)}
	if cfg.Notify.WebhookURL != "" {
		channels = append(channels, notify.NewWebhook(cfg.Notify.WebhookURL))
		logger.Info("webhook notifications enabled")
	}
	multi := notify.NewMulti(cfg.Notify.Cooldown, logger, channels...)
	return multi, notify.NewGated(multi, settings.NotifyEnabled)
}

// seedNotifyFlag applies an explicit NOTIFY_ENABLED setting to the durable
// toggle. When the env var is absent the stored value wins, so a toggle
// flipped at runtime survives restarts.
func seedNotifyFlag(cfg *config.Config, settings settingsBackend, logger *slog.Logger) {
	if _, ok := os.LookupEnv("NOTIFY_ENABLED"); !ok {
		return
	}
	if err := settings.SetNotifyEnabled(context.Background(), cfg.Notify.Enabled); err != nil {
		logger.Warn("failed to persist notify flag", "error", err)
		return
	}
	logger.Info("feed notifications configured", "enabled", cfg.Notify.Enabled)
}

// openSettings prefers redis so state survives restarts and reaches the
// paired device; a dead redis degrades to in-memory state with a warning.
func openSettings(cfg *config.Config, logger *slog.Logger) settingsBackend {
	if cfg.Redis.URL != "" {
		s, err := redisstore.NewSettings(cfg.Redis.URL)
		if err == nil {
			logger.Info("settings backed by redis")
			return s
		}
		logger.Warn("redis unavailable, falling back to in-memory settings", "error", err)
	}
	return memory.NewSettings()
}

// seedSession pushes a configured token into durable settings and the
// paired-device context so both cadences and the companion share it.
func seedSession(cfg *config.Config, settings settingsBackend, logger *slog.Logger) {
	ctx := context.Background()
	stored, err := settings.SessionToken(ctx)
	if err != nil {
		logger.Warn("failed to read stored session token", "error", err)
		return
	}
	if stored != "" || cfg.API.SessionToken == "" {
		return
	}
	if err := settings.SetSessionToken(ctx, cfg.API.SessionToken); err != nil {
		logger.Warn("failed to persist session token", "error", err)
		return
	}
	if err := settings.PushContext(ctx, map[string]string{"sessionID": cfg.API.SessionToken}); err != nil {
		logger.Warn("failed to push session context", "error", err)
	}
}

// runExchange trades a captured (state, code) pair for a session token and
// persists it.
func runExchange(cfg *config.Config, settings settingsBackend, logger *slog.Logger, state, code string) int {
	exchanger, err := auth.NewExchanger(cfg.API.PayBaseURL, logger)
	if err != nil {
		logger.Error("failed to build exchanger", "error", err)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := exchanger.ExchangeCode(ctx, state, code)
	if err != nil {
		logger.Error("credential exchange failed", "error", err)
		return 1
	}
	if err := settings.SetSessionToken(ctx, token); err != nil {
		logger.Error("failed to persist exchanged token", "error", err)
		return 1
	}
	if err := settings.PushContext(ctx, map[string]string{"sessionID": token}); err != nil {
		logger.Warn("failed to push session context", "error", err)
	}
	logger.Info("session token exchanged and stored")
	return 0
}

func runHealthServer(ctx context.Context, port int, coordinator *sched.Coordinator, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := coordinator.Health().Status()
		if status == sched.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		if _, err := w.Write([]byte(string(status))); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
