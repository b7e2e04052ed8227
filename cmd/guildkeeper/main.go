package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildkeeper/internal/analytics"
	"guildkeeper/internal/bot"
	"guildkeeper/internal/config"
	"guildkeeper/internal/leveling"
	"guildkeeper/internal/modules/audit"
	"guildkeeper/internal/scheduler"
	"guildkeeper/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := storage.OpenBackend(startCtx, cfg.Storage, store, logger)
	startCancel()
	if err != nil {
		logger.Fatal("level backend init failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("level backend close failed", zap.Error(err))
		}
	}()
	logger.Info("level backend ready", zap.String("driver", backend.Driver))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	auditLogger := audit.NewLogger(store, logger)
	cooldown := leveling.NewCooldownTracker(leveling.CooldownConfig{
		Window:        time.Duration(cfg.Leveling.CooldownSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.Leveling.CleanupIntervalSeconds) * time.Second,
		MaxEntries:    cfg.Leveling.MaxCooldownEntries,
	})
	levels := leveling.NewService(cfg.Leveling.Curve(), settingsFromConfig(cfg.Leveling), backend.Levels, cooldown, logger)
	levels.WithJournal(auditLogger)
	if cfg.Metrics.Enabled {
		levels.WithMetrics(leveling.NewMetrics(registry))
	}
	analyticsEngine := analytics.New(backend.Levels, store)

	botSvc, err := bot.New(cfg, logger, store, levels, auditLogger, analyticsEngine)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	sched, err := scheduler.New(logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	maintenance := time.Duration(cfg.MaintenanceInterval) * time.Minute
	jobs := []scheduler.Job{
		scheduler.CooldownSweep(cooldown, time.Duration(cfg.Leveling.CleanupIntervalSeconds)*time.Second, logger),
		scheduler.AuditRetention(store, cfg.RetentionDays, maintenance, logger),
	}
	if backend.Driver == "json" {
		jobs = append(jobs, scheduler.BackendFlush(backend, maintenance))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			logger.Fatal("scheduler job invalid", zap.String("job", job.Name), zap.Error(err))
		}
	}
	sched.Start()

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		if cfg.Metrics.Enabled {
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		}
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
	if err := sched.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown failed", zap.Error(err))
	}
}

func settingsFromConfig(cfg config.LevelingConfig) leveling.Settings {
	return leveling.Settings{
		XPBase:               cfg.XPBase,
		XPVariance:           cfg.XPVariance,
		LengthThreshold:      cfg.LengthThreshold,
		LengthMultiplier:     cfg.LengthMultiplier,
		AttachmentMultiplier: cfg.AttachmentMultiplier,
		LinkMultiplier:       cfg.LinkMultiplier,
		AnnounceChannelID:    cfg.AnnounceChannelID,
		LevelUpMessage:       cfg.LevelUpMessage,
		LevelRoles:           cfg.LevelRoles,
	}
}
