// Command apiserver runs the deadline engine's HTTP API: computation,
// rule-set publishing, suspension registration, configuration, and alert
// acknowledgement.  Background evaluation (scheduler sweeps, batch
// recomputation) lives in cmd/worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jurisflow/prazo/internal/config"
	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/database/postgres"
	"github.com/jurisflow/prazo/internal/infrastructure/database/redis"
	"github.com/jurisflow/prazo/internal/infrastructure/messaging/kafka"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/prometheus"
	"github.com/jurisflow/prazo/internal/infrastructure/rulesource"
	httpserver "github.com/jurisflow/prazo/internal/interfaces/http"
	"github.com/jurisflow/prazo/internal/interfaces/http/handlers"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: []string{cfg.Log.Output},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: building logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("apiserver exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting deadline engine API server",
		logging.String("version", Version),
		logging.Int("port", cfg.Server.Port),
	)

	// ── Persistence ──────────────────────────────────────────────────────
	if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), "file://"+cfg.Database.MigrationPath); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	ruleDAO := postgres.NewRuleSetRepository(conn, log)
	ruleRepo := postgres.NewDurableRuleRepository(ruleDAO, log)
	if err := ruleRepo.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrating rule sets: %w", err)
	}

	settingsStore := postgres.NewDurableSettingsStore(postgres.NewConfigurationRepository(conn, log), log)
	if err := settingsStore.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrating configuration: %w", err)
	}

	suspensionDAO := postgres.NewSuspensionRepository(conn, log)
	registry := suspension.NewRegistry()
	if err := postgres.RehydrateSuspensions(ctx, suspensionDAO, registry); err != nil {
		return fmt.Errorf("rehydrating suspensions: %w", err)
	}

	deadlineStore := postgres.NewDeadlineRepository(conn, log)

	// ── Rule document source ─────────────────────────────────────────────
	// The engine stays up on a bad or missing document as long as a
	// previously published version survives in the database.
	var effectiveRules rules.Repository = ruleRepo
	fileSource := rulesource.NewFileSource(cfg.Engine.RuleDocumentPath, ruleRepo, log)
	if err := fileSource.Load(); err != nil {
		if ruleRepo.ActiveVersion() == 0 {
			return fmt.Errorf("loading rule document with no persisted fallback: %w", err)
		}
		log.Warn("rule document load failed, serving persisted versions",
			logging.String("path", cfg.Engine.RuleDocumentPath), logging.Err(err))
	}
	if cfg.Engine.WatchRuleDocument {
		go func() {
			if err := fileSource.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Error("rule document watcher stopped", logging.Err(err))
			}
		}()
	}

	// ── Redis (optional read cache) ──────────────────────────────────────
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, rule lookups fall through to memory", logging.Err(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			cache := redis.NewCache(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.DefaultTTL, log)
			effectiveRules = redis.NewCachedRuleRepository(ruleRepo, cache, log)
		}
	}

	// ── Messaging ────────────────────────────────────────────────────────
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()
	recomputes := kafka.NewRecomputePublisher(producer)
	alerts := kafka.NewAlertPublisher(producer)

	// ── Domain services ──────────────────────────────────────────────────
	calculator := deadline.NewCalculator(effectiveRules, registry, settingsStore, nil, log)

	// The API's scheduler instance only serves acknowledgements and state
	// queries; the periodic sweep runs in cmd/worker.  Transitions are
	// persisted so both processes converge through the database.
	alertDAO := postgres.NewAlertStateRepository(conn, log)
	scheduler := notify.NewScheduler(deadlineStore, alerts, settingsStore, log)
	if states, err := alertDAO.LoadAll(ctx); err != nil {
		log.Warn("loading alert states", logging.Err(err))
	} else {
		scheduler.Seed(states)
	}
	scheduler.OnTransition(func(id common.ID, state notify.AlertState) {
		if err := alertDAO.Upsert(context.Background(), id, state); err != nil {
			log.Error("persisting alert state",
				logging.String("deadline_id", string(id)), logging.Err(err))
		}
	})

	// ── HTTP surface ─────────────────────────────────────────────────────
	metrics := prometheus.NewMetrics()

	checkers := []handlers.HealthChecker{
		handlers.HealthCheckFunc{ComponentName: "postgres", CheckFunc: conn.HealthCheck},
	}
	if redisClient != nil {
		checkers = append(checkers, handlers.HealthCheckFunc{ComponentName: "redis", CheckFunc: redisClient.Ping})
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		DeadlineHandler:   handlers.NewDeadlineHandler(calculator, deadlineStore, metrics, log),
		RulesHandler:      handlers.NewRulesHandler(effectiveRules, recomputes, log),
		SettingsHandler:   handlers.NewSettingsHandler(settingsStore, log),
		SuspensionHandler: handlers.NewSuspensionHandler(registry, suspensionDAO, log),
		AlertsHandler:     handlers.NewAlertsHandler(scheduler, log),
		HealthHandler:     handlers.NewHealthHandler(Version, checkers...),
		Logger:            log,
		Metrics:           metrics,
		Mode:              cfg.Server.Mode,
	})

	server := httpserver.NewServer(cfg.Server, router, log)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return server.Stop(context.Background())
}

// loadConfig reads the YAML config when present and falls back to
// environment-only configuration otherwise.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
