// Command worker runs the engine's background loops: the notification
// scheduler sweep and the batch-recompute consumer that reacts to rule-set
// publications.  It shares the database and Kafka topics with cmd/apiserver
// and exposes its own metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jurisflow/prazo/internal/config"
	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/database/postgres"
	"github.com/jurisflow/prazo/internal/infrastructure/database/redis"
	"github.com/jurisflow/prazo/internal/infrastructure/messaging/kafka"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/prometheus"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const (
	defaultConfigPath  = "configs/config.yaml"
	defaultMetricsAddr = ":9090"
	alertDedupTTL      = 24 * time.Hour
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	metricsAddr := flag.String("metrics-addr", defaultMetricsAddr, "listen address for the metrics endpoint")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: []string{cfg.Log.Output},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: building logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *metricsAddr); err != nil {
		log.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting deadline engine worker",
		logging.String("version", Version),
		logging.String("poll_interval", cfg.Scheduler.PollInterval.String()),
	)

	// The apiserver owns schema migrations; the worker only connects.
	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	ruleRepo := postgres.NewDurableRuleRepository(postgres.NewRuleSetRepository(conn, log), log)
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
	alertDAO := postgres.NewAlertStateRepository(conn, log)

	metrics := prometheus.NewMetrics()

	// ── Alert pipeline ───────────────────────────────────────────────────
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	var sink notify.AlertSink = kafka.NewAlertPublisher(producer)
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, alerts are not deduplicated across workers", logging.Err(err))
		} else {
			defer redisClient.Close()
			sink = redis.NewAlertDeduper(redisClient, sink, cfg.Redis.KeyPrefix, alertDedupTTL, log)
		}
	}

	scheduler := notify.NewScheduler(deadlineStore, sink, settingsStore, log)
	if states, err := alertDAO.LoadAll(ctx); err != nil {
		log.Warn("loading alert states", logging.Err(err))
	} else {
		scheduler.Seed(states)
	}
	scheduler.OnTransition(func(id common.ID, state notify.AlertState) {
		if state == notify.StateAlerted {
			metrics.AlertsFiredTotal.Inc()
		}
		if err := alertDAO.Upsert(context.Background(), id, state); err != nil {
			log.Error("persisting alert state",
				logging.String("deadline_id", string(id)), logging.Err(err))
		}
	})

	// ── Batch recompute ──────────────────────────────────────────────────
	calculator := deadline.NewCalculator(ruleRepo, registry, settingsStore, nil, log)
	recalculator := deadline.NewRecalculator(calculator, cfg.Engine.RecomputeConcurrency, log)
	refresh := func(ctx context.Context) error {
		if err := ruleRepo.Rehydrate(ctx); err != nil {
			return err
		}
		return postgres.RehydrateSuspensions(ctx, suspensionDAO, registry)
	}
	consumer := kafka.NewRecomputeConsumer(cfg.Kafka, recomputeHandler(refresh, recalculator, deadlineStore, metrics, log), log)
	defer consumer.Close()

	// ── Metrics endpoint ─────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(ctx, cfg.Scheduler.PollInterval)
	})
	g.Go(func() error {
		return consumer.Run(ctx)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("worker stopped")
	return err
}

// recomputeHandler reacts to one recompute request: it re-evaluates every
// current deadline against the published version and persists superseding
// records for the ones whose due date moved.
func recomputeHandler(refresh func(context.Context) error, recalc *deadline.Recalculator, store *postgres.DeadlineRepository, metrics *prometheus.Metrics, log logging.Logger) kafka.RecomputeHandler {
	return func(ctx context.Context, req kafka.RecomputeRequest) error {
		// The request usually names a version the apiserver published after
		// this process started; pick up new rule versions and suspension
		// periods before sweeping.
		if err := refresh(ctx); err != nil {
			return err
		}

		all, err := store.ListCtx(ctx)
		if err != nil {
			return err
		}
		current := currentDeadlines(all)

		outcomes, err := recalc.RecomputeAll(ctx, current, req.RuleVersion)
		if err != nil {
			return err
		}

		var changed, unchanged, failed int
		for _, o := range outcomes {
			switch {
			case o.Err != nil:
				failed++
				metrics.RecomputeOutcomes.WithLabelValues("failed").Inc()
			case o.Changed:
				if err := store.SaveCtx(ctx, o.Next); err != nil {
					return err
				}
				changed++
				metrics.RecomputeOutcomes.WithLabelValues("changed").Inc()
			default:
				unchanged++
				metrics.RecomputeOutcomes.WithLabelValues("unchanged").Inc()
			}
		}

		log.Info("recompute sweep finished",
			logging.Int("rule_version", req.RuleVersion),
			logging.String("requested_by", req.RequestedBy),
			logging.Int("changed", changed),
			logging.Int("unchanged", unchanged),
			logging.Int("failed", failed),
		)
		return nil
	}
}

// currentDeadlines drops records that a later recomputation already
// superseded, so repeated sweeps never fan out over stale history.
func currentDeadlines(all []deadline.ComputedDeadline) []deadline.ComputedDeadline {
	superseded := make(map[common.ID]struct{}, len(all))
	for _, d := range all {
		if d.SupersedesID != "" {
			superseded[d.SupersedesID] = struct{}{}
		}
	}
	out := all[:0]
	for _, d := range all {
		if _, ok := superseded[d.ID]; !ok {
			out = append(out, d)
		}
	}
	return out
}

// loadConfig reads the YAML config when present and falls back to
// environment-only configuration otherwise.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
