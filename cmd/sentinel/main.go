// Command sentinel runs the StayOps security monitoring service: the
// audit-log monitor, the response engine, the alert dispatcher, and the
// operations API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/stayops-systems/sentinel/internal/alerting"
	"github.com/stayops-systems/sentinel/internal/classifier"
	"github.com/stayops-systems/sentinel/internal/config"
	"github.com/stayops-systems/sentinel/internal/correlation"
	"github.com/stayops-systems/sentinel/internal/enrichment"
	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/messaging"
	"github.com/stayops-systems/sentinel/internal/monitor"
	"github.com/stayops-systems/sentinel/internal/repository"
	"github.com/stayops-systems/sentinel/internal/response"
	"github.com/stayops-systems/sentinel/internal/rules"
	"github.com/stayops-systems/sentinel/internal/server"
	"github.com/stayops-systems/sentinel/pkg/tokens"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	connString := cfg.Database.Postgres.ConnString()

	// Run database migrations
	logger.Info("running database migrations")
	mig, err := migrate.New("file://migrations", connString)
	if err != nil {
		logger.Error("failed to initialize migrations", logging.Error(err))
		os.Exit(1)
	}
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("failed to run migrations", logging.Error(err))
		os.Exit(1)
	}

	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", logging.Error(err))
		os.Exit(1)
	}
	defer repo.Close()

	// Redis backs the threat intel cache and the response throttle.
	// Without it the service falls back to in-process equivalents.
	var (
		intel    enrichment.Provider = enrichment.Noop{}
		throttle monitor.Throttle    = monitor.NewMemoryThrottle()
	)
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("invalid redis url", logging.Error(err))
			os.Exit(1)
		}
		opts.MaxRetries = cfg.Redis.MaxRetries
		opts.PoolSize = cfg.Redis.PoolSize
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", logging.Error(err))
			os.Exit(1)
		}
		cancel()

		intel = enrichment.NewRedisProvider(rdb, 24*time.Hour)
		throttle = monitor.NewRedisThrottle(rdb)
		logger.Info("redis connected", slog.String("url", cfg.Redis.URL))
	} else {
		logger.Warn("redis disabled, using in-memory intel cache and response throttle")
	}

	// Rule packs
	corrStore := rules.NewCorrelationStore()
	respStore := rules.NewResponseStore()
	corrRules, respRules, err := rules.LoadDir(cfg.Rules.Dir)
	if err != nil {
		logger.Error("failed to load rule packs", logging.Error(err))
		os.Exit(1)
	}
	if err := corrStore.Replace(corrRules); err != nil {
		logger.Error("invalid correlation rule pack", logging.Error(err))
		os.Exit(1)
	}
	if err := respStore.Replace(respRules); err != nil {
		logger.Error("invalid response rule pack", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("rule packs loaded",
		slog.Int("correlation_rules", len(corrRules)),
		slog.Int("response_rules", len(respRules)))

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Rules.Watch {
		watcher := rules.NewWatcher(cfg.Rules.Dir, corrStore, respStore, logger)
		go func() {
			if err := watcher.Run(watchCtx); err != nil {
				logger.Error("rule watcher stopped", logging.Error(err))
			}
		}()
	}

	// Alert channels
	alertTimeout := parseDuration(cfg.Alerting.Timeout, 10*time.Second)
	var channels []alerting.Channel
	if cfg.NATS.Enabled {
		natsCfg := messaging.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = cfg.NATS.Name
		natsCfg.Username = cfg.NATS.Username
		natsCfg.Password = cfg.NATS.Password

		natsClient, err := messaging.NewClient(natsCfg, logger.Logger)
		if err != nil {
			logger.Error("failed to connect to NATS", logging.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()
		channels = append(channels, alerting.NewDashboardChannel(natsClient, messaging.SubjectAlertsCreated))
	} else {
		logger.Warn("nats disabled, dashboard alerts will not be published")
	}
	if cfg.Alerting.WebhookURL != "" {
		channels = append(channels, alerting.NewWebhookChannel(cfg.Alerting.WebhookURL, alertTimeout))
	}
	if cfg.Alerting.SlackWebhookURL != "" {
		channels = append(channels, alerting.NewSlackChannel(cfg.Alerting.SlackWebhookURL, alertTimeout))
	}
	logCh := alerting.NewLogChannel(logger.Logger)
	channels = append(channels, logCh)

	// Every severity also reaches the log channel so a bare deployment
	// still surfaces alerts somewhere.
	routes := alerting.DefaultRoutes()
	for sev := range routes {
		routes[sev] = append(routes[sev], logCh.Type())
	}
	dispatcher := alerting.NewDispatcher(channels, routes, logger.Logger)

	// Response engine
	var auditStore repository.ResponseAuditStore = repo
	if cfg.Audit.Enabled {
		osAudit, err := response.NewOpenSearchAudit(response.AuditConfig{
			URL:         cfg.Audit.URL,
			Username:    cfg.Audit.Username,
			Password:    cfg.Audit.Password,
			Insecure:    cfg.Audit.Insecure,
			IndexPrefix: cfg.Audit.IndexPrefix,
		})
		if err != nil {
			logger.Error("failed to connect to OpenSearch audit", logging.Error(err))
			os.Exit(1)
		}
		auditStore = osAudit
		logger.Info("response audit log on OpenSearch", slog.String("url", cfg.Audit.URL))
	}
	enforcer := response.NewMemoryEnforcer(time.Hour, logger.Logger)
	engine := response.NewEngine(respStore, auditStore, enforcer, dispatcher,
		response.WithLogger(logger.Logger))

	cls := classifier.New(
		classifier.WithIntel(intel),
		classifier.WithLogger(logger),
	)
	correlator := correlation.NewEngine(correlation.WithLogger(logger))

	mon, err := monitor.New(cfg.Monitoring, repo, repo, cls, correlator, corrStore,
		engine, dispatcher, throttle, monitor.WithLogger(logger.Logger))
	if err != nil {
		logger.Error("failed to build monitor", logging.Error(err))
		os.Exit(1)
	}
	if err := mon.Start(context.Background()); err != nil {
		logger.Error("failed to start monitor", logging.Error(err))
		os.Exit(1)
	}

	// HTTP API
	var generator *tokens.TokenGenerator
	if cfg.Auth.Enabled {
		if cfg.Auth.JWTSecret == "" {
			logger.Error("auth enabled but auth.jwt_secret is empty")
			os.Exit(1)
		}
		generator = tokens.NewTokenGenerator(cfg.Auth.JWTSecret, parseDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	}
	auth := server.NewAuthMiddleware(cfg.Auth.Enabled, generator, cfg.Auth.APIKeyHashes)
	handler := server.NewHandler(mon, corrStore, respStore, repo, logger.Logger)
	router := server.NewRouter(handler, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  parseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: parseDuration(cfg.Server.WriteTimeout, 15*time.Second),
		IdleTimeout:  parseDuration(cfg.Server.IdleTimeout, 60*time.Second),
	}

	go func() {
		logger.Info("sentinel listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := mon.Stop(); err != nil {
		logger.Warn("monitor stop", logging.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
