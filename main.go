package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	alarmapp "alarm-cloud/internal/alarms/application"
	"alarm-cloud/internal/alarms/catalog"
	alarms "alarm-cloud/internal/alarms/domain"
	alarmrepo "alarm-cloud/internal/alarms/infrastructure/postgres"
	alarmhttp "alarm-cloud/internal/alarms/interfaces/http"
	alarmnotify "alarm-cloud/internal/alarms/notify"
	"alarm-cloud/internal/config"
	"alarm-cloud/internal/logging"
	"alarm-cloud/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("alarm daemon stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if cfg.Migrate {
		if err := alarmrepo.RunMigrations(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	metrics.Init(db, logger)

	alarmRepo := alarmrepo.NewAlarmRepository(db)
	overrideRepo := alarmrepo.NewOverrideRepository(db)
	var overrides alarmapp.OverrideRepository = overrideRepo
	if cfg.HolidayCatalogFile != "" {
		holidays, err := catalog.Load(cfg.HolidayCatalogFile)
		if err != nil {
			return err
		}
		decorated, err := catalog.NewOverrideRepository(overrideRepo, holidays, overrideRepo)
		if err != nil {
			return err
		}
		overrides = decorated
		logger.Info("holiday catalog loaded", zap.String("file", cfg.HolidayCatalogFile), zap.Int("holidays", len(holidays)))
	}

	notifier, err := buildNotifier(cfg.Notify, logger)
	if err != nil {
		return err
	}
	notifier = alarmnotify.NewMultiNotifier(alarmrepo.NewDecisionLog(db, logger), notifier)

	service, err := alarmapp.NewService(alarmRepo, overrides,
		alarmapp.WithEngine(alarms.NewEngine(alarms.WithDueWindow(cfg.DueWindow))),
		alarmapp.WithHorizonDays(cfg.HorizonDays),
		alarmapp.WithNotifier(notifier),
		alarmapp.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	driver, err := alarmapp.NewDriver(service, cfg.SweepSpec, logger)
	if err != nil {
		return err
	}

	alarmHandler, err := alarmhttp.NewHandler(service)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/alarms/", alarmHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("sweep driver started", zap.String("spec", cfg.SweepSpec), zap.Duration("due_window", cfg.DueWindow))
		if err := driver.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", zap.Error(serr))
	}
	return err
}

func buildNotifier(cfg config.NotifyConfig, logger *zap.Logger) (alarmapp.DecisionNotifier, error) {
	logNotifier := alarmnotify.NewLogNotifier(logger)
	if cfg.WebhookURL == "" {
		return logNotifier, nil
	}

	var opts []alarmnotify.WebhookOption
	if cfg.WebhookToken != "" {
		opts = append(opts, alarmnotify.WithHeader("Authorization", "Bearer "+cfg.WebhookToken))
	}
	if cfg.Markdown {
		opts = append(opts, alarmnotify.WithMarkdown())
	}
	channel, err := alarmnotify.NewWebhookChannel(cfg.WebhookURL, opts...)
	if err != nil {
		return nil, err
	}

	templateText := ""
	if cfg.TemplateFile != "" {
		data, err := os.ReadFile(cfg.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("notify template: %w", err)
		}
		templateText = string(data)
	}
	tpl, err := alarmnotify.NewTemplate(templateText)
	if err != nil {
		return nil, err
	}

	webhook, err := alarmnotify.NewNotifier(channel, tpl,
		alarmnotify.WithLogger(logger),
		alarmnotify.WithRequestTimeout(cfg.Timeout),
		alarmnotify.WithCooldown(cfg.Cooldown),
		alarmnotify.WithDedupeWindow(cfg.DedupeWindow),
	)
	if err != nil {
		return nil, err
	}
	return alarmnotify.NewMultiNotifier(logNotifier, webhook), nil
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
