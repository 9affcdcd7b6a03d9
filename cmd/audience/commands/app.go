package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"audience-client/internal/adapters/exporter"
	"audience-client/internal/audienceapi"
	"audience-client/internal/core/services"
	applog "audience-client/internal/log"
	"audience-client/internal/metrics"
	"audience-client/internal/observability"
	"audience-client/internal/pkg/config"
	"audience-client/internal/usecase"
)

// app - граф зависимостей, общий для всех подкоманд.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	client     *audienceapi.Client
	segments   *services.SegmentService
	audiences  *services.AudienceService
	reconciler *services.Reconciler
	printer    *exporter.ConsolePrinter

	shutdownTracing observability.ShutdownFunc
}

func newApp(ctx context.Context) (*app, error) {
	// 1. Загрузка конфигурации и флагов
	cfg, err := config.Load(accountPath, settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cfg)

	// 2. Логгер с маскировкой ключей
	level := applog.ParseLevel(cfg.Logging.Level)
	if cfg.Settings.Verbose {
		level = slog.LevelDebug
	}
	logger := applog.NewMaskedLogger(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		cfg.Account.ConsumerKey, cfg.Account.ConsumerSecret,
		cfg.Account.AccessToken, cfg.Account.AccessTokenSecret,
	)
	slog.SetDefault(logger)

	// 3. Валидация (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Трассировка и метрики
	shutdown, err := observability.InitTracing(ctx, logger, observability.TracingConfig{
		Enabled: traceEnabled,
		Output:  os.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	m := metrics.New()

	// 5. Клиент сервиса и сервисы
	httpClient := audienceapi.NewOAuthHTTPClient(ctx, audienceapi.Credentials{
		ConsumerKey:       cfg.Account.ConsumerKey,
		ConsumerSecret:    cfg.Account.ConsumerSecret,
		AccessToken:       cfg.Account.AccessToken,
		AccessTokenSecret: cfg.Account.AccessTokenSecret,
	}, cfg.Timeout())
	client := audienceapi.NewClient(cfg.API.BaseURL,
		audienceapi.WithHTTPClient(httpClient),
		audienceapi.WithMetrics(m),
		audienceapi.WithLogger(logger),
	)

	return &app{
		cfg:     cfg,
		log:     logger,
		metrics: m,
		client:  client,
		segments: services.NewSegmentService(client,
			services.WithChunkSize(cfg.API.ChunkSize),
			services.WithBuildMode(cfg.BuildMode(), cfg.Settings.AccountID),
			services.WithSegmentLogger(logger),
			services.WithSegmentMetrics(m),
		),
		audiences:       services.NewAudienceService(client, services.WithAudienceLogger(logger)),
		reconciler:      services.NewReconciler(client, services.WithReconcilerLogger(logger)),
		printer:         exporter.NewConsolePrinter(os.Stdout),
		shutdownTracing: shutdown,
	}, nil
}

// applyFlags переносит флаги командной строки поверх настроек.
func applyFlags(cfg *config.Config) {
	if audienceName != "" {
		cfg.Settings.AudienceName = audienceName
	}
	if segmentName != "" {
		cfg.Settings.SegmentName = segmentName
	}
	if inboxPath != "" {
		cfg.Settings.Inbox = inboxPath
	}
	if verbose {
		cfg.Settings.Verbose = true
	}
}

func (a *app) admin(opts ...usecase.AdminOption) *usecase.AdminUseCase {
	opts = append([]usecase.AdminOption{usecase.WithAdminLogger(a.log)}, opts...)
	return usecase.NewAdminUseCase(a.segments, a.audiences, a.client, a.printer, opts...)
}

// close сохраняет метрики и сбрасывает спаны.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.metrics.WriteTextfile(metricsFile); err != nil {
		errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
	}
	if err := a.shutdownTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracing: %w", err))
	}
	return errors.Join(errs...)
}
