package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"socsync/internal/automation"
	"socsync/internal/config"
	"socsync/internal/dataprocessing"
	"socsync/internal/errors"
	"socsync/internal/exporter"
	"socsync/internal/files"
	"socsync/internal/infrastructure"
	"socsync/internal/operations"
	handlers "socsync/internal/transport/http"
	"socsync/pkg/contracts"
)

// Application wires configuration, telemetry and the pipeline together
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Manager       *operations.Manager
	Tracer        *operations.OperationTracer

	browsers automation.BrowserFactory
	sheets   exporter.ClientFactory
	server   *http.Server
}

// Option customises an Application before its services are built
type Option func(*Application)

// WithLogger replaces the logger built from the logging config
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) {
		a.Logger = logger
	}
}

// WithBrowserFactory replaces the Chrome launcher
func WithBrowserFactory(factory automation.BrowserFactory) Option {
	return func(a *Application) {
		a.browsers = factory
	}
}

// WithSheetsClient replaces the Google Sheets client factory
func WithSheetsClient(factory exporter.ClientFactory) Option {
	return func(a *Application) {
		a.sheets = factory
	}
}

// NewApplication builds every service from cfg. It fails with a CONFIG error
// on unusable settings and a CREDENTIAL error when the key file is missing.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, errors.NewConfigError("failed to initialize logger", err)
		}
		a.Logger = logger
	}

	a.Logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Bool("scheduled", cfg.Scheduled()))

	if cfg.Scheduled() {
		if _, err := cron.ParseStandard(cfg.Scheduler.Schedule); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid schedule %q", cfg.Scheduler.Schedule), err)
		}
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	a.Paths = paths

	if !config.FileExists(paths.CredentialsFile) {
		return nil, errors.NewCredentialError(
			fmt.Sprintf("credential file %s not found", paths.CredentialsFile), nil)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, a.Logger)
	if err != nil {
		return nil, errors.NewConfigError("failed to initialize OpenTelemetry", err)
	}
	a.OTelProviders = providers

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		return nil, errors.NewConfigError("failed to initialize operation tracer", err)
	}
	a.Tracer = tracer

	if err := a.initializeServices(); err != nil {
		return nil, err
	}
	return a, nil
}

// initializeServices builds the pipeline steps in execution order
func (a *Application) initializeServices() error {
	cfg, paths, logger := a.Config, a.Paths, a.Logger

	if a.browsers == nil {
		a.browsers = automation.NewChromeFactory(automation.ChromeOptions{
			Headless: cfg.Browser.Headless,
			ExecPath: cfg.Browser.ExecPath,
			Width:    cfg.Browser.ViewportWidth,
			Height:   cfg.Browser.ViewportHeight,
			Logger:   logger,
		})
	}
	if a.sheets == nil {
		credentials := paths.CredentialsFile
		a.sheets = func(ctx context.Context) (exporter.SheetsClient, error) {
			client, err := exporter.NewGoogleSheets(ctx, credentials)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}

	sequencerCfg := automation.SequencerConfigFrom(cfg)
	acquirers := func() operations.Acquirer {
		return automation.NewSequencer(sequencerCfg, a.browsers, logger)
	}

	publisher := exporter.NewPublisher(a.sheets, exporter.PublisherConfig{
		SpreadsheetID:    cfg.Sheets.SpreadsheetID,
		DefaultRows:      cfg.Sheets.DefaultRows,
		DefaultCols:      cfg.Sheets.DefaultCols,
		ValueInputOption: cfg.Sheets.ValueInputOption,
	}, logger)

	a.Manager = operations.NewManager(logger, a.Tracer)
	steps := []operations.Step{
		operations.NewWorkspaceStep(paths),
		operations.NewAcquireStep(acquirers, paths.DownloadDir),
		operations.NewMaterializeStep(files.NewManager(paths.WorkDir, logger)),
		operations.NewExtractStep(files.NewExtractor(cfg.Paths.TabularSuffixes, logger), paths.WorkDir, logger),
		operations.NewNormalizeStep(dataprocessing.NewNormalizer(logger)),
		operations.NewSnapshotStep(exporter.NewSnapshotWriter(logger), paths.SnapshotFile),
		operations.NewPublishStep(publisher, cfg.Sheets.SheetName),
	}
	for _, step := range steps {
		if err := a.Manager.RegisterStage(step); err != nil {
			return fmt.Errorf("failed to register step %s: %w", step.ID(), err)
		}
	}

	a.Logger.Debug("Pipeline assembled",
		slog.Int("steps", a.Manager.GetRegistry().Count()),
		slog.String("work_dir", paths.WorkDir),
		slog.String("sheet", cfg.Sheets.SheetName))
	return nil
}

// RunOnce executes a single pipeline run bounded by the configured run timeout
func (a *Application) RunOnce(ctx context.Context, trigger string) (*operations.RunResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Timing.RunTimeout)
	defer cancel()
	return a.Manager.Execute(ctx, operations.RunRequest{Trigger: trigger})
}

// Run executes one pipeline run, or serves the schedule until ctx is
// cancelled when a schedule is configured
func (a *Application) Run(ctx context.Context) error {
	defer a.shutdownTelemetry()

	if a.Config.Scheduled() {
		return a.Serve(ctx)
	}
	_, err := a.RunOnce(ctx, operations.TriggerCLI)
	return err
}

// Serve starts the cron scheduler and the HTTP surface and blocks until ctx
// is cancelled. The run in progress, if any, is cancelled and torn down
// before Serve returns.
func (a *Application) Serve(ctx context.Context) error {
	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	scheduler := NewScheduler(a.Config.Scheduler.Schedule, func(ctx context.Context) error {
		_, err := a.RunOnce(ctx, operations.TriggerSchedule)
		return err
	}, a.Tracer.Metrics(), a.Logger)
	if err := scheduler.Start(runCtx); err != nil {
		return err
	}

	router := handlers.NewRouter(a.Manager, a.OTelProviders.PrometheusHTTP, a.Logger)
	a.server = &http.Server{
		Addr:              a.Config.Scheduler.Listen,
		Handler:           otelhttp.NewHandler(router, "socsync.http"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening", slog.String("address", a.Config.Scheduler.Listen))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	var result error
	select {
	case <-ctx.Done():
		a.Logger.Info("Shutdown requested")
	case err, ok := <-serverErr:
		if ok {
			a.Logger.Error("Server error", slog.String("error", err.Error()))
			result = errors.NewConfigError(fmt.Sprintf("cannot serve on %s", a.Config.Scheduler.Listen), err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Scheduler.ShutdownTimeout)
	defer cancel()

	cancelRuns()
	scheduler.Stop(shutdownCtx)

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	a.Logger.Info("Application shutdown complete")
	return result
}

// shutdownTelemetry flushes exporters and closes the log file
func (a *Application) shutdownTelemetry() {
	if a.OTelProviders != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.Error("Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
	_ = infrastructure.CloseLogFile()
}
