package automation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"socsync/internal/config"
	"socsync/internal/errors"
	"socsync/pkg/contracts/domain"
)

// State is a step of the export sequence. States only move forward.
type State int

const (
	StateInit State = iota
	StateLogin
	StateNavigate
	StateConfigure
	StateAwaitGeneration
	StateDownload
	StateTeardown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLogin:
		return "login"
	case StateNavigate:
		return "navigate"
	case StateConfigure:
		return "configure"
	case StateAwaitGeneration:
		return "await_generation"
	case StateDownload:
		return "download"
	case StateTeardown:
		return "teardown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SequencerConfig is everything one export session needs
type SequencerConfig struct {
	BaseURL     string
	TrackingURL string
	OpsID       string
	OpsSecret   string
	Report      domain.ReportRequest
	Timing      config.TimingConfig
}

// SequencerConfigFrom builds a SequencerConfig from the application config
func SequencerConfigFrom(cfg *config.Config) SequencerConfig {
	return SequencerConfig{
		BaseURL:     cfg.Portal.BaseURL,
		TrackingURL: cfg.TrackingURL(),
		OpsID:       cfg.Portal.OpsID,
		OpsSecret:   cfg.Portal.OpsSecret,
		Report: domain.ReportRequest{
			ExportType: cfg.Portal.ExportType,
			Profile:    cfg.Portal.Profile,
		},
		Timing: cfg.Timing,
	}
}

// Sequencer drives one portal session from login to a downloaded archive.
// A Sequencer is single use: Run once, then Close.
type Sequencer struct {
	cfg      SequencerConfig
	locators Locators
	factory  BrowserFactory
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	browser Browser
	closed  bool
}

// NewSequencer creates a sequencer that opens its session through factory
func NewSequencer(cfg SequencerConfig, factory BrowserFactory, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		cfg:      cfg,
		locators: DefaultLocators(cfg.Report),
		factory:  factory,
		logger:   logger.With(slog.String("component", "sequencer")),
		state:    StateInit,
	}
}

// State returns the current state
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run performs the whole sequence and returns the downloaded archive.
// The session stays open on error; the caller always calls Close.
func (s *Sequencer) Run(ctx context.Context, downloadDir string) (*domain.DownloadArtifact, error) {
	steps := []func(context.Context) error{
		s.init,
		s.login,
		s.navigate,
		s.configure,
		s.awaitGeneration,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Export sequence failed",
				slog.String("state", s.State().String()),
				slog.String("error", err.Error()))
			return nil, err
		}
	}

	artifact, err := s.download(ctx, downloadDir)
	if err != nil {
		s.logger.ErrorContext(ctx, "Export sequence failed",
			slog.String("state", s.State().String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	return artifact, nil
}

// Close tears the session down. Browser errors are logged and returned but
// never block teardown.
func (s *Sequencer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	b := s.browser
	s.browser = nil
	s.mu.Unlock()

	s.transition(context.Background(), StateTeardown)
	if b == nil {
		return nil
	}
	if err := b.Close(); err != nil {
		s.logger.Warn("Browser close failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *Sequencer) transition(ctx context.Context, next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "State transition",
		slog.String("from", prev.String()),
		slog.String("to", next.String()))
}

func (s *Sequencer) init(ctx context.Context) error {
	if s.factory == nil {
		return errors.NewAutomationError("init", stderrors.New("no browser factory"))
	}
	b, err := s.factory(ctx)
	if err != nil {
		return s.fail(ctx, "init", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = b.Close()
		return errors.NewCancelledError("init", context.Canceled)
	}
	s.browser = b
	s.mu.Unlock()
	return nil
}

func (s *Sequencer) login(ctx context.Context) error {
	s.transition(ctx, StateLogin)
	b := s.session()
	t := s.cfg.Timing

	if err := s.act(ctx, "login.open", func(ctx context.Context) error {
		return b.Navigate(ctx, s.cfg.BaseURL)
	}); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.LoginTimeout)
	err := b.WaitVisible(waitCtx, s.locators.OpsID)
	cancel()
	if err != nil {
		if ctx.Err() == nil && stderrors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return errors.NewLoginTimeoutError("login.wait_form", err)
		}
		return s.fail(ctx, "login.wait_form", err)
	}

	if err := s.act(ctx, "login.fill_id", func(ctx context.Context) error {
		return b.Fill(ctx, s.locators.OpsID, s.cfg.OpsID)
	}); err != nil {
		return err
	}
	if err := s.act(ctx, "login.fill_secret", func(ctx context.Context) error {
		return b.Fill(ctx, s.locators.Password, s.cfg.OpsSecret)
	}); err != nil {
		return err
	}
	if err := sleep(ctx, t.PreSubmitDelay); err != nil {
		return s.fail(ctx, "login.pre_submit", err)
	}
	if err := s.act(ctx, "login.submit", func(ctx context.Context) error {
		return b.Click(ctx, s.locators.Submit)
	}); err != nil {
		return err
	}
	// The portal exposes no post-login signal, the settle is blind.
	if err := sleep(ctx, t.LoginSettle); err != nil {
		return s.fail(ctx, "login.settle", err)
	}

	if visible, err := b.Visible(ctx, s.locators.DialogClose); err == nil && visible {
		if err := s.act(ctx, "login.close_dialog", func(ctx context.Context) error {
			return b.Click(ctx, s.locators.DialogClose)
		}); err != nil {
			s.logger.DebugContext(ctx, "Dialog close ignored", slog.String("error", err.Error()))
		}
	}
	if ctx.Err() != nil {
		return s.fail(ctx, "login", ctx.Err())
	}
	return nil
}

func (s *Sequencer) navigate(ctx context.Context) error {
	s.transition(ctx, StateNavigate)
	b := s.session()
	t := s.cfg.Timing

	if err := s.act(ctx, "navigate.open", func(ctx context.Context) error {
		return b.Navigate(ctx, s.cfg.TrackingURL)
	}); err != nil {
		return err
	}
	if err := s.settle(ctx, t.NavigationSettle, &s.locators.ExportButton); err != nil {
		return s.fail(ctx, "navigate.settle", err)
	}

	if visible, err := b.Visible(ctx, s.locators.DialogWrapper); err == nil && visible {
		if err := s.act(ctx, "navigate.dismiss_overlay", func(ctx context.Context) error {
			return b.PressKey(ctx, KeyEscape)
		}); err != nil {
			s.logger.DebugContext(ctx, "Overlay dismiss ignored", slog.String("error", err.Error()))
		} else if err := sleep(ctx, t.OverlayDismissDelay); err != nil {
			return s.fail(ctx, "navigate.dismiss_overlay", err)
		}
	}
	if ctx.Err() != nil {
		return s.fail(ctx, "navigate", ctx.Err())
	}
	return nil
}

type configureStep struct {
	op    string
	act   func(context.Context) error
	ready *Locator
}

func (s *Sequencer) configure(ctx context.Context) error {
	s.transition(ctx, StateConfigure)
	b := s.session()
	l := &s.locators

	click := func(loc Locator) func(context.Context) error {
		return func(ctx context.Context) error { return b.Click(ctx, loc) }
	}
	steps := []configureStep{
		{op: "configure.open_export", act: click(l.ExportButton), ready: &l.AdvancedExport},
		{op: "configure.advanced_export", act: click(l.AdvancedExport), ready: &l.ExportType},
		{op: "configure.export_type", act: click(l.ExportType), ready: &l.AddTo},
		{op: "configure.add_profile", act: click(l.AddTo), ready: &l.ProfileInput},
		{op: "configure.fill_profile", act: func(ctx context.Context) error {
			return b.Fill(ctx, l.ProfileInput, s.cfg.Report.Profile)
		}, ready: &l.ProfileSuggestion},
		{op: "configure.pick_profile", act: click(l.ProfileSuggestion)},
		{op: "configure.confirm", act: click(l.Confirm)},
	}

	for _, step := range steps {
		if err := s.act(ctx, step.op, step.act); err != nil {
			return err
		}
		if step.ready == nil {
			continue
		}
		if err := s.settle(ctx, s.cfg.Timing.StepSettle, step.ready); err != nil {
			return s.fail(ctx, step.op, err)
		}
	}

	s.logger.InfoContext(ctx, "Export requested",
		slog.String("export_type", s.cfg.Report.ExportType),
		slog.String("profile", s.cfg.Report.Profile))
	return nil
}

func (s *Sequencer) awaitGeneration(ctx context.Context) error {
	s.transition(ctx, StateAwaitGeneration)
	t := s.cfg.Timing

	if t.GenerationMode != config.GenerationModePoll {
		s.logger.InfoContext(ctx, "Waiting for report generation", slog.Duration("wait", t.GenerationWait))
		if err := sleep(ctx, t.GenerationWait); err != nil {
			return s.fail(ctx, "await_generation", err)
		}
		return nil
	}

	s.logger.InfoContext(ctx, "Polling for report generation",
		slog.Duration("max_wait", t.GenerationWait),
		slog.Duration("interval", t.GenerationPollInterval))
	ready, err := s.pollVisible(ctx, s.locators.Download, t.GenerationPollInterval, t.GenerationWait)
	if err != nil {
		return s.fail(ctx, "await_generation", err)
	}
	if !ready {
		return errors.NewReportTimeoutError("await_generation", t.GenerationWait.String())
	}
	return nil
}

func (s *Sequencer) download(ctx context.Context, dir string) (*domain.DownloadArtifact, error) {
	s.transition(ctx, StateDownload)
	b := s.session()

	dlCtx, cancel := context.WithTimeout(ctx, s.cfg.Timing.DownloadTimeout)
	defer cancel()

	artifact, err := b.Download(dlCtx, s.locators.Download, dir)
	if err != nil {
		if ctx.Err() == nil && stderrors.Is(dlCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.NewDownloadTimeoutError("download", err)
		}
		return nil, s.fail(ctx, "download", err)
	}

	s.logger.InfoContext(ctx, "Report downloaded",
		slog.String("path", artifact.Path),
		slog.String("suggested_name", artifact.SuggestedName),
		slog.Int64("size", artifact.Size))
	return artifact, nil
}

// settle waits up to limit after a UI action. With readiness polling enabled
// it returns as soon as ready is visible; reaching limit is not an error.
func (s *Sequencer) settle(ctx context.Context, limit time.Duration, ready *Locator) error {
	if !s.cfg.Timing.PollReadiness || ready == nil {
		return sleep(ctx, limit)
	}
	_, err := s.pollVisible(ctx, *ready, s.cfg.Timing.PollInterval, limit)
	return err
}

// pollVisible probes loc every interval until it is visible or budget runs
// out. Only cancellation of ctx is returned as an error.
func (s *Sequencer) pollVisible(ctx context.Context, loc Locator, interval, budget time.Duration) (bool, error) {
	if budget <= 0 {
		return false, ctx.Err()
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	pollCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	for {
		if err := limiter.Wait(pollCtx); err != nil {
			return false, ctx.Err()
		}
		visible, err := s.session().Visible(pollCtx, loc)
		if err == nil && visible {
			return true, nil
		}
		if pollCtx.Err() != nil {
			return false, ctx.Err()
		}
	}
}

// act runs one UI action bounded by the action timeout. An element that never
// becomes actionable fails the action with an AutomationError.
func (s *Sequencer) act(ctx context.Context, op string, action func(context.Context) error) error {
	limit := s.cfg.Timing.ActionTimeout
	if limit <= 0 {
		if err := action(ctx); err != nil {
			return s.fail(ctx, op, err)
		}
		return nil
	}

	actCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	err := action(actCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && stderrors.Is(actCtx.Err(), context.DeadlineExceeded) {
		return errors.NewAutomationError(op, fmt.Errorf("no response within %s: %w", limit, err)).
			WithContext("state", s.State().String())
	}
	return s.fail(ctx, op, err)
}

// fail maps err to a pipeline error. A done ctx wins over the action error.
func (s *Sequencer) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.FromContext(ctx, op, nil)
	}
	var pe *errors.PipelineError
	if stderrors.As(err, &pe) {
		return err
	}
	return errors.NewAutomationError(op, err).WithContext("state", s.State().String())
}

func (s *Sequencer) session() Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return closedBrowser{}
	}
	return s.browser
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var errSessionClosed = stderrors.New("browser session is closed")

// closedBrowser stands in once the session was torn down
type closedBrowser struct{}

func (closedBrowser) Navigate(context.Context, string) error { return errSessionClosed }
func (closedBrowser) WaitVisible(context.Context, Locator) error { return errSessionClosed }
func (closedBrowser) Visible(context.Context, Locator) (bool, error) { return false, errSessionClosed }
func (closedBrowser) Fill(context.Context, Locator, string) error { return errSessionClosed }
func (closedBrowser) Click(context.Context, Locator) error { return errSessionClosed }
func (closedBrowser) PressKey(context.Context, string) error { return errSessionClosed }
func (closedBrowser) Close() error { return nil }
func (closedBrowser) Download(context.Context, Locator, string) (*domain.DownloadArtifact, error) {
	return nil, errSessionClosed
}
