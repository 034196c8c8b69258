package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsync/internal/automation"
	"socsync/internal/config"
	"socsync/internal/errors"
	"socsync/internal/exporter"
	"socsync/internal/infrastructure"
	"socsync/internal/operations"
	"socsync/internal/shared/testutil"
	"socsync/pkg/contracts/domain"
)

const reportCSV = "Order ID,SOC Received time,Next Station,Current Station,Outbound 3PL\n" +
	"BR1,05/03/2024 14:07:09,ST-A,HUB-1,3PL-X\n" +
	"BR2,2024-03-05 08:00,ST-B,HUB-1,3PL-Y\n"

// stubBrowser serves a prepared archive on Download
type stubBrowser struct {
	t       *testing.T
	entries map[string]string
	closed  int
	mu      sync.Mutex
}

func (b *stubBrowser) Navigate(context.Context, string) error                 { return nil }
func (b *stubBrowser) WaitVisible(context.Context, automation.Locator) error  { return nil }
func (b *stubBrowser) Fill(context.Context, automation.Locator, string) error { return nil }
func (b *stubBrowser) Click(context.Context, automation.Locator) error        { return nil }
func (b *stubBrowser) PressKey(context.Context, string) error                 { return nil }

func (b *stubBrowser) Visible(context.Context, automation.Locator) (bool, error) {
	return true, nil
}

func (b *stubBrowser) Download(_ context.Context, _ automation.Locator, dir string) (*domain.DownloadArtifact, error) {
	path := filepath.Join(dir, "Export.zip")
	testutil.WriteZip(b.t, path, b.entries)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &domain.DownloadArtifact{Path: path, SuggestedName: "Export.zip", Size: info.Size(), CompletedAt: time.Now()}, nil
}

func (b *stubBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

// stubSheets keeps what was written per tab
type stubSheets struct {
	mu      sync.Mutex
	written map[string][][]interface{}
}

func (s *stubSheets) FindSheet(context.Context, string, string) (*exporter.SheetInfo, error) {
	return nil, nil
}

func (s *stubSheets) AddSheet(_ context.Context, _, title string, rows, cols int64) (*exporter.SheetInfo, error) {
	return &exporter.SheetInfo{ID: 1, Title: title, Rows: rows, Cols: cols}, nil
}

func (s *stubSheets) ResizeSheet(context.Context, string, *exporter.SheetInfo, int64, int64) error {
	return nil
}

func (s *stubSheets) ClearSheet(context.Context, string, string) error { return nil }

func (s *stubSheets) WriteValues(_ context.Context, _, title string, values [][]interface{}, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[title] = values
	return nil
}

type fixture struct {
	cfg      *config.Config
	browser  *stubBrowser
	sheets   *stubSheets
	connects int
}

func newFixture(t *testing.T, entries map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	credentials := filepath.Join(dir, "hxh.json")
	require.NoError(t, os.WriteFile(credentials, []byte(`{"type":"service_account"}`), 0600))

	cfg := config.Default()
	cfg.Portal.OpsID = "ops123"
	cfg.Portal.OpsSecret = "secret"
	cfg.Sheets.CredentialsFile = credentials
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	cfg.Telemetry.MetricExporter = "none"
	cfg.Timing = config.TimingConfig{
		LoginTimeout:           time.Second,
		ActionTimeout:          time.Second,
		NavigationSettle:       time.Millisecond,
		StepSettle:             time.Millisecond,
		PollReadiness:          true,
		PollInterval:           time.Millisecond,
		GenerationMode:         config.GenerationModeFixed,
		GenerationWait:         time.Millisecond,
		GenerationPollInterval: time.Millisecond,
		DownloadTimeout:        time.Second,
		RunTimeout:             10 * time.Second,
	}
	require.NoError(t, cfg.Validate())

	return &fixture{
		cfg:     cfg,
		browser: &stubBrowser{t: t, entries: entries},
		sheets:  &stubSheets{written: map[string][][]interface{}{}},
	}
}

func (f *fixture) app(t *testing.T) *Application {
	t.Helper()
	a, err := NewApplication(f.cfg,
		WithLogger(infrastructure.NewLogger(io.Discard, "error")),
		WithBrowserFactory(func(context.Context) (automation.Browser, error) {
			return f.browser, nil
		}),
		WithSheetsClient(func(context.Context) (exporter.SheetsClient, error) {
			f.connects++
			return f.sheets, nil
		}),
	)
	require.NoError(t, err)
	t.Cleanup(a.shutdownTelemetry)
	return a
}

func TestNewApplicationMissingCredentials(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Sheets.CredentialsFile = filepath.Join(t.TempDir(), "absent.json")

	_, err := NewApplication(f.cfg, WithLogger(infrastructure.NewLogger(io.Discard, "error")))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindCredential))
	assert.Equal(t, errors.ExitCredential, errors.ExitCode(err))
}

func TestNewApplicationInvalidSchedule(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Scheduler.Schedule = "every now and then"

	_, err := NewApplication(f.cfg, WithLogger(infrastructure.NewLogger(io.Discard, "error")))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestNewApplicationRegistersStepsInOrder(t *testing.T) {
	a := newFixture(t, nil).app(t)

	var ids []string
	for _, step := range a.Manager.GetRegistry().List() {
		ids = append(ids, step.ID())
	}
	assert.Equal(t, []string{
		operations.StageIDWorkspace,
		operations.StageIDAcquire,
		operations.StageIDMaterialize,
		operations.StageIDExtract,
		operations.StageIDNormalize,
		operations.StageIDSnapshot,
		operations.StageIDPublish,
	}, ids)
}

func TestRunOncePublishes(t *testing.T) {
	f := newFixture(t, map[string]string{"report.csv": reportCSV})
	a := f.app(t)

	resp, err := a.RunOnce(context.Background(), operations.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, resp.Status)
	assert.Equal(t, 2, resp.Rows)

	written := f.sheets.written[f.cfg.Sheets.SheetName]
	require.Len(t, written, 3)
	assert.Equal(t, []interface{}{"Order ID", "SOC Received time", "Next Station", "Current Station", "Outbound 3PL"}, written[0])
	assert.Equal(t, "05/03/2024 08:00:00", written[2][1])

	assert.Equal(t, 1, f.connects)
	assert.Equal(t, 1, f.browser.closed)
	assert.NoDirExists(t, a.Paths.WorkDir)
	assert.Equal(t, resp, a.Manager.LastRun())
}

func TestRunOnceEmptyArchive(t *testing.T) {
	f := newFixture(t, map[string]string{"readme.txt": "nothing"})
	a := f.app(t)

	resp, err := a.RunOnce(context.Background(), operations.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusEmpty, resp.Status)
	assert.Equal(t, 0, f.connects)
	assert.Empty(t, f.sheets.written)
	assert.Equal(t, 0, errors.ExitCode(err))
}

func TestRunOnceCancelled(t *testing.T) {
	f := newFixture(t, map[string]string{"report.csv": reportCSV})
	a := f.app(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := a.RunOnce(ctx, operations.TriggerCLI)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindCancelled))
	assert.Equal(t, errors.ExitCancelled, errors.ExitCode(err))
	assert.Equal(t, domain.RunStatusCancelled, resp.Status)
	assert.Empty(t, f.sheets.written)
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Scheduler.Schedule = "@every 1h"
	f.cfg.Scheduler.Listen = "127.0.0.1:0"
	f.cfg.Scheduler.ShutdownTimeout = time.Second
	a := f.app(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Nil(t, a.Manager.LastRun())
}
