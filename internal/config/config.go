package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"socsync/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Portal    PortalConfig    `yaml:"portal" envconfig:"PORTAL"`
	Browser   BrowserConfig   `yaml:"browser" envconfig:"BROWSER"`
	Timing    TimingConfig    `yaml:"timing" envconfig:"TIMING"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
}

// PortalConfig identifies the portal, the account and the report to export.
// OpsID and OpsSecret also fall back to the bare OPS_ID / OPS_SENHA variables.
type PortalConfig struct {
	BaseURL      string `yaml:"base_url" split_words:"true" validate:"required,url"`
	TrackingPath string `yaml:"tracking_path" split_words:"true" validate:"required"`
	OpsID        string `yaml:"ops_id" envconfig:"OPS_ID" validate:"required"`
	OpsSecret    string `yaml:"ops_secret" envconfig:"OPS_SENHA" validate:"required"`
	ExportType   string `yaml:"export_type" split_words:"true" validate:"required"`
	Profile      string `yaml:"profile" split_words:"true" validate:"required"`
}

// BrowserConfig controls the headless browser session
type BrowserConfig struct {
	Headless       bool   `yaml:"headless" split_words:"true"`
	ExecPath       string `yaml:"exec_path" split_words:"true"`
	ViewportWidth  int    `yaml:"viewport_width" split_words:"true" validate:"gt=0"`
	ViewportHeight int    `yaml:"viewport_height" split_words:"true" validate:"gt=0"`
}

// TimingConfig holds every wait of the automation sequence
type TimingConfig struct {
	LoginTimeout           time.Duration `yaml:"login_timeout" split_words:"true" validate:"gt=0"`
	ActionTimeout          time.Duration `yaml:"action_timeout" split_words:"true" validate:"gt=0"`
	PreSubmitDelay         time.Duration `yaml:"pre_submit_delay" split_words:"true" validate:"gte=0"`
	LoginSettle            time.Duration `yaml:"login_settle" split_words:"true" validate:"gte=0"`
	NavigationSettle       time.Duration `yaml:"navigation_settle" split_words:"true" validate:"gte=0"`
	OverlayDismissDelay    time.Duration `yaml:"overlay_dismiss_delay" split_words:"true" validate:"gte=0"`
	StepSettle             time.Duration `yaml:"step_settle" split_words:"true" validate:"gte=0"`
	PollReadiness          bool          `yaml:"poll_readiness" split_words:"true"`
	PollInterval           time.Duration `yaml:"poll_interval" split_words:"true" validate:"gt=0"`
	GenerationMode         string        `yaml:"generation_mode" split_words:"true" validate:"oneof=fixed poll"`
	GenerationWait         time.Duration `yaml:"generation_wait" split_words:"true" validate:"gt=0"`
	GenerationPollInterval time.Duration `yaml:"generation_poll_interval" split_words:"true" validate:"gt=0"`
	DownloadTimeout        time.Duration `yaml:"download_timeout" split_words:"true" validate:"gt=0"`
	RunTimeout             time.Duration `yaml:"run_timeout" split_words:"true" validate:"gt=0"`
}

// SheetsConfig addresses the destination spreadsheet
type SheetsConfig struct {
	SpreadsheetID    string `yaml:"spreadsheet_id" split_words:"true" validate:"required"`
	SheetName        string `yaml:"sheet_name" split_words:"true" validate:"required"`
	CredentialsFile  string `yaml:"credentials_file" split_words:"true" validate:"required"`
	DefaultRows      int64  `yaml:"default_rows" split_words:"true" validate:"gt=0"`
	DefaultCols      int64  `yaml:"default_cols" split_words:"true" validate:"gt=0"`
	ValueInputOption string `yaml:"value_input_option" split_words:"true" validate:"oneof=RAW USER_ENTERED"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	WorkDir         string   `yaml:"work_dir" split_words:"true" validate:"required"`
	SnapshotFile    string   `yaml:"snapshot_file" split_words:"true"`
	TabularSuffixes []string `yaml:"tabular_suffixes" split_words:"true" validate:"min=1,dive,required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig selects the tracing and metrics exporters
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true" validate:"oneof=none stdout"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true" validate:"oneof=none prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true" validate:"gte=0,lte=1"`
	Environment    string  `yaml:"environment" split_words:"true"`
}

// SchedulerConfig enables the long-running mode. An empty Schedule means run once.
type SchedulerConfig struct {
	Schedule        string        `yaml:"schedule" split_words:"true"`
	Listen          string        `yaml:"listen" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("failed to load config from file %s", configFile), err)
		}
	}

	// No default tags: unset variables leave the file/default value in place.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.NewConfigError("failed to load config from env", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize canonicalises free-form values before validation
func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
	c.Timing.GenerationMode = strings.ToLower(strings.TrimSpace(c.Timing.GenerationMode))
	c.Scheduler.Schedule = strings.TrimSpace(c.Scheduler.Schedule)

	for i, suffix := range c.Paths.TabularSuffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix != "" && !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		c.Paths.TabularSuffixes[i] = suffix
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/socsync.log"
	}
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return errors.NewConfigError("validation failed: "+strings.Join(fields, ", "), nil)
		}
		return errors.NewConfigError("validation failed", err)
	}
	return nil
}

// TrackingURL returns the order tracking page URL
func (c *Config) TrackingURL() string {
	return strings.TrimRight(c.Portal.BaseURL, "/") + "/" + strings.TrimLeft(c.Portal.TrackingPath, "/")
}

// Scheduled reports whether the long-running mode is configured
func (c *Config) Scheduled() bool {
	return c.Scheduler.Schedule != ""
}

// getConfigFilePath returns the first config file found in the usual locations
func getConfigFilePath() string {
	locations := []string{
		"socsync.yaml",
		"configs/socsync.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:      DefaultBaseURL,
			TrackingPath: DefaultTrackingPath,
			ExportType:   DefaultExportType,
			Profile:      DefaultProfile,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
		},
		Timing: TimingConfig{
			LoginTimeout:           DefaultLoginTimeout,
			ActionTimeout:          DefaultActionTimeout,
			PreSubmitDelay:         DefaultPreSubmitDelay,
			LoginSettle:            DefaultLoginSettle,
			NavigationSettle:       DefaultNavigationSettle,
			OverlayDismissDelay:    DefaultOverlayDismissDelay,
			StepSettle:             DefaultStepSettle,
			PollReadiness:          true,
			PollInterval:           DefaultPollInterval,
			GenerationMode:         GenerationModeFixed,
			GenerationWait:         DefaultGenerationWait,
			GenerationPollInterval: DefaultGenerationPollInterval,
			DownloadTimeout:        DefaultDownloadTimeout,
			RunTimeout:             DefaultRunTimeout,
		},
		Sheets: SheetsConfig{
			SpreadsheetID:    DefaultSpreadsheetID,
			SheetName:        DefaultSheetName,
			CredentialsFile:  DefaultCredentialsFile,
			DefaultRows:      DefaultSheetRows,
			DefaultCols:      DefaultSheetCols,
			ValueInputOption: DefaultValueInputOption,
		},
		Paths: PathsConfig{
			WorkDir:         DefaultWorkDir,
			TabularSuffixes: []string{".csv", ".xlsx"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
			Environment:    "production",
		},
		Scheduler: SchedulerConfig{
			Listen:          ":9090",
			ShutdownTimeout: 30 * time.Second,
		},
	}
}
