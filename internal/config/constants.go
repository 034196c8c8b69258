package config

import "time"

// Application constants
const (
	AppName    = "socsync"
	AppVersion = "1.0.0"

	// EnvPrefix is the prefix for every configuration environment variable
	EnvPrefix = "SOCSYNC"
)

// Portal defaults
const (
	DefaultBaseURL      = "https://spx.shopee.com.br/"
	DefaultTrackingPath = "#/orderTracking"
	DefaultExportType   = "SOC_Received"
	DefaultProfile      = "SoC_SP_Cravinhos"
)

// Sheets defaults
const (
	DefaultSpreadsheetID    = "1Ie3u58e-PT1ZEQJE20a6GJB-icJEXBRVDVxTzxCqq4c"
	DefaultSheetName        = "Base"
	DefaultCredentialsFile  = "hxh.json"
	DefaultSheetRows        = 1000
	DefaultSheetCols        = 20
	DefaultValueInputOption = "USER_ENTERED"
)

// Filesystem defaults
const (
	DefaultWorkDir    = "/tmp/shopee_automation"
	ExtractDirName    = "extracted_files"
	ArchiveNameFormat = "TO-Packed%02d.zip"
)

// Browser defaults
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Timing defaults. The portal gives no reliable readiness signal, so most of
// these are upper bounds for a settle rather than exact waits.
const (
	DefaultLoginTimeout           = 15 * time.Second
	DefaultActionTimeout          = 30 * time.Second
	DefaultPreSubmitDelay         = 5 * time.Second
	DefaultLoginSettle            = 10 * time.Second
	DefaultNavigationSettle       = 8 * time.Second
	DefaultOverlayDismissDelay    = 1 * time.Second
	DefaultStepSettle             = 5 * time.Second
	DefaultPollInterval           = 500 * time.Millisecond
	DefaultGenerationWait         = 15 * time.Minute
	DefaultGenerationPollInterval = 30 * time.Second
	DefaultDownloadTimeout        = 2 * time.Minute
	DefaultRunTimeout             = 45 * time.Minute
)

// Generation wait modes
const (
	GenerationModeFixed = "fixed"
	GenerationModePoll  = "poll"
)
