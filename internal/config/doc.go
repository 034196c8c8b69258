// Package config provides configuration management for socsync.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// Variables follow the pattern SOCSYNC_<SECTION>_<FIELD>:
//
//	SOCSYNC_PORTAL_OPS_ID=ops123
//	SOCSYNC_SHEETS_SHEET_NAME=Base
//	SOCSYNC_TIMING_GENERATION_MODE=poll
//	SOCSYNC_SCHEDULER_SCHEDULE="0 * * * *"
//
// The portal credentials also accept the bare OPS_ID and OPS_SENHA variables.
//
// # Paths
//
// Every file a run produces lives under the working directory, which is
// removed at the end of the run:
//
//	paths, err := cfg.ResolvePaths()
//	name := config.ArchiveName(time.Now())  // TO-PackedHH.zip
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    os.Exit(errors.ExitCode(err))
//	}
package config
