package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging and image dumps")
	flagLogLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flagLogFile     = flag.String("log-file", "", "Log file path")
	flagGameDir     = flag.String("game-dir", "", "Directory with the extracted game archives")
	flagArea        = flag.String("area", "", "Area the character starts in")
	flagDifficulty  = flag.String("difficulty", "", "Game difficulty (normal, nightmare, hell)")
	flagCaptureFile = flag.String("capture-file", "", "Read frames from a BMP file instead of the screen")
	flagDebugDir    = flag.String("debug-dir", "", "Directory for debug image dumps")
	flagNoWatchdog  = flag.Bool("no-watchdog", false, "Disable the cursor watchdog")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Debug.Enabled = true
	}
	if *flagLogLevel != "" {
		cfg.Logging.Level = *flagLogLevel
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagGameDir != "" {
		cfg.Game.Dir = *flagGameDir
	}
	if *flagArea != "" {
		cfg.Game.Area = *flagArea
	}
	if *flagDifficulty != "" {
		cfg.Game.Difficulty = *flagDifficulty
	}
	if *flagCaptureFile != "" {
		cfg.Capture.Source = SourceFile
		cfg.Capture.File = *flagCaptureFile
	}
	if *flagDebugDir != "" {
		cfg.Debug.Dir = *flagDebugDir
		cfg.Debug.Enabled = true
	}
	if *flagNoWatchdog {
		cfg.Input.Watchdog = false
	}
}
