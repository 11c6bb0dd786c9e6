package config

const (
	defaultLogDir      = "~/.local/share/gpsbridge/logs"
	defaultTempDir     = "~/.local/share/gpsbridge/tmp"
	defaultHistoryPath = "~/.local/share/gpsbridge/history.db"
	defaultBinary      = "gpsbabel"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			TempDir: defaultTempDir,
		},
		GPSBabel: GPSBabel{
			Binary: defaultBinary,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
