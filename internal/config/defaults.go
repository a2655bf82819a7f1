package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/dron/dron.log"

	DefaultJobsFile = "~/.config/dron/jobs.yaml"
	DefaultUnitsDir = "~/.config/dron/units"
	DefaultVerify   = true

	DefaultMonitorRefreshInterval = 2.0
	DefaultMonitorMinIntervalMs   = 100
	DefaultMonitorMetricsInterval = 15

	DefaultWrapperLogDir       = "~/Library/Logs/dron"
	DefaultWrapperMaxLogSizeMB = 100
)

// NewDefaultConfig returns a configuration populated with defaults.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		JobsFile: DefaultJobsFile,
		UnitsDir: DefaultUnitsDir,
		Verify:   DefaultVerify,
		Monitor: MonitorConfig{
			RefreshInterval: DefaultMonitorRefreshInterval,
			MinIntervalMs:   DefaultMonitorMinIntervalMs,
			MetricsInterval: DefaultMonitorMetricsInterval,
		},
		Wrapper: WrapperConfig{
			LogDir:       DefaultWrapperLogDir,
			MaxLogSizeMB: DefaultWrapperMaxLogSizeMB,
		},
	}
}

// setDefaults registers all default configuration values with the global viper.
// Called during Init() before reading config files.
func setDefaults() {
	setViperDefaults(viper.GetViper())
}

// setViperDefaults registers all default configuration values with a viper instance.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetDefault("jobs_file", DefaultJobsFile)
	v.SetDefault("units_dir", DefaultUnitsDir)
	v.SetDefault("verify", DefaultVerify)
	v.SetDefault("marker", "")

	v.SetDefault("monitor.refresh_interval", DefaultMonitorRefreshInterval)
	v.SetDefault("monitor.min_interval_ms", DefaultMonitorMinIntervalMs)
	v.SetDefault("monitor.listen", "")
	v.SetDefault("monitor.metrics_interval", DefaultMonitorMetricsInterval)

	v.SetDefault("wrapper.log_dir", DefaultWrapperLogDir)
	v.SetDefault("wrapper.max_log_size_mb", DefaultWrapperMaxLogSizeMB)
}
