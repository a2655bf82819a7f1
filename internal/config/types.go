package config

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" mapstructure:"log_file"`

	// JobsFile is the declarative jobs file applied by default.
	JobsFile string `yaml:"jobs_file" mapstructure:"jobs_file"`

	// UnitsDir holds the generated unit files.
	UnitsDir string `yaml:"units_dir" mapstructure:"units_dir"`

	// Verify runs the host's syntax checker on generated units before writing them.
	Verify bool `yaml:"verify" mapstructure:"verify"`

	// Marker overrides the managed-unit marker. Empty means the default.
	Marker string `yaml:"marker,omitempty" mapstructure:"marker"`

	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Wrapper WrapperConfig `yaml:"wrapper" mapstructure:"wrapper"`
}

// MonitorConfig holds monitor and exporter configuration.
type MonitorConfig struct {
	// RefreshInterval is the pause between refreshes, in seconds. 0 refreshes as
	// soon as the previous query completed.
	RefreshInterval float64 `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// MinIntervalMs bounds how often queries may start.
	MinIntervalMs int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`

	// Listen is the address of the metrics exporter. Empty disables it.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// MetricsInterval is the exporter collection interval, in seconds.
	MetricsInterval int `yaml:"metrics_interval" mapstructure:"metrics_interval"`
}

// WrapperConfig holds launchd wrapper configuration.
type WrapperConfig struct {
	LogDir       string `yaml:"log_dir" mapstructure:"log_dir"`
	MaxLogSizeMB int    `yaml:"max_log_size_mb" mapstructure:"max_log_size_mb"`
}
