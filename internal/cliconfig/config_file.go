package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations so the file
// stays readable.
type FileConfig struct {
	RegistryDir     string `toml:"registry_dir" yaml:"registry_dir"`
	LogLevel        string `toml:"log_level" yaml:"log_level"`
	Host            string `toml:"host" yaml:"host"`
	Port            int    `toml:"port" yaml:"port"`
	PortRangeStart  int    `toml:"port_range_start" yaml:"port_range_start"`
	PortRangeEnd    int    `toml:"port_range_end" yaml:"port_range_end"`
	PollInterval    string `toml:"poll_interval" yaml:"poll_interval"`
	MessageTimeout  string `toml:"message_timeout" yaml:"message_timeout"`
	WriteTimeout    string `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes int    `toml:"max_message_bytes" yaml:"max_message_bytes"`
	HipFile         string `toml:"hip_file" yaml:"hip_file"`
	HipName         string `toml:"hip_name" yaml:"hip_name"`
	AppVersion      string `toml:"app_version" yaml:"app_version"`
	MetricsAddr     string `toml:"metrics_addr" yaml:"metrics_addr"`
	SweepInterval   string `toml:"sweep_interval" yaml:"sweep_interval"`
	WatchPeers      *bool  `toml:"watch_peers" yaml:"watch_peers"`
	DefaultPort     int    `toml:"default_port" yaml:"default_port"`
	CallTimeout     string `toml:"call_timeout" yaml:"call_timeout"`
	DialTimeout     string `toml:"dial_timeout" yaml:"dial_timeout"`
	DialAttempts    int    `toml:"dial_attempts" yaml:"dial_attempts"`
	ProbeCommand    string `toml:"probe_command" yaml:"probe_command"`
}

// LoadFileConfig reads and parses a config file. Files ending in .yaml or
// .yml are parsed as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.houdinimcp/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".houdinimcp", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("registry-dir", fc.RegistryDir, &cfg.RegistryDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("host", fc.Host, &cfg.Host)
	s.setString("hip-file", fc.HipFile, &cfg.HipFile)
	s.setString("hip-name", fc.HipName, &cfg.HipName)
	s.setString("app-version", fc.AppVersion, &cfg.AppVersion)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("probe-command", fc.ProbeCommand, &cfg.ProbeCommand)

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("port-start", fc.PortRangeStart, &cfg.PortRangeStart)
	s.setInt("port-end", fc.PortRangeEnd, &cfg.PortRangeEnd)
	s.setInt("max-message-bytes", fc.MaxMessageBytes, &cfg.MaxMessageBytes)
	s.setInt("default-port", fc.DefaultPort, &cfg.DefaultPort)
	s.setInt("dial-attempts", fc.DialAttempts, &cfg.DialAttempts)

	durations := []struct {
		flag, value string
		dst         *time.Duration
	}{
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"message-timeout", fc.MessageTimeout, &cfg.MessageTimeout},
		{"write-timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"sweep-interval", fc.SweepInterval, &cfg.SweepInterval},
		{"call-timeout", fc.CallTimeout, &cfg.CallTimeout},
		{"dial-timeout", fc.DialTimeout, &cfg.DialTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("watch-peers", fc.WatchPeers, &cfg.WatchPeers)
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
