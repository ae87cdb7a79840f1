package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/client"
	"github.com/nscrdesigns/houdini-mcp/pkg/listener"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// Config holds CLI configuration for houdinimcp.
type Config struct {
	RegistryDir string
	LogLevel    string

	// Host side (serve)
	Host            string
	Port            int
	PortRangeStart  int
	PortRangeEnd    int
	PollInterval    time.Duration
	MessageTimeout  time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxMessageBytes int
	HipFile         string
	HipName         string
	AppVersion      string
	MetricsAddr     string
	SweepInterval   time.Duration
	WatchPeers      bool

	// Client side (call, connect, instances)
	DefaultPort  int
	CallTimeout  time.Duration
	DialTimeout  time.Duration
	DialAttempts int
	ProbeCommand string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RegistryDir:     "", // Derived during Validate
		LogLevel:        "info",
		Host:            listener.DefaultHost,
		PortRangeStart:  listener.DefaultPortRangeStart,
		PortRangeEnd:    listener.DefaultPortRangeEnd,
		PollInterval:    listener.DefaultPollInterval,
		MessageTimeout:  listener.DefaultMessageTimeout,
		WriteTimeout:    listener.DefaultWriteTimeout,
		ShutdownTimeout: listener.DefaultShutdownTimeout,
		MaxMessageBytes: wire.DefaultMaxMessageBytes,
		SweepInterval:   time.Minute,
		DefaultPort:     client.DefaultPort,
		CallTimeout:     client.DefaultCallTimeout,
		DialTimeout:     client.DefaultDialTimeout,
		DialAttempts:    client.DefaultDialAttempts,
		ProbeCommand:    client.DefaultProbeCommand,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.RegistryDir == "" {
		c.RegistryDir = registry.DefaultDir()
	}
	if c.Host == "" {
		c.Host = listener.DefaultHost
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PortRangeStart < 1 || c.PortRangeEnd > 65535 || c.PortRangeStart > c.PortRangeEnd {
		return fmt.Errorf("invalid port range %d-%d", c.PortRangeStart, c.PortRangeEnd)
	}
	if c.DefaultPort < 1 || c.DefaultPort > 65535 {
		return fmt.Errorf("default port %d out of range", c.DefaultPort)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.CallTimeout <= 0 {
		return errors.New("call timeout must be positive")
	}
	if c.SweepInterval < 0 {
		return errors.New("sweep interval must not be negative")
	}

	return nil
}

// ListenerConfig returns the host listener settings.
func (c Config) ListenerConfig() listener.Config {
	return listener.Config{
		Host:            c.Host,
		Port:            c.Port,
		PortRangeStart:  c.PortRangeStart,
		PortRangeEnd:    c.PortRangeEnd,
		PollInterval:    c.PollInterval,
		MessageTimeout:  c.MessageTimeout,
		WriteTimeout:    c.WriteTimeout,
		MaxMessageBytes: c.MaxMessageBytes,
		ShutdownTimeout: c.ShutdownTimeout,
		HipFile:         c.HipFile,
		HipName:         c.HipName,
		AppVersion:      c.AppVersion,
	}
}

// ClientConfig returns the client manager settings.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		Host:            c.Host,
		DefaultPort:     c.DefaultPort,
		CallTimeout:     c.CallTimeout,
		DialTimeout:     c.DialTimeout,
		DialAttempts:    c.DialAttempts,
		ProbeCommand:    c.ProbeCommand,
		MaxMessageBytes: c.MaxMessageBytes,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
