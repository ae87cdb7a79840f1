package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// Default configuration values.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 9877
	DefaultCallTimeout    = 15 * time.Second
	DefaultDialTimeout    = 5 * time.Second
	DefaultDialAttempts   = 2
	DefaultProbeCommand   = "get_scene_info"
	DefaultBackoffInitial = 200 * time.Millisecond
	DefaultBackoffMax     = 2 * time.Second
)

// Config configures a Manager.
type Config struct {
	// Host is the address of the host instances. Default: localhost.
	Host string

	// DefaultPort is dialed when the registry has no live instance.
	// Default: 9877.
	DefaultPort int

	// CallTimeout bounds one request/response exchange. Default: 15s.
	CallTimeout time.Duration

	// DialTimeout bounds one connection attempt. Default: 5s.
	DialTimeout time.Duration

	// DialAttempts is how many times a dial is tried before giving up.
	// Default: 2.
	DialAttempts int

	// BackoffInitial and BackoffMax space out dial attempts.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// ProbeCommand is sent on a reused connection to check it is still
	// alive. Any response, even an error envelope, counts as healthy.
	// Default: get_scene_info.
	ProbeCommand string

	// MaxMessageBytes caps a response. Default: 32 MiB.
	MaxMessageBytes int
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.DefaultPort == 0 {
		c.DefaultPort = DefaultPort
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.DialAttempts <= 0 {
		c.DialAttempts = DefaultDialAttempts
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.ProbeCommand == "" {
		c.ProbeCommand = DefaultProbeCommand
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = wire.DefaultMaxMessageBytes
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.DefaultPort < 1 || c.DefaultPort > 65535 {
		errs = append(errs, fmt.Errorf("default port %d out of range", c.DefaultPort))
	}
	if c.BackoffMax < c.BackoffInitial {
		errs = append(errs, fmt.Errorf("backoff max %v below initial %v", c.BackoffMax, c.BackoffInitial))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
