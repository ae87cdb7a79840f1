package listener

import (
	"errors"
	"fmt"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// Default configuration values.
const (
	DefaultHost            = "localhost"
	DefaultPortRangeStart  = 9877
	DefaultPortRangeEnd    = 9886
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultMessageTimeout  = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Config configures a Listener.
type Config struct {
	// Host is the address to bind. Default: localhost.
	Host string

	// Port is an explicit port to bind. Zero scans the port range.
	Port int

	// PortRangeStart and PortRangeEnd bound the automatic scan, inclusive.
	// Default: 9877-9886.
	PortRangeStart int
	PortRangeEnd   int

	// PollInterval bounds each blocking accept and idle read so that Stop
	// is observed promptly. Default: 500ms.
	PollInterval time.Duration

	// MessageTimeout is how long a request may take to arrive once its first
	// byte has been received. Default: 15s.
	MessageTimeout time.Duration

	// WriteTimeout bounds writing one response. Default: 15s.
	WriteTimeout time.Duration

	// MaxMessageBytes caps a request. Default: 32 MiB.
	MaxMessageBytes int

	// ShutdownTimeout bounds how long Stop waits for the serve loop.
	// Default: 5s.
	ShutdownTimeout time.Duration

	// Metadata copied into the published descriptor.
	HipFile    string
	HipName    string
	AppVersion string
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.PortRangeStart == 0 {
		c.PortRangeStart = DefaultPortRangeStart
	}
	if c.PortRangeEnd == 0 {
		c.PortRangeEnd = DefaultPortRangeEnd
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MessageTimeout <= 0 {
		c.MessageTimeout = DefaultMessageTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = wire.DefaultMaxMessageBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PortRangeStart < 1 || c.PortRangeEnd > 65535 || c.PortRangeStart > c.PortRangeEnd {
		errs = append(errs, fmt.Errorf("invalid port range %d-%d", c.PortRangeStart, c.PortRangeEnd))
	}
	if c.MessageTimeout < c.PollInterval {
		errs = append(errs, fmt.Errorf("message timeout %v shorter than poll interval %v", c.MessageTimeout, c.PollInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
