package config

import (
	"errors"
	"fmt"
	"time"

	"grimm.is/qdiscwatch/internal/validation"
)

// ErrInvalid is wrapped by every parse and validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Compiled-in defaults.
const (
	DefaultInterface      = "eth0"
	DefaultHighWatermark  = 9216
	DefaultRequiredCount  = 10
	DefaultPollInterval   = 60 * time.Second
	DefaultInitialDelay   = 3 * time.Hour
	DefaultBounceInterval = 600 * time.Second
	DefaultSettleDelay    = 5 * time.Second
	DefaultUpRetryBackoff = 1 * time.Second
)

// Config is the on-disk configuration.
type Config struct {
	// Interface is the single interface to watch.
	Interface string `hcl:"interface,optional" json:"interface,omitempty"`
	// Namespace is an optional named network namespace holding Interface.
	Namespace string `hcl:"namespace,optional" json:"namespace,omitempty"`

	// HighWatermark is the backlog (packets) above which a sample is high.
	// Zero is valid: every non-empty backlog is high. Nil means the default.
	HighWatermark *int `hcl:"high_watermark,optional" json:"high_watermark,omitempty"`
	// RequiredCount is the number of consecutive high samples that trips.
	// Nil means the default; an explicit zero is rejected.
	RequiredCount *int `hcl:"required_count,optional" json:"required_count,omitempty"`

	PollInterval   string `hcl:"poll_interval,optional" json:"poll_interval,omitempty"`
	InitialDelay   string `hcl:"initial_delay,optional" json:"initial_delay,omitempty"`     // quiescence before any flap is possible
	BounceInterval string `hcl:"bounce_interval,optional" json:"bounce_interval,omitempty"` // minimum time between flaps
	SettleDelay    string `hcl:"settle_delay,optional" json:"settle_delay,omitempty"`       // sleep after each admin toggle
	UpRetryBackoff string `hcl:"up_retry_backoff,optional" json:"up_retry_backoff,omitempty"`

	Logging *LoggingConfig `hcl:"logging,block" json:"logging,omitempty"`
	Metrics *MetricsConfig `hcl:"metrics,block" json:"metrics,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string        `hcl:"level,optional" json:"level,omitempty"`
	JSON   bool          `hcl:"json,optional" json:"json,omitempty"`
	Syslog *SyslogConfig `hcl:"syslog,block" json:"syslog,omitempty"`
}

// SyslogConfig enables forwarding logs to a remote syslog server.
type SyslogConfig struct {
	Host     string `hcl:"host" json:"host"`
	Port     int    `hcl:"port,optional" json:"port,omitempty"`
	Protocol string `hcl:"protocol,optional" json:"protocol,omitempty"` // udp or tcp
	Tag      string `hcl:"tag,optional" json:"tag,omitempty"`
	Facility int    `hcl:"facility,optional" json:"facility,omitempty"`
}

// MetricsConfig enables the Prometheus and health HTTP listener.
type MetricsConfig struct {
	Listen string `hcl:"listen" json:"listen"`
}

// Default returns a config with every setting at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Int returns a pointer to v, for the optional numeric settings.
func Int(v int) *int { return &v }

// ApplyDefaults fills unset values with the compiled-in defaults. Numeric
// settings count as unset only when absent, so an explicit 0 is kept.
func (c *Config) ApplyDefaults() {
	if c.Interface == "" {
		c.Interface = DefaultInterface
	}
	if c.HighWatermark == nil {
		c.HighWatermark = Int(DefaultHighWatermark)
	}
	if c.RequiredCount == nil {
		c.RequiredCount = Int(DefaultRequiredCount)
	}
	if c.PollInterval == "" {
		c.PollInterval = DefaultPollInterval.String()
	}
	if c.InitialDelay == "" {
		c.InitialDelay = DefaultInitialDelay.String()
	}
	if c.BounceInterval == "" {
		c.BounceInterval = DefaultBounceInterval.String()
	}
	if c.SettleDelay == "" {
		c.SettleDelay = DefaultSettleDelay.String()
	}
	if c.UpRetryBackoff == "" {
		c.UpRetryBackoff = DefaultUpRetryBackoff.String()
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Settings is the validated, typed form of Config.
type Settings struct {
	Interface      string
	Namespace      string
	HighWatermark  uint64
	RequiredCount  uint
	PollInterval   time.Duration
	InitialDelay   time.Duration
	BounceInterval time.Duration
	SettleDelay    time.Duration
	UpRetryBackoff time.Duration
}

// Settings validates the config and returns its typed form.
func (c *Config) Settings() (Settings, error) {
	if err := c.Validate(); err != nil {
		return Settings{}, err
	}
	s := Settings{
		Interface:     c.Interface,
		Namespace:     c.Namespace,
		HighWatermark: uint64(*c.HighWatermark),
		RequiredCount: uint(*c.RequiredCount),
	}
	// Validate has already parsed every duration once.
	s.PollInterval, _ = time.ParseDuration(c.PollInterval)
	s.InitialDelay, _ = time.ParseDuration(c.InitialDelay)
	s.BounceInterval, _ = time.ParseDuration(c.BounceInterval)
	s.SettleDelay, _ = time.ParseDuration(c.SettleDelay)
	s.UpRetryBackoff, _ = time.ParseDuration(c.UpRetryBackoff)
	return s, nil
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := validation.ValidateInterfaceName(c.Interface); err != nil {
		errs = append(errs, fmt.Errorf("interface: %w", err))
	}
	if c.Namespace != "" {
		if err := validation.ValidateNamespaceName(c.Namespace); err != nil {
			errs = append(errs, fmt.Errorf("namespace: %w", err))
		}
	}
	switch {
	case c.HighWatermark == nil:
		errs = append(errs, fmt.Errorf("high_watermark is not set"))
	case *c.HighWatermark < 0:
		errs = append(errs, fmt.Errorf("high_watermark must not be negative, got %d", *c.HighWatermark))
	}
	switch {
	case c.RequiredCount == nil:
		errs = append(errs, fmt.Errorf("required_count is not set"))
	case *c.RequiredCount < 1:
		errs = append(errs, fmt.Errorf("required_count must be at least 1, got %d", *c.RequiredCount))
	}

	// A zero poll interval or up-retry backoff would spin on netlink.
	// Quiescence, cooldown and settle may be switched off with 0s.
	durations := []struct {
		name      string
		value     string
		allowZero bool
	}{
		{"poll_interval", c.PollInterval, false},
		{"initial_delay", c.InitialDelay, true},
		{"bounce_interval", c.BounceInterval, true},
		{"settle_delay", c.SettleDelay, true},
		{"up_retry_backoff", c.UpRetryBackoff, false},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		if v < 0 || (v == 0 && !d.allowZero) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}

	if c.Logging != nil && c.Logging.Syslog != nil {
		sl := c.Logging.Syslog
		if sl.Host == "" {
			errs = append(errs, fmt.Errorf("logging.syslog.host is required"))
		}
		if sl.Protocol != "" {
			if err := validation.ValidateAllowlist(sl.Protocol, []string{"udp", "tcp"}); err != nil {
				errs = append(errs, fmt.Errorf("logging.syslog.protocol: %w", err))
			}
		}
		if sl.Port != 0 {
			if err := validation.ValidatePortNumber(sl.Port); err != nil {
				errs = append(errs, fmt.Errorf("logging.syslog.port: %w", err))
			}
		}
	}
	if c.Metrics != nil {
		if c.Metrics.Listen == "" {
			errs = append(errs, fmt.Errorf("metrics.listen is required when the metrics block is present"))
		} else if err := validation.ValidateListenAddress(c.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Errorf("metrics.listen: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
