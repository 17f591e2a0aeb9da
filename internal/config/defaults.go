package config

import (
	"fmt"
	"time"
)

// Default values applied by Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultWorkers         = 8
	DefaultQueueDepth      = 256
	DefaultDispatchTimeout = 30
	DefaultMaxBodyBytes    = 1 << 20
	DefaultGatewayTimeout  = 10
	DefaultDedupTTL        = 600
	DefaultAuditTopic      = "dingd.dispatch"
	DefaultHelpTitle       = "Available commands"
)

// Defaults fills unset fields in place and returns cfg for chaining.
func Defaults(cfg *Config) *Config {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.DispatchTimeoutSeconds <= 0 {
		cfg.DispatchTimeoutSeconds = DefaultDispatchTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Gateway.Mode == "" {
		cfg.Gateway.Mode = GatewayDingTalk
	}
	if cfg.Gateway.TimeoutSeconds <= 0 {
		cfg.Gateway.TimeoutSeconds = DefaultGatewayTimeout
	}
	if cfg.Dedup.Backend == "" {
		cfg.Dedup.Backend = DedupMemory
	}
	if cfg.Dedup.TTLSeconds <= 0 {
		cfg.Dedup.TTLSeconds = DefaultDedupTTL
	}
	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = DefaultAuditTopic
	}
	if cfg.Help.Title == "" {
		cfg.Help.Title = DefaultHelpTitle
	}
	if len(cfg.CORS.Methods) == 0 {
		cfg.CORS.Methods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.CORS.Headers) == 0 {
		cfg.CORS.Headers = []string{"Content-Type", "Authorization", "X-Log-Level"}
	}
	return cfg
}

// DispatchTimeout returns the async dispatch bound as a duration.
func (c Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// GatewayTimeout returns the outbound request timeout.
func (c Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// DedupTTL returns how long delivery IDs are remembered.
func (c Config) DedupTTL() time.Duration {
	return time.Duration(c.Dedup.TTLSeconds) * time.Second
}

// Validate checks cross-field constraints after Defaults.
func (c Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Apps))
	for i, a := range c.Apps {
		if a.Key == "" {
			return fmt.Errorf("apps[%d]: key is required", i)
		}
		if _, dup := seen[a.Key]; dup {
			return fmt.Errorf("apps[%d]: duplicate key %q", i, a.Key)
		}
		seen[a.Key] = struct{}{}
		if a.Stream && a.Secret == "" {
			return fmt.Errorf("apps[%d]: stream mode requires secret", i)
		}
	}
	switch c.Gateway.Mode {
	case GatewayDingTalk, GatewayLog:
	default:
		return fmt.Errorf("gateway.mode: unknown mode %q", c.Gateway.Mode)
	}
	switch c.Dedup.Backend {
	case DedupMemory, DedupOff:
	case DedupRedis:
		if c.Dedup.RedisAddr == "" {
			return fmt.Errorf("dedup.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("dedup.backend: unknown backend %q", c.Dedup.Backend)
	}
	return nil
}
