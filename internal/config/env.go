package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable read by ApplyEnv.
const EnvPrefix = "DINGD_"

// overrides lists the scalar settings that may come from the environment.
// Unset variables leave the pointer nil so file values survive.
type overrides struct {
	Addr                *string  `env:"ADDR"`
	LogLevel            *string  `env:"LOG_LEVEL"`
	LogFormat           *string  `env:"LOG_FORMAT"`
	WorkerPoolSize      *int     `env:"WORKER_POOL_SIZE"`
	QueueDepth          *int     `env:"QUEUE_DEPTH"`
	DispatchTimeout     *int     `env:"DISPATCH_TIMEOUT_SECONDS"`
	MaxBodyBytes        *int     `env:"MAX_BODY_BYTES"`
	ConcurrentPipelines *bool    `env:"CONCURRENT_PIPELINES"`
	GatewayMode         *string  `env:"GATEWAY_MODE"`
	GatewayBaseURL      *string  `env:"GATEWAY_BASE_URL"`
	DedupBackend        *string  `env:"DEDUP_BACKEND"`
	RedisAddr           *string  `env:"REDIS_ADDR"`
	AuditBrokers        []string `env:"AUDIT_BROKERS" envSeparator:","`
	AuditTopic          *string  `env:"AUDIT_TOPIC"`
}

// ApplyEnv overlays DINGD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, env.Options{Prefix: EnvPrefix})
}

func applyEnv(cfg *Config, opts env.Options) error {
	var o overrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	setString(&cfg.Addr, o.Addr)
	setString(&cfg.LogLevel, o.LogLevel)
	setString(&cfg.LogFormat, o.LogFormat)
	setInt(&cfg.WorkerPoolSize, o.WorkerPoolSize)
	setInt(&cfg.QueueDepth, o.QueueDepth)
	setInt(&cfg.DispatchTimeoutSeconds, o.DispatchTimeout)
	setInt(&cfg.MaxBodyBytes, o.MaxBodyBytes)
	if o.ConcurrentPipelines != nil {
		cfg.ConcurrentPipelines = *o.ConcurrentPipelines
	}
	setString(&cfg.Gateway.Mode, o.GatewayMode)
	setString(&cfg.Gateway.BaseURL, o.GatewayBaseURL)
	setString(&cfg.Dedup.Backend, o.DedupBackend)
	setString(&cfg.Dedup.RedisAddr, o.RedisAddr)
	if len(o.AuditBrokers) > 0 {
		cfg.Audit.Brokers = o.AuditBrokers
	}
	setString(&cfg.Audit.Topic, o.AuditTopic)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
