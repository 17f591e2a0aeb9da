package config

import "dingd/pkg/types"

// AppConfig describes one DingTalk application served by this process.
type AppConfig struct {
	Key       string `json:"key" yaml:"key" toml:"key"`
	Secret    string `json:"secret" yaml:"secret" toml:"secret"`
	Type      string `json:"type" yaml:"type" toml:"type"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	RobotCode string `json:"robot_code" yaml:"robot_code" toml:"robot_code"`
	Stream    bool   `json:"stream" yaml:"stream" toml:"stream"`
}

// App converts the entry to the runtime identity.
func (a AppConfig) App() types.App {
	return types.App{
		Key:       a.Key,
		Secret:    a.Secret,
		Type:      a.Type,
		Name:      a.Name,
		RobotCode: a.RobotCode,
		Stream:    a.Stream,
	}
}

// Gateway modes.
const (
	GatewayDingTalk = "dingtalk"
	GatewayLog      = "log"
)

type GatewayConfig struct {
	// Mode is "dingtalk" or "log" (dry run).
	Mode           string `json:"mode" yaml:"mode" toml:"mode"`
	BaseURL        string `json:"base_url" yaml:"base_url" toml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// Dedup backends.
const (
	DedupMemory = "memory"
	DedupRedis  = "redis"
	DedupOff    = "off"
)

type DedupConfig struct {
	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds"`
}

// AuditConfig enables the Kafka audit trail when Brokers is non-empty.
type AuditConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers" toml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic" toml:"topic"`
}

func (a AuditConfig) Enabled() bool { return len(a.Brokers) > 0 }

type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

type HelpConfig struct {
	Title string `json:"title" yaml:"title" toml:"title"`
}

// NotifyConfig drives the mini-app notifier handler. It is inactive when
// Recipients is empty.
type NotifyConfig struct {
	App        string   `json:"app" yaml:"app" toml:"app"`
	Recipients []string `json:"recipients" yaml:"recipients" toml:"recipients"`
	EventCodes []string `json:"event_codes" yaml:"event_codes" toml:"event_codes"`
	// CardTemplate switches notifications to an interactive card.
	CardTemplate string `json:"card_template" yaml:"card_template" toml:"card_template"`
}
