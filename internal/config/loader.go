package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	WorkerPoolSize         int  `json:"worker_pool_size" yaml:"worker_pool_size" toml:"worker_pool_size"`
	QueueDepth             int  `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	DispatchTimeoutSeconds int  `json:"dispatch_timeout_seconds" yaml:"dispatch_timeout_seconds" toml:"dispatch_timeout_seconds"`
	MaxBodyBytes           int  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	ConcurrentPipelines    bool `json:"concurrent_pipelines" yaml:"concurrent_pipelines" toml:"concurrent_pipelines"`

	Apps    []AppConfig   `json:"apps" yaml:"apps" toml:"apps"`
	Gateway GatewayConfig `json:"gateway" yaml:"gateway" toml:"gateway"`
	Dedup   DedupConfig   `json:"dedup" yaml:"dedup" toml:"dedup"`
	Audit   AuditConfig   `json:"audit" yaml:"audit" toml:"audit"`
	CORS    CORSConfig    `json:"cors" yaml:"cors" toml:"cors"`
	Help    HelpConfig    `json:"help" yaml:"help" toml:"help"`
	Notify  NotifyConfig  `json:"notify" yaml:"notify" toml:"notify"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
