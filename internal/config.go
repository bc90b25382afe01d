package internal

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the main application configuration.
type AppConfig struct {
	// Server holds server-specific configuration.
	Server struct {
		Port           int    `yaml:"port"`
		ReadTimeoutMS  int64  `yaml:"read_timeout_ms"`
		WriteTimeoutMS int64  `yaml:"write_timeout_ms"`
		IdleTimeoutMS  int64  `yaml:"idle_timeout_ms"`
		ReadHeaderMS   int64  `yaml:"read_header_timeout_ms"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes"`
		RateLimitRPS   int64  `yaml:"rate_limit_rps"`
		RateLimitBurst int64  `yaml:"rate_limit_burst"`
		MetricsEnabled bool   `yaml:"metrics_enabled"`
		MetricsPath    string `yaml:"metrics_path"`
	} `yaml:"server"`
	// Providers contains configuration for each payment provider endpoint.
	Providers struct {
		Woovi WooviConfig `yaml:"woovi"`
		Efi   EfiConfig   `yaml:"efi"`
	} `yaml:"providers"`
	// Ledger configures the idempotency ledger backend.
	Ledger LedgerConfig `yaml:"ledger"`
	// Storage configures the charge/subscription projection tables.
	Storage StorageConfig `yaml:"storage"`
	// Watermill holds configuration for the message router.
	Watermill WatermillConfig `yaml:"watermill"`
}

// Config represents the application configuration including dispatch rules.
type Config struct {
	AppConfig   `yaml:",inline"`
	Rules       []Rule `yaml:"rules"`
	RulesStrict bool   `yaml:"rules_strict"`
}

// WooviConfig configures the HMAC-verified Woovi/OpenPix webhook endpoint.
// Secrets maps an event type to the shared secret Woovi signs that event with;
// DefaultSecret is used for event types without a dedicated entry. When
// AllowUnverified is set, events whose type has no secret at all are accepted
// and recorded with signature_valid=false instead of being rejected.
type WooviConfig struct {
	Enabled         bool              `yaml:"enabled"`
	Path            string            `yaml:"path"`
	SignatureHeader string            `yaml:"signature_header"`
	EventIDHeader   string            `yaml:"event_id_header"`
	Secrets         map[string]string `yaml:"secrets"`
	DefaultSecret   string            `yaml:"default_secret"`
	AllowUnverified bool              `yaml:"allow_unverified"`
}

// EfiConfig configures the Efí webhook endpoint. Efí deliveries are
// authenticated with a static shared token instead of a body HMAC.
type EfiConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	Token         string `yaml:"token"`
	TokenHeader   string `yaml:"token_header"`
	EventIDHeader string `yaml:"event_id_header"`
}

// LedgerConfig configures the durable idempotency ledger.
type LedgerConfig struct {
	Driver      string      `yaml:"driver"`
	DSN         string      `yaml:"dsn"`
	Dialect     string      `yaml:"dialect"`
	Table       string      `yaml:"table"`
	AutoMigrate bool        `yaml:"auto_migrate"`
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the Redis ledger driver.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// StorageConfig configures the projection store.
type StorageConfig struct {
	Driver             string `yaml:"driver"`
	DSN                string `yaml:"dsn"`
	Dialect            string `yaml:"dialect"`
	ChargesTable       string `yaml:"charges_table"`
	SubscriptionsTable string `yaml:"subscriptions_table"`
	AutoMigrate        bool   `yaml:"auto_migrate"`
}

// WatermillConfig holds the configuration for Watermill, which handles messaging.
type WatermillConfig struct {
	Driver       string             `yaml:"driver"`
	Drivers      []string           `yaml:"drivers"`
	GoChannel    GoChannelConfig    `yaml:"gochannel"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	NATS         NATSConfig         `yaml:"nats"`
	AMQP         AMQPConfig         `yaml:"amqp"`
	SQL          SQLConfig          `yaml:"sql"`
	HTTP         HTTPConfig         `yaml:"http"`
	RiverQueue   RiverQueueConfig   `yaml:"riverqueue"`
	PublishRetry PublishRetryConfig `yaml:"publish_retry"`
}

// GoChannelConfig holds configuration for the GoChannel pub/sub.
type GoChannelConfig struct {
	OutputChannelBuffer            int64 `yaml:"output_buffer"`
	Persistent                     bool  `yaml:"persistent"`
	BlockPublishUntilSubscriberAck bool  `yaml:"block_publish_until_subscriber_ack"`
}

// KafkaConfig holds configuration for the Kafka pub/sub.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// NATSConfig holds configuration for the NATS pub/sub.
type NATSConfig struct {
	ClusterID string `yaml:"cluster_id"`
	ClientID  string `yaml:"client_id"`
	URL       string `yaml:"url"`
}

// AMQPConfig holds configuration for the AMQP pub/sub.
type AMQPConfig struct {
	URL  string `yaml:"url"`
	Mode string `yaml:"mode"`
}

// SQLConfig holds configuration for the SQL pub/sub.
type SQLConfig struct {
	Driver               string `yaml:"driver"`
	DSN                  string `yaml:"dsn"`
	Dialect              string `yaml:"dialect"`
	InitializeSchema     bool   `yaml:"initialize_schema"`
	AutoInitializeSchema bool   `yaml:"auto_initialize_schema"`
}

// HTTPConfig holds configuration for the HTTP publisher.
type HTTPConfig struct {
	BaseURL string `yaml:"base_url"`
	Mode    string `yaml:"mode"`
}

// RiverQueueConfig holds configuration for the RiverQueue publisher.
type RiverQueueConfig struct {
	Driver      string   `yaml:"driver"`
	DSN         string   `yaml:"dsn"`
	Table       string   `yaml:"table"`
	Queue       string   `yaml:"queue"`
	Kind        string   `yaml:"kind"`
	MaxAttempts int      `yaml:"max_attempts"`
	Priority    int      `yaml:"priority"`
	Tags        []string `yaml:"tags"`
}

type PublishRetryConfig struct {
	Attempts int `yaml:"attempts"`
	DelayMS  int `yaml:"delay_ms"`
}

// LoadConfig loads the full application configuration, including dispatch
// rules, from a YAML file. It expands environment variables, applies defaults,
// and normalizes rules.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, err
	}

	applyDefaults(&cfg.AppConfig)
	normalized, err := normalizeRules(cfg.Rules)
	if err != nil {
		return cfg, err
	}
	cfg.Rules = normalized

	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeoutMS == 0 {
		cfg.Server.ReadTimeoutMS = 5000
	}
	if cfg.Server.WriteTimeoutMS == 0 {
		cfg.Server.WriteTimeoutMS = 10000
	}
	if cfg.Server.IdleTimeoutMS == 0 {
		cfg.Server.IdleTimeoutMS = 60000
	}
	if cfg.Server.ReadHeaderMS == 0 {
		cfg.Server.ReadHeaderMS = 5000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Providers.Woovi.Path == "" {
		cfg.Providers.Woovi.Path = "/webhooks/woovi"
	}
	if cfg.Providers.Woovi.SignatureHeader == "" {
		cfg.Providers.Woovi.SignatureHeader = "X-Woovi-Signature"
	}
	if cfg.Providers.Woovi.EventIDHeader == "" {
		cfg.Providers.Woovi.EventIDHeader = "X-Event-Id"
	}
	if cfg.Providers.Efi.Path == "" {
		cfg.Providers.Efi.Path = "/webhooks/efi"
	}
	if cfg.Providers.Efi.TokenHeader == "" {
		cfg.Providers.Efi.TokenHeader = "X-Webhook-Token"
	}
	if cfg.Providers.Efi.EventIDHeader == "" {
		cfg.Providers.Efi.EventIDHeader = "X-Event-Id"
	}
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = "sqlite"
	}
	if cfg.Ledger.Table == "" {
		cfg.Ledger.Table = "pixhooks_events"
	}
	if cfg.Ledger.Redis.TTLHours == 0 {
		// 90 days keeps the dedup window well past any provider retry horizon.
		cfg.Ledger.Redis.TTLHours = 90 * 24
	}
	if cfg.Storage.ChargesTable == "" {
		cfg.Storage.ChargesTable = "pixhooks_charges"
	}
	if cfg.Storage.SubscriptionsTable == "" {
		cfg.Storage.SubscriptionsTable = "pixhooks_subscriptions"
	}
	if cfg.Watermill.Driver == "" {
		cfg.Watermill.Driver = "gochannel"
	}
	if cfg.Watermill.GoChannel.OutputChannelBuffer == 0 {
		cfg.Watermill.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.Watermill.HTTP.Mode == "" {
		cfg.Watermill.HTTP.Mode = "topic_url"
	}
	if cfg.Watermill.RiverQueue.Table == "" {
		cfg.Watermill.RiverQueue.Table = "river_job"
	}
	if cfg.Watermill.RiverQueue.Queue == "" {
		cfg.Watermill.RiverQueue.Queue = "default"
	}
	if cfg.Watermill.RiverQueue.Kind == "" {
		cfg.Watermill.RiverQueue.Kind = "pixhooks.event"
	}
	if cfg.Watermill.RiverQueue.MaxAttempts == 0 {
		cfg.Watermill.RiverQueue.MaxAttempts = 25
	}
	if cfg.Watermill.PublishRetry.Attempts == 0 {
		cfg.Watermill.PublishRetry.Attempts = 3
	}
	if cfg.Watermill.PublishRetry.DelayMS == 0 {
		cfg.Watermill.PublishRetry.DelayMS = 500
	}
}

func normalizeRules(rules []Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for i := range rules {
		rule := rules[i]
		rule.When = strings.TrimSpace(rule.When)
		emit := make(EmitList, 0, len(rule.Emit))
		for _, topic := range rule.Emit {
			if trimmed := strings.TrimSpace(topic); trimmed != "" {
				emit = append(emit, trimmed)
			}
		}
		rule.Emit = emit
		if rule.When == "" || len(rule.Emit) == 0 {
			return nil, fmt.Errorf("rule %d is missing when or emit", i)
		}
		if len(rule.Drivers) > 0 {
			drivers := make([]string, 0, len(rule.Drivers))
			for _, driver := range rule.Drivers {
				trimmed := strings.TrimSpace(driver)
				if trimmed != "" {
					drivers = append(drivers, trimmed)
				}
			}
			rule.Drivers = drivers
		}
		out = append(out, rule)
	}
	return out, nil
}
