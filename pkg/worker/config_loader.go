package worker

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Watermill SubscriberConfig `yaml:"watermill"`
}

// RulesConfig mirrors the dispatch rules section of the gateway config.
// A rule's emit field accepts either a single topic or a list, so the worker
// parses both shapes when deriving its subscription set.
type RulesConfig struct {
	Rules []struct {
		Emit emitList `yaml:"emit"`
	} `yaml:"rules"`
}

type emitList []string

func (e *emitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		if single != "" {
			*e = emitList{single}
		}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*e = emitList(many)
	return nil
}

func LoadSubscriberConfig(path string) (SubscriberConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg.Watermill, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg.Watermill, err
	}
	applySubscriberDefaults(&cfg.Watermill)
	return cfg.Watermill, nil
}

// LoadTopicsFromConfig returns the deduplicated topic set that the gateway's
// dispatch rules can publish to, so a worker pointed at the same config file
// subscribes to everything the gateway emits.
func LoadTopicsFromConfig(path string) ([]string, error) {
	var cfg RulesConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	var topics []string
	seen := make(map[string]struct{})
	for _, rule := range cfg.Rules {
		for _, topic := range rule.Emit {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

func applySubscriberDefaults(cfg *SubscriberConfig) {
	if cfg.Driver == "" && len(cfg.Drivers) == 0 {
		cfg.Driver = "gochannel"
	}
	if cfg.GoChannel.OutputChannelBuffer == 0 {
		cfg.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.NATS.ClientIDSuffix == "" {
		cfg.NATS.ClientIDSuffix = "-worker"
	}
}
