package internal

import (
	"encoding/json"
	"log"

	"github.com/Knetic/govaluate"
)

// Rule routes canonical events to broker topics. When is a govaluate
// expression over the canonical event fields (provider, type, status, target,
// correlation_id, charge_id, amount_cents); Emit lists the topics published
// when it matches, optionally restricted to specific broker drivers.
type Rule struct {
	When    string   `yaml:"when"`
	Emit    EmitList `yaml:"emit"`
	Drivers []string `yaml:"drivers"`
}

// EmitList accepts either a single YAML scalar or a sequence of topics.
type EmitList []string

func (e *EmitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		if single != "" {
			*e = EmitList{single}
		}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*e = EmitList(many)
	return nil
}

// TopicMatch is one matched rule outcome.
type TopicMatch struct {
	Topic   string
	Drivers []string
}

type compiledRule struct {
	emit    []string
	drivers []string
	expr    *govaluate.EvaluableExpression
}

// RulesConfig represents the rule-specific parts of the configuration.
type RulesConfig struct {
	Rules  []Rule `yaml:"rules"`
	Strict bool   `yaml:"rules_strict"`
	Logger *log.Logger
}

type RuleEngine struct {
	rules  []compiledRule
	strict bool
	logger *log.Logger
}

func NewRuleEngine(cfg RulesConfig) (*RuleEngine, error) {
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		expr, err := govaluate.NewEvaluableExpression(rule.When)
		if err != nil {
			return nil, err
		}
		rules = append(rules, compiledRule{emit: rule.Emit, drivers: rule.Drivers, expr: expr})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger("rules")
	}
	return &RuleEngine{rules: rules, strict: cfg.Strict, logger: logger}, nil
}

// Evaluate returns the topics the event should be published to. A rule whose
// expression fails to evaluate (for example, it references an unknown field)
// simply does not match; in strict mode the failure is also logged.
func (r *RuleEngine) Evaluate(event Event) []TopicMatch {
	if len(r.rules) == 0 {
		return nil
	}

	// Payload fields are exposed under their flattened dotted names, usable
	// with govaluate's bracket syntax, e.g. [charge.value] > 1000. Canonical
	// fields win on collision.
	params := make(map[string]interface{})
	if len(event.RawPayload) > 0 {
		var decoded map[string]interface{}
		if err := json.Unmarshal(event.RawPayload, &decoded); err == nil {
			for key, value := range Flatten(decoded) {
				params[key] = value
			}
		}
	}
	params["provider"] = event.Provider
	params["type"] = event.Type
	params["event_id"] = event.EventID
	params["status"] = event.Status
	params["target"] = event.Target
	params["correlation_id"] = event.CorrelationID
	params["charge_id"] = event.ChargeID
	params["amount_cents"] = float64(event.AmountCents)

	matches := make([]TopicMatch, 0, 1)
	for _, rule := range r.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			if r.strict {
				r.logger.Printf("rule eval failed: %v", err)
			}
			continue
		}
		ok, _ := result.(bool)
		if !ok {
			continue
		}
		for _, topic := range rule.emit {
			matches = append(matches, TopicMatch{Topic: topic, Drivers: rule.drivers})
		}
	}
	return matches
}
