package internal

import "testing"

// TestRuleEngineEvaluate tests that the rule engine correctly evaluates rules
// over the canonical event fields.
func TestRuleEngineEvaluate(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "status == \"COMPLETED\"", Emit: EmitList{"payments.completed"}},
			{When: "status == \"EXPIRED\" && provider == \"woovi\"", Emit: EmitList{"payments.expired"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	event := Event{
		Provider: "woovi",
		Type:     "OPENPIX:CHARGE_COMPLETED",
		Status:   "COMPLETED",
	}

	matches := engine.Evaluate(event)
	if len(matches) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(matches))
	}
	if matches[0].Topic != "payments.completed" {
		t.Fatalf("expected topic payments.completed, got %q", matches[0].Topic)
	}
}

// TestRuleEngineAmountThreshold tests numeric comparison on the amount field.
func TestRuleEngineAmountThreshold(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "amount_cents >= 100000", Emit: EmitList{"payments.large"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	if matches := engine.Evaluate(Event{AmountCents: 250000}); len(matches) != 1 {
		t.Fatalf("expected large payment to match, got %d", len(matches))
	}
	if matches := engine.Evaluate(Event{AmountCents: 500}); len(matches) != 0 {
		t.Fatalf("expected small payment not to match, got %d", len(matches))
	}
}

// TestRuleEngineEmitList tests that one matching rule can emit multiple topics.
func TestRuleEngineEmitList(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "provider == \"efi\"", Emit: EmitList{"payments.efi", "payments.audit"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(Event{Provider: "efi"})
	if len(matches) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(matches))
	}
	if matches[0].Topic != "payments.efi" || matches[1].Topic != "payments.audit" {
		t.Fatalf("unexpected topics: %v", matches)
	}
}

// TestRuleEngineWithDrivers tests that the rule engine correctly handles a rule with drivers specified.
func TestRuleEngineWithDrivers(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "status == \"COMPLETED\"", Emit: EmitList{"payments.completed"}, Drivers: []string{"amqp", "http"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(Event{Status: "COMPLETED"})
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if len(matches[0].Drivers) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(matches[0].Drivers))
	}
}

// TestRuleEnginePayloadField tests bracket access to flattened payload fields.
func TestRuleEnginePayloadField(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "[charge.value] > 1000", Emit: EmitList{"payments.large"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	event := Event{
		Provider:   "woovi",
		RawPayload: []byte(`{"charge":{"value":5500}}`),
	}
	if matches := engine.Evaluate(event); len(matches) != 1 {
		t.Fatalf("expected payload field rule to match, got %d", len(matches))
	}
}

// TestRuleEngineMissingField tests that a rule referencing an absent field
// does not match instead of failing the whole evaluation.
func TestRuleEngineMissingField(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "[charge.value] > 1000", Emit: EmitList{"never"}},
			{When: "provider == \"woovi\"", Emit: EmitList{"payments.woovi"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(Event{Provider: "woovi", RawPayload: []byte(`{}`)})
	if len(matches) != 1 || matches[0].Topic != "payments.woovi" {
		t.Fatalf("expected only the provider rule to match, got %v", matches)
	}
}

// TestRuleEngineInvalidExpression tests that compilation fails fast on a bad expression.
func TestRuleEngineInvalidExpression(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "status ==", Emit: EmitList{"broken"}},
		},
	}

	if _, err := NewRuleEngine(cfg); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
}
