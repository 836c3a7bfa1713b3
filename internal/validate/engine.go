package validate

// FieldConfig is the compiled validation configuration for one field.
//
// Rules are evaluated in order with first-failure-wins semantics; Custom,
// when set, runs only after every declarative rule has passed and may
// still veto the value.
type FieldConfig struct {
	Name      string
	Required  bool     // participates in debounced auto-validation even when empty
	Rules     []Rule   // declaration order is the evaluation order
	Custom    CustomCheck
	DependsOn []string // fields whose change re-triggers this field's validation
}

// ValidateField evaluates a single field against the current form state.
// It returns the first failing rule's message, or "" when the value is
// acceptable. A field with no rules and no custom check is always valid.
func ValidateField(value any, cfg FieldConfig, form FormState) string {
	for _, rule := range cfg.Rules {
		switch rule.Evaluate(value, form) {
		case Fail:
			return rule.Message()
		case Pass, Skip:
			// next rule
		}
	}
	if cfg.Custom != nil {
		if msg := cfg.Custom(value, form); msg != "" {
			return msg
		}
	}
	return ""
}

// ValidateForm evaluates every field independently and collects the
// failures. Fields are evaluated in the order configs are given, but no
// field short-circuits another.
func ValidateForm(form FormState, configs []FieldConfig) FormErrors {
	errs := make(FormErrors)
	for _, cfg := range configs {
		if msg := ValidateField(form[cfg.Name], cfg, form); msg != "" {
			errs[cfg.Name] = msg
		}
	}
	return errs
}

// EqualsCondition builds a condition that holds when the named field's
// string form equals want. Used for conditional-required configurations
// ("required only if ticketType == vip").
func EqualsCondition(field, want string) Condition {
	return func(form FormState) bool {
		s, _ := form[field].(string)
		return s == want
	}
}

// NotEqualsCondition is the negation of EqualsCondition.
func NotEqualsCondition(field, want string) Condition {
	return func(form FormState) bool {
		s, _ := form[field].(string)
		return s != want
	}
}

// PresentCondition holds when the named field has a non-empty value.
func PresentCondition(field string) Condition {
	return func(form FormState) bool {
		return !IsEmpty(form[field])
	}
}
