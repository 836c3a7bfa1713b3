package form

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fieldwork/formsync/internal/validate"
)

// Compiler turns wire-level field specs into the validation engine's
// typed configs, resolving validator names against a registry.
type Compiler struct {
	registry *validate.Registry
	log      *slog.Logger
}

// NewCompiler creates a compiler over the given registry. A nil registry
// gets the built-in one.
func NewCompiler(registry *validate.Registry, log *slog.Logger) *Compiler {
	if registry == nil {
		registry = validate.NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Compiler{registry: registry, log: log}
}

// Compile produces one validate.FieldConfig per field, preserving field
// and rule order. Malformed rules (bad regex, non-numeric length,
// unresolvable validator name) compile to no-ops with a warning: a broken
// authored rule must never make a form unusable.
func (c *Compiler) Compile(f *Form) []validate.FieldConfig {
	configs := make([]validate.FieldConfig, 0, len(f.Fields))
	for _, fs := range f.Fields {
		configs = append(configs, c.compileField(fs))
	}
	return configs
}

func (c *Compiler) compileField(fs FieldSpec) validate.FieldConfig {
	cfg := validate.FieldConfig{
		Name:      fs.Name,
		Required:  fs.Required,
		DependsOn: fs.DependsOn,
	}

	for _, rs := range fs.Validation {
		rule, ok := c.compileRule(fs.Name, rs)
		if !ok {
			continue
		}
		cfg.Rules = append(cfg.Rules, rule)
		if rs.Type == "required" {
			cfg.Required = true
		}
	}

	if fs.CustomValidator != "" {
		check, ok := c.registry.Check(fs.CustomValidator)
		if !ok {
			c.log.Warn("unknown custom validator, skipping",
				"field", fs.Name, "validator", fs.CustomValidator)
		} else {
			cfg.Custom = check
		}
	}
	return cfg
}

func (c *Compiler) compileRule(field string, rs RuleSpec) (validate.Rule, bool) {
	cond, err := ParseCondition(rs.Condition)
	if err != nil {
		c.log.Warn("malformed rule condition, skipping rule",
			"field", field, "condition", rs.Condition, "error", err)
		return nil, false
	}

	switch rs.Type {
	case "required":
		return validate.NewRequiredRule(rs.Message, cond), true
	case "email":
		return validate.NewEmailRule(rs.Message, cond), true
	case "phone":
		return validate.NewPhoneRule(rs.Message, cond), true
	case "minLength":
		n, ok := ruleInt(rs.Value)
		if !ok {
			c.log.Warn("minLength rule without numeric value, skipping", "field", field)
			return nil, false
		}
		return validate.NewMinLengthRule(n, rs.Message, cond), true
	case "maxLength":
		n, ok := ruleInt(rs.Value)
		if !ok {
			c.log.Warn("maxLength rule without numeric value, skipping", "field", field)
			return nil, false
		}
		return validate.NewMaxLengthRule(n, rs.Message, cond), true
	case "pattern":
		src, _ := rs.Value.(string)
		re, err := regexp.Compile(src)
		if err != nil || src == "" {
			// Rule does not apply rather than crash: keep a no-op so
			// rule ordering stays as authored.
			c.log.Warn("malformed pattern, rule disabled", "field", field, "pattern", src)
			re = nil
		}
		return validate.NewPatternRule(re, rs.Message, cond), true
	case "custom":
		fn, ok := c.registry.Validator(rs.Validator)
		if !ok {
			c.log.Warn("unknown validator, skipping rule", "field", field, "validator", rs.Validator)
			return nil, false
		}
		return validate.NewCustomRule(fn, rs.Message, cond), true
	case "conditional":
		fn, ok := c.registry.Validator(rs.Validator)
		if !ok {
			c.log.Warn("unknown validator, skipping rule", "field", field, "validator", rs.Validator)
			return nil, false
		}
		if cond == nil {
			c.log.Warn("conditional rule without condition, skipping", "field", field)
			return nil, false
		}
		return validate.NewConditionalRule(cond, fn, rs.Message), true
	default:
		c.log.Warn("unknown rule type, skipping", "field", field, "type", rs.Type)
		return nil, false
	}
}

// ruleInt coerces a rule parameter to a non-negative int. YAML gives int,
// JSON gives float64.
func ruleInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 0
	case int64:
		return int(n), n >= 0
	case float64:
		return int(n), n >= 0 && n == float64(int(n))
	}
	return 0, false
}

// ParseCondition compiles a condition expression into a predicate.
//
// Grammar (one clause, no boolean connectives):
//
//	<field> == <value>   rule applies when the field equals value
//	<field> != <value>   rule applies when the field differs from value
//	<field>              rule applies when the field is non-empty
//
// An empty expression returns a nil Condition (rule always applies).
func ParseCondition(expr string) (validate.Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	if field, value, found := strings.Cut(expr, "=="); found {
		field, value, err := conditionOperands(field, value)
		if err != nil {
			return nil, err
		}
		return validate.EqualsCondition(field, value), nil
	}
	if field, value, found := strings.Cut(expr, "!="); found {
		field, value, err := conditionOperands(field, value)
		if err != nil {
			return nil, err
		}
		return validate.NotEqualsCondition(field, value), nil
	}

	if strings.ContainsAny(expr, " \t") {
		return nil, fmt.Errorf("cannot parse condition %q", expr)
	}
	return validate.PresentCondition(expr), nil
}

func conditionOperands(field, value string) (string, string, error) {
	field = strings.TrimSpace(field)
	value = strings.Trim(strings.TrimSpace(value), `'"`)
	if field == "" || value == "" {
		return "", "", fmt.Errorf("condition needs a field and a value")
	}
	return field, value, nil
}
