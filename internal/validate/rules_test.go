package validate

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredRule_Empty(t *testing.T) {
	rule := NewRequiredRule("required", nil)

	tests := []struct {
		name  string
		value any
		want  Outcome
	}{
		{"nil", nil, Fail},
		{"empty string", "", Fail},
		{"whitespace only", "   \t", Fail},
		{"empty bytes", []byte{}, Fail},
		{"non-empty string", "x", Pass},
		{"zero number", 0, Pass}, // 0 is a value, not absence
		{"false bool", false, Pass},
		{"bytes", []byte{1}, Pass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.Evaluate(tt.value, FormState{}))
		})
	}
}

func TestEmailRule_SkipsEmptyAndNonString(t *testing.T) {
	rule := NewEmailRule("bad email", nil)

	assert.Equal(t, Skip, rule.Evaluate("", FormState{}), "empty string is required's problem")
	assert.Equal(t, Skip, rule.Evaluate(nil, FormState{}))
	assert.Equal(t, Skip, rule.Evaluate(42, FormState{}))
	assert.Equal(t, Fail, rule.Evaluate("not-an-email", FormState{}))
	assert.Equal(t, Fail, rule.Evaluate("a@b", FormState{}))
	assert.Equal(t, Pass, rule.Evaluate("a@b.co", FormState{}))
}

func TestPhoneRule_StripsWhitespace(t *testing.T) {
	rule := NewPhoneRule("bad phone", nil)

	assert.Equal(t, Pass, rule.Evaluate("+46 70 123 45 67", FormState{}))
	assert.Equal(t, Pass, rule.Evaluate("15551234567", FormState{}))
	assert.Equal(t, Fail, rule.Evaluate("0701234567", FormState{}), "leading zero rejected")
	assert.Equal(t, Fail, rule.Evaluate("+4670123456789012345", FormState{}), "over 16 digits")
	assert.Equal(t, Skip, rule.Evaluate("", FormState{}))
}

func TestLengthRules_CountRunes(t *testing.T) {
	min := NewMinLengthRule(3, "too short", nil)
	max := NewMaxLengthRule(5, "too long", nil)

	assert.Equal(t, Fail, min.Evaluate("ab", FormState{}))
	assert.Equal(t, Pass, min.Evaluate("abc", FormState{}))
	assert.Equal(t, Pass, min.Evaluate("åäö", FormState{}), "3 runes, not 6 bytes")
	assert.Equal(t, Pass, max.Evaluate("abcde", FormState{}))
	assert.Equal(t, Fail, max.Evaluate("abcdef", FormState{}))
	assert.Equal(t, Skip, min.Evaluate(12345, FormState{}), "length rules are string-only")
}

func TestPatternRule(t *testing.T) {
	rule := NewPatternRule(regexp.MustCompile(`^\d{4}$`), "want 4 digits", nil)

	assert.Equal(t, Pass, rule.Evaluate("1234", FormState{}))
	assert.Equal(t, Fail, rule.Evaluate("12a4", FormState{}))
	assert.Equal(t, Skip, rule.Evaluate("", FormState{}))
}

func TestPatternRule_NilRegexpIsNoop(t *testing.T) {
	// The compile step maps malformed authored patterns to a nil Re.
	rule := NewPatternRule(nil, "unreachable", nil)
	assert.Equal(t, Skip, rule.Evaluate("anything", FormState{}))
}

func TestConditionGatesEveryKind(t *testing.T) {
	vip := EqualsCondition("ticketType", "vip")

	rules := []Rule{
		NewRequiredRule("m", vip),
		NewEmailRule("m", vip),
		NewPhoneRule("m", vip),
		NewMinLengthRule(100, "m", vip),
		NewMaxLengthRule(0, "m", vip),
		NewPatternRule(regexp.MustCompile(`^never$`), "m", vip),
		NewCustomRule(func(any, FormState) bool { return false }, "m", vip),
	}

	// Condition false: every rule must skip, even ones that would fail.
	regular := FormState{"ticketType": "regular"}
	for _, rule := range rules {
		assert.Equal(t, Skip, rule.Evaluate("value", regular))
	}

	// Condition true: the always-false custom rule now fails.
	assert.Equal(t, Fail, rules[6].Evaluate("value", FormState{"ticketType": "vip"}))
}

func TestConditionalRule_RequiresCondition(t *testing.T) {
	// A conditional rule without a condition never runs its validator.
	called := false
	rule := NewConditionalRule(nil, func(any, FormState) bool {
		called = true
		return false
	}, "m")

	assert.Equal(t, Skip, rule.Evaluate("x", FormState{}))
	assert.False(t, called)
}

func TestCustomRule_SeesWholeFormState(t *testing.T) {
	rule := NewCustomRule(func(value any, form FormState) bool {
		return value == form["password"]
	}, "passwords differ", nil)

	form := FormState{"password": "hunter2"}
	assert.Equal(t, Pass, rule.Evaluate("hunter2", form))
	assert.Equal(t, Fail, rule.Evaluate("hunter3", form))
}
