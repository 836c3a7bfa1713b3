package validate

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateField_FirstFailureWins(t *testing.T) {
	secondCalls := 0
	cfg := FieldConfig{
		Name: "age",
		Rules: []Rule{
			NewMinLengthRule(3, "first message", nil),
			NewCustomRule(func(any, FormState) bool {
				secondCalls++
				return false
			}, "second message", nil),
		},
	}

	msg := ValidateField("ab", cfg, FormState{})
	assert.Equal(t, "first message", msg)
	assert.Zero(t, secondCalls, "later rules must not be evaluated after a failure")
}

func TestValidateField_NoRulesIsValid(t *testing.T) {
	cfg := FieldConfig{Name: "notes"}
	assert.Empty(t, ValidateField("", cfg, FormState{}))
	assert.Empty(t, ValidateField(nil, cfg, FormState{}))
}

func TestValidateField_CustomCheckRunsAfterRules(t *testing.T) {
	cfg := FieldConfig{
		Name:  "username",
		Rules: []Rule{NewRequiredRule("required", nil)},
		Custom: func(value any, _ FormState) string {
			if value == "root" {
				return "username is reserved"
			}
			return ""
		},
	}

	// Declarative failure wins; custom check not reached.
	assert.Equal(t, "required", ValidateField("", cfg, FormState{}))
	// Declarative pass, custom veto.
	assert.Equal(t, "username is reserved", ValidateField("root", cfg, FormState{}))
	assert.Empty(t, ValidateField("alice", cfg, FormState{}))
}

// Mirrors the age field scenario: required first, then a custom >=18 check.
func TestValidateField_AgeScenario(t *testing.T) {
	cfg := FieldConfig{
		Name: "age",
		Rules: []Rule{
			NewRequiredRule("Age is required", nil),
			NewCustomRule(func(value any, _ FormState) bool {
				s, _ := value.(string)
				n, err := strconv.Atoi(s)
				return err == nil && n >= 18
			}, "Must be 18 or older", nil),
		},
	}

	assert.Equal(t, "Must be 18 or older", ValidateField("17", cfg, FormState{}))
	assert.Equal(t, "Age is required", ValidateField("", cfg, FormState{}), "first rule wins")
	assert.Empty(t, ValidateField("25", cfg, FormState{}))
}

func TestValidateForm_IndependentFields(t *testing.T) {
	configs := []FieldConfig{
		{Name: "email", Rules: []Rule{NewRequiredRule("email required", nil), NewEmailRule("bad email", nil)}},
		{Name: "phone", Rules: []Rule{NewPhoneRule("bad phone", nil)}},
		{Name: "notes"},
	}
	form := FormState{"email": "nope", "phone": "0"}

	errs := ValidateForm(form, configs)
	require.Len(t, errs, 2, "one failing field must not mask another")
	assert.Equal(t, "bad email", errs["email"])
	assert.Equal(t, "bad phone", errs["phone"])
}

func TestConditions(t *testing.T) {
	form := FormState{"ticketType": "vip", "email": "a@b.co"}

	assert.True(t, EqualsCondition("ticketType", "vip")(form))
	assert.False(t, EqualsCondition("ticketType", "regular")(form))
	assert.True(t, NotEqualsCondition("ticketType", "regular")(form))
	assert.True(t, PresentCondition("email")(form))
	assert.False(t, PresentCondition("missing")(form))
}

func TestConditionalRequired(t *testing.T) {
	// "Company name required only for business customers."
	cfg := FieldConfig{
		Name: "company",
		Rules: []Rule{
			NewRequiredRule("Company name is required", EqualsCondition("customerType", "business")),
		},
	}

	assert.Empty(t, ValidateField("", cfg, FormState{"customerType": "private"}))
	assert.Equal(t, "Company name is required",
		ValidateField("", cfg, FormState{"customerType": "business"}))
	assert.Empty(t, ValidateField("ACME", cfg, FormState{"customerType": "business"}))
}
