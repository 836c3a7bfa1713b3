package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// FormState is the live mapping of field name to current value during a
// single fill-out session. Values are strings, numbers, bools, opaque file
// references, or nil.
type FormState map[string]any

// FormErrors maps a field name to a single error message. A field never
// carries more than one message: the first failing rule wins.
type FormErrors map[string]string

// Validator is a predicate over a field value and the whole form state.
// Returning false fails the rule.
type Validator func(value any, form FormState) bool

// Condition gates whether a rule applies for the current form state.
type Condition func(form FormState) bool

// CustomCheck runs after a field's declarative rules have all passed.
// A non-empty return value becomes the field's error.
type CustomCheck func(value any, form FormState) string

// Outcome classifies the evaluation of a single rule.
type Outcome int

const (
	// Pass means the rule was evaluated and the value is acceptable.
	Pass Outcome = iota
	// Skip means the rule does not apply for the current form state
	// (gating condition false, or value shape outside the rule's domain).
	Skip
	// Fail means the rule was evaluated and rejected the value.
	Fail
)

// Rule is one compiled validation check.
//
// Evaluate must never panic on odd value shapes; a rule that cannot
// meaningfully apply to the given value returns Skip.
type Rule interface {
	Evaluate(value any, form FormState) Outcome
	Message() string
}

// baseRule carries the parts shared by every rule kind.
type baseRule struct {
	message   string
	condition Condition
}

func (r baseRule) Message() string { return r.message }

// gated reports whether the rule's condition (if any) holds.
func (r baseRule) gated(form FormState) bool {
	return r.condition != nil && !r.condition(form)
}

// RequiredRule fails on nil, empty string after trimming, or an empty
// file reference.
type RequiredRule struct {
	baseRule
}

// NewRequiredRule creates a required rule with the given message and
// optional gating condition (nil means always applies).
func NewRequiredRule(message string, cond Condition) RequiredRule {
	return RequiredRule{baseRule{message: message, condition: cond}}
}

func (r RequiredRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) {
		return Skip
	}
	if IsEmpty(value) {
		return Fail
	}
	return Pass
}

// emailPattern matches anything of the shape local@domain.tld with no
// whitespace. Deliberately loose; the server is the authority.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailRule checks the email shape of non-empty string values. Empty or
// non-string values are skipped: required-ness is a separate rule.
type EmailRule struct {
	baseRule
}

func NewEmailRule(message string, cond Condition) EmailRule {
	return EmailRule{baseRule{message: message, condition: cond}}
}

func (r EmailRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) {
		return Skip
	}
	s, ok := stringValue(value)
	if !ok || s == "" {
		return Skip
	}
	if !emailPattern.MatchString(s) {
		return Fail
	}
	return Pass
}

// phonePattern matches an optional leading +, a non-zero first digit, and
// up to 15 further digits (E.164 upper bound).
var phonePattern = regexp.MustCompile(`^[+]?[1-9][\d]{0,15}$`)

// PhoneRule checks phone number shape after stripping whitespace.
type PhoneRule struct {
	baseRule
}

func NewPhoneRule(message string, cond Condition) PhoneRule {
	return PhoneRule{baseRule{message: message, condition: cond}}
}

func (r PhoneRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) {
		return Skip
	}
	s, ok := stringValue(value)
	if !ok || s == "" {
		return Skip
	}
	stripped := strings.Join(strings.Fields(s), "")
	if !phonePattern.MatchString(stripped) {
		return Fail
	}
	return Pass
}

// MinLengthRule fails string values shorter than N runes.
type MinLengthRule struct {
	baseRule
	N int
}

func NewMinLengthRule(n int, message string, cond Condition) MinLengthRule {
	return MinLengthRule{baseRule{message: message, condition: cond}, n}
}

func (r MinLengthRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) {
		return Skip
	}
	s, ok := stringValue(value)
	if !ok || s == "" {
		return Skip
	}
	if utf8.RuneCountInString(s) < r.N {
		return Fail
	}
	return Pass
}

// MaxLengthRule fails string values longer than N runes.
type MaxLengthRule struct {
	baseRule
	N int
}

func NewMaxLengthRule(n int, message string, cond Condition) MaxLengthRule {
	return MaxLengthRule{baseRule{message: message, condition: cond}, n}
}

func (r MaxLengthRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) {
		return Skip
	}
	s, ok := stringValue(value)
	if !ok || s == "" {
		return Skip
	}
	if utf8.RuneCountInString(s) > r.N {
		return Fail
	}
	return Pass
}

// PatternRule tests string values against a compiled regular expression.
// A nil Re (the compile step maps malformed authored patterns to nil)
// makes the rule a no-op.
type PatternRule struct {
	baseRule
	Re *regexp.Regexp
}

func NewPatternRule(re *regexp.Regexp, message string, cond Condition) PatternRule {
	return PatternRule{baseRule{message: message, condition: cond}, re}
}

func (r PatternRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) || r.Re == nil {
		return Skip
	}
	s, ok := stringValue(value)
	if !ok || s == "" {
		return Skip
	}
	if !r.Re.MatchString(s) {
		return Fail
	}
	return Pass
}

// CustomRule delegates to an arbitrary predicate.
type CustomRule struct {
	baseRule
	Fn Validator
}

func NewCustomRule(fn Validator, message string, cond Condition) CustomRule {
	return CustomRule{baseRule{message: message, condition: cond}, fn}
}

func (r CustomRule) Evaluate(value any, form FormState) Outcome {
	if r.gated(form) || r.Fn == nil {
		return Skip
	}
	if !r.Fn(value, form) {
		return Fail
	}
	return Pass
}

// ConditionalRule is CustomRule with a mandatory gating condition. It
// exists as its own kind so authored configurations can state the intent
// explicitly; the skip semantics are identical.
type ConditionalRule struct {
	baseRule
	Fn Validator
}

func NewConditionalRule(cond Condition, fn Validator, message string) ConditionalRule {
	return ConditionalRule{baseRule{message: message, condition: cond}, fn}
}

func (r ConditionalRule) Evaluate(value any, form FormState) Outcome {
	if r.condition == nil || r.gated(form) || r.Fn == nil {
		return Skip
	}
	if !r.Fn(value, form) {
		return Fail
	}
	return Pass
}

// IsEmpty reports whether a value counts as absent for required checks:
// nil, a string that trims to "", or an empty byte slice (file-like
// values surface as raw bytes or a reference string).
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	default:
		return false
	}
}

// stringValue returns the NFC-normalized string form of a value, and
// whether the value is a string at all. Format and length rules only
// apply to strings; everything else is the concern of custom rules.
func stringValue(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	return norm.NFC.String(s), true
}
