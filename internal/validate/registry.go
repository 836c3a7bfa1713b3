package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Registry resolves validator and custom-check names referenced by
// authored form schemas. Schemas are data files, so they can only name a
// predicate; the registry binds the name to code at load time.
//
// A zero Registry is not usable; NewRegistry returns one pre-populated
// with the built-in validators and business checks.
type Registry struct {
	validators map[string]Validator
	checks     map[string]CustomCheck
}

// NewRegistry returns a registry holding the built-in entries.
func NewRegistry() *Registry {
	r := &Registry{
		validators: make(map[string]Validator),
		checks:     make(map[string]CustomCheck),
	}
	r.RegisterValidator("age", ageValidator)
	r.RegisterValidator("positiveNumber", positiveNumberValidator)
	r.RegisterValidator("currency", currencyValidator)
	r.RegisterValidator("date", dateValidator)
	r.RegisterValidator("futureDate", futureDateValidator)
	r.RegisterValidator("pastDate", pastDateValidator)
	r.RegisterCheck("ageCategory", ageCategoryCheck)
	r.RegisterCheck("salaryForPosition", salaryForPositionCheck)
	r.RegisterCheck("dateRange", dateRangeCheck)
	r.RegisterCheck("passwordMatch", passwordMatchCheck)
	return r
}

// RegisterValidator adds or replaces a named predicate.
func (r *Registry) RegisterValidator(name string, fn Validator) {
	r.validators[name] = fn
}

// RegisterCheck adds or replaces a named custom check.
func (r *Registry) RegisterCheck(name string, fn CustomCheck) {
	r.checks[name] = fn
}

// Validator looks up a named predicate.
func (r *Registry) Validator(name string) (Validator, bool) {
	fn, ok := r.validators[name]
	return fn, ok
}

// Check looks up a named custom check.
func (r *Registry) Check(name string) (CustomCheck, bool) {
	fn, ok := r.checks[name]
	return fn, ok
}

// Built-in validators. All of them skip non-string values by passing:
// value-shape policing belongs to the typed rules, not to predicates.

func ageValidator(value any, _ FormState) bool {
	n, ok := intOf(value)
	return ok && n >= 0 && n <= 120
}

func positiveNumberValidator(value any, _ FormState) bool {
	f, ok := floatOf(value)
	return ok && f > 0
}

var currencyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

func currencyValidator(value any, _ FormState) bool {
	s, ok := value.(string)
	return ok && currencyPattern.MatchString(s)
}

func dateValidator(value any, _ FormState) bool {
	_, ok := dateOf(value)
	return ok
}

func futureDateValidator(value any, _ FormState) bool {
	t, ok := dateOf(value)
	return ok && t.After(time.Now())
}

func pastDateValidator(value any, _ FormState) bool {
	t, ok := dateOf(value)
	return ok && t.Before(time.Now())
}

// Business checks restored from the reference configurations. Field names
// they consult (category, position, startDate, password) are part of the
// check's contract; schemas that use them must provide those fields.

func ageCategoryCheck(value any, form FormState) string {
	n, ok := intOf(value)
	if !ok {
		return ""
	}
	category, _ := form["category"].(string)
	switch {
	case category == "child" && n >= 18:
		return "Age must be under 18 for child category"
	case category == "adult" && n < 18:
		return "Age must be 18 or older for adult category"
	}
	return ""
}

// minSalaries is the floor per position for salaryForPosition.
var minSalaries = map[string]float64{
	"intern":  1000,
	"junior":  3000,
	"senior":  5000,
	"manager": 8000,
}

func salaryForPositionCheck(value any, form FormState) string {
	salary, ok := floatOf(value)
	if !ok {
		return ""
	}
	position, _ := form["position"].(string)
	if min, known := minSalaries[position]; known && salary < min {
		return fmt.Sprintf("Minimum salary for %s is $%.0f", position, min)
	}
	return ""
}

func dateRangeCheck(value any, form FormState) string {
	end, ok := dateOf(value)
	if !ok {
		return ""
	}
	start, ok := dateOf(form["startDate"])
	if !ok {
		return ""
	}
	if !end.After(start) {
		return "End date must be after start date"
	}
	return ""
}

func passwordMatchCheck(value any, form FormState) string {
	s, _ := value.(string)
	password, _ := form["password"].(string)
	if s != password {
		return "Passwords do not match"
	}
	return ""
}

// Coercion helpers. Form values arrive as strings from text inputs and as
// native numbers from JSON payloads; predicates accept both.

func intOf(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func floatOf(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// dateFormats are tried in order for string date values.
var dateFormats = []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"}

func dateOf(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
