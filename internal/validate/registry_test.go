package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"age", "positiveNumber", "currency", "date", "futureDate", "pastDate"} {
		_, ok := r.Validator(name)
		assert.True(t, ok, "missing builtin validator %q", name)
	}
	for _, name := range []string{"ageCategory", "salaryForPosition", "dateRange", "passwordMatch"} {
		_, ok := r.Check(name)
		assert.True(t, ok, "missing builtin check %q", name)
	}
	_, ok := r.Validator("nope")
	assert.False(t, ok)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.RegisterValidator("even", func(value any, _ FormState) bool {
		n, ok := intOf(value)
		return ok && n%2 == 0
	})

	fn, ok := r.Validator("even")
	require.True(t, ok)
	assert.True(t, fn("4", nil))
	assert.False(t, fn("3", nil))
}

func TestAgeValidator(t *testing.T) {
	assert.True(t, ageValidator("0", nil))
	assert.True(t, ageValidator("120", nil))
	assert.True(t, ageValidator(42, nil))
	assert.False(t, ageValidator("121", nil))
	assert.False(t, ageValidator("-1", nil))
	assert.False(t, ageValidator("abc", nil))
}

func TestCurrencyValidator(t *testing.T) {
	assert.True(t, currencyValidator("10", nil))
	assert.True(t, currencyValidator("10.50", nil))
	assert.False(t, currencyValidator("10.505", nil))
	assert.False(t, currencyValidator("-10", nil))
	assert.False(t, currencyValidator(10.5, nil), "currency shape is a string concern")
}

func TestDateValidators(t *testing.T) {
	assert.True(t, dateValidator("2024-06-01", nil))
	assert.True(t, dateValidator(time.Now(), nil))
	assert.False(t, dateValidator("not a date", nil))

	past := time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	assert.True(t, pastDateValidator(past, nil))
	assert.False(t, pastDateValidator(future, nil))
	assert.True(t, futureDateValidator(future, nil))
	assert.False(t, futureDateValidator(past, nil))
}

func TestAgeCategoryCheck(t *testing.T) {
	assert.Equal(t, "Age must be under 18 for child category",
		ageCategoryCheck("18", FormState{"category": "child"}))
	assert.Equal(t, "Age must be 18 or older for adult category",
		ageCategoryCheck("17", FormState{"category": "adult"}))
	assert.Empty(t, ageCategoryCheck("17", FormState{"category": "child"}))
	assert.Empty(t, ageCategoryCheck("17", FormState{}), "unknown category passes")
}

func TestSalaryForPositionCheck(t *testing.T) {
	assert.Equal(t, "Minimum salary for senior is $5000",
		salaryForPositionCheck("4000", FormState{"position": "senior"}))
	assert.Empty(t, salaryForPositionCheck("5000", FormState{"position": "senior"}))
	assert.Empty(t, salaryForPositionCheck("1", FormState{"position": "freelancer"}))
}

func TestDateRangeCheck(t *testing.T) {
	form := FormState{"startDate": "2024-06-01"}
	assert.Equal(t, "End date must be after start date", dateRangeCheck("2024-05-31", form))
	assert.Equal(t, "End date must be after start date", dateRangeCheck("2024-06-01", form))
	assert.Empty(t, dateRangeCheck("2024-06-02", form))
	assert.Empty(t, dateRangeCheck("2024-06-02", FormState{}), "no start date, nothing to compare")
}

func TestPasswordMatchCheck(t *testing.T) {
	form := FormState{"password": "hunter2"}
	assert.Empty(t, passwordMatchCheck("hunter2", form))
	assert.Equal(t, "Passwords do not match", passwordMatchCheck("hunter3", form))
}
