package validate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passwordConfigs() []FieldConfig {
	return []FieldConfig{
		{
			Name:     "password",
			Required: true,
			Rules:    []Rule{NewRequiredRule("Password is required", nil), NewMinLengthRule(8, "At least 8 characters", nil)},
		},
		{
			Name:      "confirmPassword",
			Required:  true,
			DependsOn: []string{"password"},
			Rules: []Rule{
				NewRequiredRule("Confirm your password", nil),
				NewCustomRule(func(value any, form FormState) bool {
					return value == form["password"]
				}, "Passwords do not match", nil),
			},
		},
	}
}

func TestSession_DependencyPropagation(t *testing.T) {
	s := NewSession(passwordConfigs(), WithDebounce(0))

	s.Set("password", "correct horse")
	s.Set("confirmPassword", "correct horse")
	assert.Empty(t, s.Error("confirmPassword"))

	// Editing password alone must surface the mismatch on confirmPassword.
	s.Set("password", "battery staple")
	assert.Equal(t, "Passwords do not match", s.Error("confirmPassword"))

	// And fixing password clears it again, still without touching confirm.
	s.Set("password", "correct horse")
	assert.Empty(t, s.Error("confirmPassword"))
}

func TestSession_OptimisticClearOnSet(t *testing.T) {
	s := NewSession(passwordConfigs(), WithDebounce(0))

	errs := s.Validate()
	require.Equal(t, "Password is required", errs["password"])

	// Typing into the field clears its error before any re-validation.
	s.Set("password", "x")
	assert.Empty(t, s.Error("password"))
}

func TestSession_DebouncedPassCoalesces(t *testing.T) {
	var mu sync.Mutex
	passes := 0
	s := NewSession(passwordConfigs(),
		WithDebounce(20*time.Millisecond),
		WithAutoValidateFunc(func(FormErrors) {
			mu.Lock()
			passes++
			mu.Unlock()
		}))

	// Rapid consecutive edits within the window collapse into one pass.
	s.Set("password", "a")
	s.Set("password", "ab")
	s.Set("password", "abc")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return passes == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, passes, "no trailing extra passes")
	mu.Unlock()
}

func TestSession_AutoPassSkipsUntouchedOptionalFields(t *testing.T) {
	configs := []FieldConfig{
		{Name: "email", Rules: []Rule{NewEmailRule("bad email", nil)}},
		{Name: "name", Required: true, Rules: []Rule{NewRequiredRule("name required", nil)}},
	}
	s := NewSession(configs, WithDebounce(10*time.Millisecond))

	s.Set("email", "")
	s.Flush()

	errs := s.Errors()
	assert.Empty(t, errs["email"], "empty optional field stays quiet")
	assert.Equal(t, "name required", errs["name"], "required field validated even when untouched")
}

func TestSession_Flush(t *testing.T) {
	s := NewSession(passwordConfigs(), WithDebounce(time.Hour))

	s.Set("password", "short")
	s.Flush()
	assert.Equal(t, "At least 8 characters", s.Error("password"))

	// Flush with nothing pending is a no-op.
	s.Flush()
}

func TestSession_Reset(t *testing.T) {
	s := NewSession(passwordConfigs(), WithDebounce(0))

	s.Set("password", "short")
	s.Validate()
	require.NotEmpty(t, s.Errors())

	s.Reset()
	assert.Empty(t, s.Errors())
	assert.Empty(t, s.State())
	assert.Nil(t, s.Value("password"))
}

func TestSession_SetAll(t *testing.T) {
	s := NewSession(passwordConfigs(), WithDebounce(0))

	s.Set("confirmPassword", "mismatch")
	s.SetAll(FormState{"password": "hunter22222", "confirmPassword": "hunter22222"})

	assert.Empty(t, s.Error("confirmPassword"))
	assert.Equal(t, "hunter22222", s.Value("password"))
}

func TestSession_ConcurrentSets(t *testing.T) {
	s := NewSession(passwordConfigs(), WithDebounce(5*time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set("password", "abcdefghij")
			s.Errors()
		}()
	}
	wg.Wait()
	s.Flush()
	assert.Empty(t, s.Error("password"))
}
