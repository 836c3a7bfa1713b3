package validate

import (
	"sync"
	"time"
)

// DefaultDebounce is the window within which rapid consecutive value
// changes coalesce into a single auto-validation pass.
const DefaultDebounce = 300 * time.Millisecond

// Session owns the mutable state of one form fill-out: current values,
// current errors, and the dependency-driven re-validation that keeps the
// two consistent while the user types.
//
// Behavior on Set:
//   - the field's own error is cleared immediately (optimistic clear)
//   - every field whose DependsOn includes the changed field is
//     re-validated right away against the new state
//   - a debounced full pass over required-or-populated fields is scheduled
//
// Thread-safety: all methods are safe for concurrent use. The debounced
// pass runs on a timer goroutine and takes the same lock.
type Session struct {
	mu      sync.Mutex
	configs []FieldConfig
	byName  map[string]FieldConfig
	// dependents maps a field name to the configs that must re-validate
	// when that field changes.
	dependents map[string][]FieldConfig

	state  FormState
	errors FormErrors

	debounce time.Duration
	timer    *time.Timer
	onPass   func(FormErrors)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDebounce overrides the auto-validation debounce window. A zero or
// negative duration disables the debounced pass entirely (dependency
// re-validation still happens synchronously).
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

// WithAutoValidateFunc registers a callback invoked with the full error
// map after each debounced pass completes.
func WithAutoValidateFunc(fn func(FormErrors)) SessionOption {
	return func(s *Session) { s.onPass = fn }
}

// NewSession creates an empty session for the given field configs.
func NewSession(configs []FieldConfig, opts ...SessionOption) *Session {
	s := &Session{
		configs:    configs,
		byName:     make(map[string]FieldConfig, len(configs)),
		dependents: make(map[string][]FieldConfig),
		state:      make(FormState),
		errors:     make(FormErrors),
		debounce:   DefaultDebounce,
	}
	for _, cfg := range configs {
		s.byName[cfg.Name] = cfg
		for _, dep := range cfg.DependsOn {
			s.dependents[dep] = append(s.dependents[dep], cfg)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set updates one field's value.
func (s *Session) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state[name] = value
	delete(s.errors, name)
	s.revalidateDependents(name)
	s.scheduleLocked()
}

// SetAll replaces the values of every field present in the given map.
// Dependency re-validation runs once per changed field, against the final
// state.
func (s *Session) SetAll(values FormState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, value := range values {
		s.state[name] = value
		delete(s.errors, name)
	}
	for name := range values {
		s.revalidateDependents(name)
	}
	s.scheduleLocked()
}

// Reset clears all values and errors and cancels any pending pass.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = make(FormState)
	s.errors = make(FormErrors)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Value returns the current value of a field.
func (s *Session) Value(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[name]
}

// State returns a copy of the current form state.
func (s *Session) State() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(FormState, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the current error map.
func (s *Session) Errors() FormErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(FormErrors, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Error returns the current error for one field ("" when clean).
func (s *Session) Error(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[name]
}

// Validate runs the submit-time full pass: every field, immediately, no
// debounce. The session's error map is replaced with the result.
func (s *Session) Validate() FormErrors {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.errors = ValidateForm(s.state, s.configs)
	return s.copyErrorsLocked()
}

// Flush runs a pending debounced pass immediately. No-op when none is
// scheduled. Intended for tests and for "validate before navigating away"
// call sites that cannot wait out the window.
func (s *Session) Flush() {
	s.mu.Lock()
	pending := s.timer != nil
	if pending {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	if pending {
		s.autoPass()
	}
}

// revalidateDependents re-runs validation for every field that declared a
// dependency on changed, using the field's current (possibly untouched)
// value. Caller holds s.mu.
func (s *Session) revalidateDependents(changed string) {
	for _, cfg := range s.dependents[changed] {
		if msg := ValidateField(s.state[cfg.Name], cfg, s.state); msg != "" {
			s.errors[cfg.Name] = msg
		} else {
			delete(s.errors, cfg.Name)
		}
	}
}

// scheduleLocked arms (or re-arms) the debounce timer. Caller holds s.mu.
func (s *Session) scheduleLocked() {
	if s.debounce <= 0 {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		s.autoPass()
	})
}

// autoPass is the debounced pass: only fields that are required or
// currently hold a value are validated, so a half-filled form does not
// light up errors on fields the user has not reached yet.
func (s *Session) autoPass() {
	s.mu.Lock()
	for _, cfg := range s.configs {
		value := s.state[cfg.Name]
		if !cfg.Required && IsEmpty(value) {
			continue
		}
		if msg := ValidateField(value, cfg, s.state); msg != "" {
			s.errors[cfg.Name] = msg
		} else {
			delete(s.errors, cfg.Name)
		}
	}
	snapshot := s.copyErrorsLocked()
	onPass := s.onPass
	s.mu.Unlock()

	if onPass != nil {
		onPass(snapshot)
	}
}

func (s *Session) copyErrorsLocked() FormErrors {
	out := make(FormErrors, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}
