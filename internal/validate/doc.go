// Package validate implements the declarative field validation engine.
//
// A field carries an ordered list of rules. Rules are evaluated in
// declaration order and the first failing rule wins: its message becomes
// the field's error and later rules are not evaluated. A rule with a
// condition that does not hold for the current form state is skipped,
// never failed.
//
// Rules are a tagged union of concrete types (RequiredRule, PatternRule,
// MinLengthRule, ...) rather than a loosely typed {type, value} pair, so
// the evaluator never type-switches on rule parameters at runtime.
//
// Session adds the stateful layer on top of the pure evaluator: a live
// form state, per-field errors with optimistic clearing, cross-field
// dependency re-validation, and a debounced full-form pass.
package validate
