// Package form defines the authored form schema model and its loading
// pipeline: YAML or JSON documents are validated against an embedded CUE
// schema, decoded into wire types, and compiled into the validation
// engine's typed field configs.
//
// Schemas are data, so rules that need code (custom validators, gating
// conditions) reference it by name: validator names resolve against a
// validate.Registry, conditions use a small "field == value" expression
// form. A rule that references something unresolvable, or carries a
// malformed parameter (bad regex, non-numeric length), compiles to a
// no-op rather than failing the load.
package form
