package form

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Load reads a form definition from a YAML or JSON file (YAML parsing
// accepts both) and validates it against the embedded CUE schema.
func Load(path string) (*Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form definition: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates and decodes a form definition document.
func Parse(data []byte) (*Form, error) {
	// Decode loosely first: CUE checks the raw document, so schema
	// violations surface as schema errors rather than as Go type errors.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse form definition: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty form definition")
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var f Form
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode form definition: %w", err)
	}
	if err := checkFieldNames(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// validateSchema unifies the document with the #Form definition.
func validateSchema(raw any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile embedded schema: %w", err)
	}
	formDef := schema.LookupPath(cue.ParsePath("#Form"))
	if err := formDef.Err(); err != nil {
		return fmt.Errorf("lookup #Form: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode form definition: %w", err)
	}

	// Concrete: a data document must fill in every required field.
	if err := formDef.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid form definition: %w", err)
	}
	return nil
}

// checkFieldNames enforces the invariants CUE cannot see across fields:
// unique names, and dependsOn references that resolve.
func checkFieldNames(f *Form) error {
	seen := make(map[string]bool, len(f.Fields))
	for _, fs := range f.Fields {
		if seen[fs.Name] {
			return fmt.Errorf("invalid form definition: duplicate field %q", fs.Name)
		}
		seen[fs.Name] = true
	}
	for _, fs := range f.Fields {
		for _, dep := range fs.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("invalid form definition: field %q depends on unknown field %q", fs.Name, dep)
			}
		}
	}
	return nil
}
