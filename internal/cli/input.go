package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldwork/formsync/internal/form"
	"github.com/fieldwork/formsync/internal/validate"
)

// loadForm reads and schema-checks a form definition file.
func loadForm(path string) (*form.Form, error) {
	f, err := form.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	return f, nil
}

// loadFormState reads a submission data file. YAML is a superset of JSON,
// so both .yaml and .json files decode here.
func loadFormState(path string) (validate.FormState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", path, err)
	}
	var state validate.FormState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse data %s: %w", path, err)
	}
	if state == nil {
		state = validate.FormState{}
	}
	return state, nil
}
