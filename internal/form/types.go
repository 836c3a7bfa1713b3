package form

// FieldType enumerates the supported input widgets. The queue and sync
// core never interpret these; they matter to rendering and to schema
// validation (choice types must carry options).
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldEmail     FieldType = "email"
	FieldNumber    FieldType = "number"
	FieldPassword  FieldType = "password"
	FieldRadio     FieldType = "radio"
	FieldCheckbox  FieldType = "checkbox"
	FieldSelect    FieldType = "select"
	FieldSignature FieldType = "signature"
	FieldPhoto     FieldType = "photo"
)

// choiceTypes are the field types that require options.
var choiceTypes = map[FieldType]bool{
	FieldRadio:    true,
	FieldCheckbox: true,
	FieldSelect:   true,
}

// IsChoice reports whether the field type renders a fixed option list.
func (t FieldType) IsChoice() bool { return choiceTypes[t] }

// Option is one entry of a radio/checkbox/select field, in authored order.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// RuleSpec is the loose wire shape of one validation rule. Value carries
// the rule parameter (a number for length rules, a regex source for
// pattern rules); Validator and Condition are names resolved at compile
// time.
type RuleSpec struct {
	Type      string `yaml:"type" json:"type"`
	Message   string `yaml:"message" json:"message"`
	Value     any    `yaml:"value,omitempty" json:"value,omitempty"`
	Validator string `yaml:"validator,omitempty" json:"validator,omitempty"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// FieldSpec is one authored form input.
type FieldSpec struct {
	Name            string     `yaml:"name" json:"name"`
	Label           string     `yaml:"label" json:"label"`
	Type            FieldType  `yaml:"type" json:"type"`
	Required        bool       `yaml:"required,omitempty" json:"required,omitempty"`
	Placeholder     string     `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Options         []Option   `yaml:"options,omitempty" json:"options,omitempty"`
	Validation      []RuleSpec `yaml:"validation,omitempty" json:"validation,omitempty"`
	DependsOn       []string   `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	CustomValidator string     `yaml:"customValidator,omitempty" json:"customValidator,omitempty"`
}

// Form is a named, versioned form definition. Immutable once loaded.
type Form struct {
	Name        string      `yaml:"name" json:"name"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Version     int         `yaml:"version,omitempty" json:"version,omitempty"`
	Fields      []FieldSpec `yaml:"fields" json:"fields"`
}

// Field returns the spec for a field name, if present.
func (f *Form) Field(name string) (FieldSpec, bool) {
	for _, fs := range f.Fields {
		if fs.Name == name {
			return fs, true
		}
	}
	return FieldSpec{}, false
}
