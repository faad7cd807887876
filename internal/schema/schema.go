package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEventKind = errors.New("unknown event kind")

// Standard fields present at the head of every schema.
const (
	FieldAgentName   = "agent_name"
	FieldAgentID     = "agent_id"
	FieldEventAction = "event_action"
)

// Kind names a Sysmon event category, e.g. "ProcessCreate".
type Kind string

// FieldSpec declares one output column. Alias is the raw message key that
// fills it; an empty Alias means the column is never filled from the message.
type FieldSpec struct {
	Name    string  `yaml:"name"`
	Alias   string  `yaml:"alias"`
	Default *string `yaml:"default,omitempty"`
}

// Schema is the immutable output layout of one event kind.
type Schema struct {
	kind    Kind
	code    string
	label   string
	fields  []FieldSpec
	aliases map[string]string
}

// New builds a schema. The agent_name, agent_id and event_action fields are
// prepended; event_action defaults to label. extraAliases maps additional raw
// keys onto declared fields and takes precedence over FieldSpec aliases.
func New(kind Kind, code, label string, specs []FieldSpec, extraAliases map[string]string) (*Schema, error) {
	if kind == "" {
		return nil, errors.New("schema kind is required")
	}
	if label == "" {
		return nil, fmt.Errorf("schema %s: action label is required", kind)
	}

	action := label
	fields := make([]FieldSpec, 0, len(specs)+3)
	fields = append(fields,
		FieldSpec{Name: FieldAgentName},
		FieldSpec{Name: FieldAgentID},
		FieldSpec{Name: FieldEventAction, Default: &action},
	)

	seen := map[string]bool{FieldAgentName: true, FieldAgentID: true, FieldEventAction: true}
	aliases := make(map[string]string, len(specs)+len(extraAliases))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("schema %s: field with empty name", kind)
		}
		if seen[name] {
			return nil, fmt.Errorf("schema %s: duplicate field %q", kind, name)
		}
		seen[name] = true

		spec.Name = name
		spec.Alias = strings.TrimSpace(spec.Alias)
		if spec.Default != nil {
			d := *spec.Default
			spec.Default = &d
		}
		fields = append(fields, spec)
		if spec.Alias != "" {
			if prev, dup := aliases[spec.Alias]; dup {
				return nil, fmt.Errorf("schema %s: alias %q mapped to both %q and %q", kind, spec.Alias, prev, name)
			}
			aliases[spec.Alias] = name
		}
	}
	for raw, name := range extraAliases {
		if !seen[name] {
			return nil, fmt.Errorf("schema %s: alias %q targets undeclared field %q", kind, raw, name)
		}
		aliases[strings.TrimSpace(raw)] = name
	}

	return &Schema{
		kind:    kind,
		code:    strings.TrimSpace(code),
		label:   label,
		fields:  fields,
		aliases: aliases,
	}, nil
}

func (s *Schema) Kind() Kind {
	return s.kind
}

// Code is the Sysmon event code the schema is queried by.
func (s *Schema) Code() string {
	return s.code
}

// ActionLabel is the fixed event_action value, e.g. "Image loaded".
func (s *Schema) ActionLabel() string {
	return s.label
}

// Fields returns the ordered field specs. The slice is a copy.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames returns the column names in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// AliasFor maps a raw message key to a field name. Matching is exact and
// case-sensitive after trimming surrounding whitespace.
func (s *Schema) AliasFor(rawKey string) (string, bool) {
	name, ok := s.aliases[strings.TrimSpace(rawKey)]
	return name, ok
}

// OutputPath is the tabular file location for this schema's event code.
func (s *Schema) OutputPath(saveLocation, suffix string) string {
	return saveLocation + s.code + suffix
}
