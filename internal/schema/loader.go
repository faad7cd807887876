package schema

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a schema override file:
//
//	schemas:
//	  - kind: NetworkConnection
//	    code: "3"
//	    label: Network connection detected
//	    fields:
//	      - {name: utc_time, alias: UtcTime}
//	      - {name: user, alias: User}
//	    aliases:
//	      SourceIP: source_ip
type File struct {
	Schemas []Definition `yaml:"schemas"`
}

type Definition struct {
	Kind    Kind              `yaml:"kind"`
	Code    string            `yaml:"code"`
	Label   string            `yaml:"label"`
	Fields  []FieldSpec       `yaml:"fields"`
	Aliases map[string]string `yaml:"aliases"`
}

// Parse decodes schema definitions from YAML.
func Parse(data []byte) ([]*Schema, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode schema file: %w", err)
	}
	schemas := make([]*Schema, 0, len(file.Schemas))
	for i, d := range file.Schemas {
		s, err := New(d.Kind, d.Code, d.Label, d.Fields, d.Aliases)
		if err != nil {
			return nil, fmt.Errorf("schema[%d]: %w", i, err)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// LoadFile reads a YAML schema file and registers every schema in it,
// replacing built-ins with the same kind or code.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	schemas, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range schemas {
		r.Register(s)
		log.Info().Str("kind", string(s.Kind())).Str("event_code", s.Code()).Int("fields", len(s.fields)).Msg("Registered schema override")
	}
	return nil
}
