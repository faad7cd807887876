package extractor

import (
	"elarocks/internal/model"
	"elarocks/internal/parser"
	"elarocks/internal/schema"
)

// Build maps decomposed message pairs onto the schema's fields.
//
// Every schema field is emitted: absent unless it has a default, in which case
// it starts at the default. Agent metadata is applied when supplied. Pairs whose
// key has no alias in the schema are ignored; a later pair for the same field
// overwrites an earlier one.
func Build(s *schema.Schema, agentName, agentID *string, pairs []parser.Pair) model.Record {
	specs := s.Fields()
	fields := make([]model.Field, len(specs))
	index := make(map[string]int, len(specs))
	for i, spec := range specs {
		fields[i] = model.Field{Name: spec.Name}
		if spec.Default != nil {
			fields[i].Value = *spec.Default
			fields[i].Present = true
		}
		index[spec.Name] = i
	}

	set := func(name, value string) {
		if i, ok := index[name]; ok {
			fields[i].Value = value
			fields[i].Present = true
		}
	}

	if agentName != nil {
		set(schema.FieldAgentName, *agentName)
	}
	if agentID != nil {
		set(schema.FieldAgentID, *agentID)
	}

	for _, p := range pairs {
		name, ok := s.AliasFor(p.Key)
		if !ok {
			continue
		}
		set(name, p.Value)
	}

	return model.NewRecord(fields)
}
