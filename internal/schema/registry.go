package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves schemas by kind or by event code. It is not safe to
// Register concurrently with lookups; registration happens at startup.
type Registry struct {
	byKind map[Kind]*Schema
	byCode map[string]*Schema
}

func NewRegistry() *Registry {
	return &Registry{
		byKind: make(map[Kind]*Schema),
		byCode: make(map[string]*Schema),
	}
}

// Register adds s, replacing any schema with the same kind or code.
func (r *Registry) Register(s *Schema) {
	if old, ok := r.byKind[s.kind]; ok && old.code != "" {
		delete(r.byCode, old.code)
	}
	if old, ok := r.byCode[s.code]; ok {
		delete(r.byKind, old.kind)
	}
	r.byKind[s.kind] = s
	if s.code != "" {
		r.byCode[s.code] = s
	}
}

func (r *Registry) ForKind(kind Kind) (*Schema, error) {
	s, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventKind, kind)
	}
	return s, nil
}

func (r *Registry) ForCode(code string) (*Schema, error) {
	s, ok := r.byCode[strings.TrimSpace(code)]
	if !ok {
		return nil, fmt.Errorf("%w: event code %q", ErrUnknownEventKind, code)
	}
	return s, nil
}

// ForAction finds the schema whose event_action label equals action.
func (r *Registry) ForAction(action string) (*Schema, error) {
	for _, s := range r.byKind {
		if s.label == action {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: action %q", ErrUnknownEventKind, action)
}

// Kinds lists registered kinds sorted by name.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
