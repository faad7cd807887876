package model

// RawDocument is one search hit. Source is the decoded _source tree.
type RawDocument struct {
	Index  string
	ID     string
	Source map[string]any
}

// Lookup walks Source along path and returns the string found at the end.
// Missing keys, non-object intermediates and non-string leaves all report false.
func (d RawDocument) Lookup(path ...string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	node := any(d.Source)
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		node, ok = obj[key]
		if !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok
}
