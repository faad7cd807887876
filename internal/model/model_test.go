package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elarocks/internal/model"
)

func TestRawDocument_Lookup(t *testing.T) {
	var source map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"message": "UtcTime: x",
		"agent": {"name": "H1", "id": 7},
		"tags": ["a"]
	}`), &source))
	doc := model.RawDocument{Source: source}

	tests := []struct {
		name  string
		path  []string
		value string
		found bool
	}{
		{name: "Top Level String", path: []string{"message"}, value: "UtcTime: x", found: true},
		{name: "Nested String", path: []string{"agent", "name"}, value: "H1", found: true},
		{name: "Nested Non String", path: []string{"agent", "id"}},
		{name: "Missing Key", path: []string{"agent", "version"}},
		{name: "Through Non Object", path: []string{"tags", "0"}},
		{name: "Empty Path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := doc.Lookup(tt.path...)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.value, v)
		})
	}
}

func TestRecord_JSONKeepsOrderAndNulls(t *testing.T) {
	rec := model.NewRecord([]model.Field{
		{Name: "agent_name", Value: "H1", Present: true},
		{Name: "agent_id"},
		{Name: "event_action", Value: "Process Create", Present: true},
		{Name: "image", Value: `C:\x "y".exe`, Present: true},
	})

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"agent_name":"H1","agent_id":null,"event_action":"Process Create","image":"C:\\x \"y\".exe"}`, string(data))
}

func TestRecord_Accessors(t *testing.T) {
	fields := []model.Field{{Name: "a", Value: "1", Present: true}, {Name: "b"}}
	rec := model.NewRecord(fields)
	fields[0].Value = "mutated"

	v, ok := rec.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = rec.Get("b")
	assert.False(t, ok)
	_, ok = rec.Get("c")
	assert.False(t, ok)

	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, []string{"1", ""}, rec.Values())
}
