package extractor_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elarocks/internal/encoder"
	"elarocks/internal/extractor"
	"elarocks/internal/model"
)

func doc(t *testing.T, src string) model.RawDocument {
	t.Helper()
	var source map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &source))
	return model.RawDocument{Source: source}
}

func TestExtract_SkipsDocumentsWithoutMessage(t *testing.T) {
	s := processCreate(t)
	docs := []model.RawDocument{
		doc(t, `{"agent":{"name":"H1"},"message":"ProcessId: 1"}`),
		doc(t, `{"agent":{"name":"H2"}}`),
		doc(t, `{"agent":{"name":"H3"},"message":"ProcessId: 3"}`),
	}

	batch := extractor.NewPipeline().Extract(docs, s)
	require.Len(t, batch, 2)

	first, _ := batch[0].Get("agent_name")
	second, _ := batch[1].Get("agent_name")
	assert.Equal(t, "H1", first)
	assert.Equal(t, "H3", second)
}

func TestExtract_NonStringMessageSkipped(t *testing.T) {
	s := processCreate(t)
	docs := []model.RawDocument{
		doc(t, `{"message":42}`),
		doc(t, `{"message":null}`),
		{Source: nil},
	}
	assert.Empty(t, extractor.NewPipeline().Extract(docs, s))
}

func TestExtract_MissingAgentMetadataTolerated(t *testing.T) {
	s := processCreate(t)
	docs := []model.RawDocument{doc(t, `{"agent":"not-an-object","message":"ProcessId: 7"}`)}

	batch := extractor.NewPipeline().Extract(docs, s)
	require.Len(t, batch, 1)
	_, ok := batch[0].Get("agent_name")
	assert.False(t, ok)
	pid, _ := batch[0].Get("process_id")
	assert.Equal(t, "7", pid)
}

func TestExtract_CustomAccessors(t *testing.T) {
	s := processCreate(t)
	p := extractor.NewPipeline(
		extractor.WithMessageAccessor(func(d model.RawDocument) (string, bool) {
			return d.Lookup("winlog", "message")
		}),
		extractor.WithAgentAccessor(func(d model.RawDocument) (*string, *string) {
			name, _ := d.Lookup("host", "hostname")
			return &name, nil
		}),
	)
	docs := []model.RawDocument{doc(t, `{"host":{"hostname":"WS01"},"winlog":{"message":"User: alice"}}`)}

	batch := p.Extract(docs, s)
	require.Len(t, batch, 1)
	name, _ := batch[0].Get("agent_name")
	user, _ := batch[0].Get("user")
	assert.Equal(t, "WS01", name)
	assert.Equal(t, "alice", user)
}

func TestExtract_EndToEnd(t *testing.T) {
	s := processCreate(t)
	docs := []model.RawDocument{doc(t, `{
		"agent": {"name": "H1", "id": "1"},
		"message": "UtcTime: 2023-08-07 03:00:00.000\nProcessId: 42\nImage: C:\\x.exe"
	}`)}

	batch := extractor.NewPipeline().Extract(docs, s)
	require.Len(t, batch, 1)

	rec := batch[0]
	expected := map[string]string{
		"agent_name":   "H1",
		"agent_id":     "1",
		"event_action": "Process Create",
		"utc_time":     "2023-08-07 03:00:00.000",
		"process_id":   "42",
		"image":        `C:\x.exe`,
	}
	for _, f := range rec.Fields() {
		want, set := expected[f.Name]
		assert.Equal(t, set, f.Present, f.Name)
		if set {
			assert.Equal(t, want, f.Value, f.Name)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, encoder.Encode(&buf, batch, s))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(s.FieldNames(), "\t"), lines[0])

	cells := strings.Split(lines[1], "\t")
	require.Len(t, cells, len(s.FieldNames()))
	assert.Equal(t, "H1", cells[0])
	assert.Equal(t, "1", cells[1])
	assert.Equal(t, "Process Create", cells[2])
	assert.Equal(t, "2023-08-07 03:00:00.000", cells[3])
	assert.Equal(t, "", cells[4], "process_guid absent")
	assert.Equal(t, "42", cells[5])
	assert.Equal(t, `C:\x.exe`, cells[6])
	for _, c := range cells[7:] {
		assert.Equal(t, "", c)
	}
}

func TestExtract_EmptyResultSet(t *testing.T) {
	s := processCreate(t)
	batch := extractor.NewPipeline().Extract(nil, s)
	assert.Len(t, batch, 0)

	var buf bytes.Buffer
	require.NoError(t, encoder.Encode(&buf, batch, s))
	assert.Equal(t, strings.Join(s.FieldNames(), "\t")+"\n", buf.String())
}
