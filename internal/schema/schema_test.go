package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elarocks/internal/schema"
)

func TestNew_PrependsStandardFields(t *testing.T) {
	s, err := schema.New("Test", "99", "Test action", []schema.FieldSpec{
		{Name: "utc_time", Alias: "UtcTime"},
		{Name: "image", Alias: "Image"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"agent_name", "agent_id", "event_action", "utc_time", "image"}, s.FieldNames())
	assert.Equal(t, "Test action", s.ActionLabel())
	assert.Equal(t, "99", s.Code())

	fields := s.Fields()
	require.NotNil(t, fields[2].Default)
	assert.Equal(t, "Test action", *fields[2].Default)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		kind    schema.Kind
		label   string
		specs   []schema.FieldSpec
		aliases map[string]string
	}{
		{name: "Empty Kind", kind: "", label: "x"},
		{name: "Empty Label", kind: "K", label: ""},
		{name: "Empty Field Name", kind: "K", label: "x", specs: []schema.FieldSpec{{Name: " "}}},
		{name: "Duplicate Field", kind: "K", label: "x", specs: []schema.FieldSpec{{Name: "a"}, {Name: "a"}}},
		{name: "Shadowing Standard Field", kind: "K", label: "x", specs: []schema.FieldSpec{{Name: "agent_id"}}},
		{name: "Duplicate Alias", kind: "K", label: "x", specs: []schema.FieldSpec{{Name: "a", Alias: "A"}, {Name: "b", Alias: "A"}}},
		{name: "Alias To Unknown Field", kind: "K", label: "x", specs: []schema.FieldSpec{{Name: "a"}}, aliases: map[string]string{"B": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.New(tt.kind, "1", tt.label, tt.specs, tt.aliases)
			assert.Error(t, err)
		})
	}
}

func TestAliasFor(t *testing.T) {
	s, err := schema.New("K", "1", "x", []schema.FieldSpec{{Name: "utc_time", Alias: "UtcTime"}}, nil)
	require.NoError(t, err)

	name, ok := s.AliasFor("UtcTime")
	assert.True(t, ok)
	assert.Equal(t, "utc_time", name)

	name, ok = s.AliasFor("  UtcTime\t")
	assert.True(t, ok)
	assert.Equal(t, "utc_time", name)

	_, ok = s.AliasFor("utctime")
	assert.False(t, ok, "matching is case-sensitive")

	_, ok = s.AliasFor("")
	assert.False(t, ok)
}

func TestFields_ReturnsCopy(t *testing.T) {
	s, err := schema.New("K", "1", "x", []schema.FieldSpec{{Name: "a", Alias: "A"}}, nil)
	require.NoError(t, err)

	fields := s.Fields()
	fields[3].Name = "mutated"
	assert.Equal(t, "a", s.Fields()[3].Name)
}

func TestOutputPath(t *testing.T) {
	reg := schema.NewSysmonRegistry()
	s, err := reg.ForKind(schema.NetworkConnection)
	require.NoError(t, err)
	assert.Equal(t, "/data/event3_logs.csv", s.OutputPath("/data/event", "_logs.csv"))
}

func TestSysmonRegistry(t *testing.T) {
	reg := schema.NewSysmonRegistry()

	t.Run("Lookup By Kind And Code", func(t *testing.T) {
		byKind, err := reg.ForKind(schema.ProcessCreate)
		require.NoError(t, err)
		byCode, err := reg.ForCode("1")
		require.NoError(t, err)
		assert.Same(t, byKind, byCode)
		assert.Equal(t, "Process Create", byKind.ActionLabel())
	})

	t.Run("Lookup By Action", func(t *testing.T) {
		s, err := reg.ForAction("Registry value set")
		require.NoError(t, err)
		assert.Equal(t, schema.RegistryValueSet, s.Kind())
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		_, err := reg.ForKind("Nope")
		assert.ErrorIs(t, err, schema.ErrUnknownEventKind)
		_, err = reg.ForCode("404")
		assert.ErrorIs(t, err, schema.ErrUnknownEventKind)
		_, err = reg.ForAction("Nothing happened")
		assert.ErrorIs(t, err, schema.ErrUnknownEventKind)
	})

	t.Run("Registry Value Set Column Order", func(t *testing.T) {
		s, err := reg.ForCode("13")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"agent_name", "agent_id", "event_action", "utc_time", "event_type",
			"process_guid", "process_id", "image", "target_object", "details", "user",
		}, s.FieldNames())
	})

	t.Run("Network Connection Keeps Reference User Mapping", func(t *testing.T) {
		s, err := reg.ForKind(schema.NetworkConnection)
		require.NoError(t, err)
		name, ok := s.AliasFor("User")
		require.True(t, ok)
		assert.Equal(t, "image", name)
	})

	t.Run("Every Kind Has A Code", func(t *testing.T) {
		for _, k := range reg.Kinds() {
			s, err := reg.ForKind(k)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Code(), string(k))
			_, err = reg.ForCode(s.Code())
			assert.NoError(t, err, string(k))
		}
	})
}

func TestRegistry_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemas.yaml")
	content := `
schemas:
  - kind: NetworkConnection
    code: "3"
    label: Network connection detected
    fields:
      - {name: utc_time, alias: UtcTime}
      - {name: image, alias: Image}
      - {name: user, alias: User}
  - kind: Custom
    code: "255"
    label: Custom event
    fields:
      - {name: severity, alias: Severity, default: low}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg := schema.NewSysmonRegistry()
	require.NoError(t, reg.LoadFile(path))

	net, err := reg.ForCode("3")
	require.NoError(t, err)
	name, ok := net.AliasFor("User")
	require.True(t, ok)
	assert.Equal(t, "user", name)
	assert.Equal(t, []string{"agent_name", "agent_id", "event_action", "utc_time", "image", "user"}, net.FieldNames())

	custom, err := reg.ForKind("Custom")
	require.NoError(t, err)
	fields := custom.Fields()
	require.NotNil(t, fields[3].Default)
	assert.Equal(t, "low", *fields[3].Default)

	// Built-ins that were not overridden survive.
	_, err = reg.ForCode("1")
	assert.NoError(t, err)
}

func TestRegistry_LoadFileErrors(t *testing.T) {
	reg := schema.NewSysmonRegistry()

	err := reg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schemas:\n  - kind: X\n    code: \"1\"\n"), 0644))
	err = reg.LoadFile(path)
	assert.Error(t, err, "label is required")
}

func TestRegistry_RegisterReplacesByCode(t *testing.T) {
	reg := schema.NewSysmonRegistry()
	s, err := schema.New("Renamed", "7", "Image loaded v2", nil, nil)
	require.NoError(t, err)
	reg.Register(s)

	_, err = reg.ForKind(schema.ImageLoad)
	assert.ErrorIs(t, err, schema.ErrUnknownEventKind)

	got, err := reg.ForCode("7")
	require.NoError(t, err)
	assert.Equal(t, schema.Kind("Renamed"), got.Kind())
}
