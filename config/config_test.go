package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elarocks/config"
)

func TestNewConfig_Defaults(t *testing.T) {
	before := time.Now().UTC()
	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.TriggerInterval)
	assert.Equal(t, 1, cfg.Server.TriggerBurst)
	assert.Equal(t, []string{"https://localhost:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, []string{"1", "3", "7", "13", "23"}, cfg.Extract.EventCodes)
	assert.Equal(t, 10000, cfg.Extract.Size)
	assert.Equal(t, "./files/event", cfg.Extract.SaveLocation)
	assert.Equal(t, "_logs.csv", cfg.Extract.FileSuffix)
	assert.Equal(t, 1, cfg.Extract.Parallelism)
	assert.True(t, cfg.Extract.LoadAfter)
	assert.False(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Extract.TimestampEnd.IsZero())
	assert.False(t, cfg.Extract.End().Before(before), "empty end resolves to now")
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDRESSES", "https://es1:9200, https://es2:9200")
	t.Setenv("ELASTICSEARCH_USERNAME", "elastic")
	t.Setenv("ELASTICSEARCH_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("EXTRACT_EVENT_CODES", "3,,7 ")
	t.Setenv("EXTRACT_TIMESTAMP_END", "2023-08-07T03:05:11.628Z")
	t.Setenv("EXTRACT_SIZE", "100")
	t.Setenv("EXTRACT_PARALLELISM", "0")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://es1:9200", "https://es2:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "elastic", cfg.Elasticsearch.Username)
	assert.True(t, cfg.Elasticsearch.InsecureSkipVerify)
	assert.Equal(t, []string{"3", "7"}, cfg.Extract.EventCodes)
	assert.Equal(t, time.Date(2023, 8, 7, 3, 5, 11, 628000000, time.UTC), cfg.Extract.TimestampEnd)
	assert.Equal(t, 100, cfg.Extract.Size)
	assert.Equal(t, 1, cfg.Extract.Parallelism)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Bad Timestamp", key: "EXTRACT_TIMESTAMP_END", val: "yesterday"},
		{name: "Zero Size", key: "EXTRACT_SIZE", val: "0"},
		{name: "No Event Codes", key: "EXTRACT_EVENT_CODES", val: " , "},
		{name: "Bad Log Level", key: "LOG_LEVEL", val: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.NewConfig()
			assert.Error(t, err)
		})
	}
}
