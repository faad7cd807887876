package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"elarocks/internal/util"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Elasticsearch ElasticsearchConfig
	Extract       ExtractConfig
	KVStore       KVStoreConfig
	Kafka         KafkaConfig
	TimescaleDB   TimescaleDBConfig
	RunState      RunStateConfig
	LogLevel      string
}

type ServerConfig struct {
	Port            string
	TriggerInterval time.Duration // Minimum spacing of manual runs; zero disables throttling
	TriggerBurst    int
}

type ElasticsearchConfig struct {
	Addresses          []string
	Username           string
	Password           string `json:"-"`
	Index              string
	InsecureSkipVerify bool          // Accept self-signed certificates
	ConnectTimeout     time.Duration // Max time spent verifying the connection at startup
}

type ExtractConfig struct {
	EventCodes   []string
	TimestampEnd time.Time // Upper bound (exclusive) on @timestamp; zero means the time of each run
	Size         int       // Max hits per query; no pagination beyond this
	SaveLocation string    // Output path prefix, e.g. ./files/event
	FileSuffix   string    // Output path suffix, e.g. _logs.csv
	SchemaFile   string    // Optional YAML schema overrides
	Schedule     string    // Cron expression; empty runs once at startup
	Parallelism  int
	LoadAfter    bool // Bulk-load each output file into the KV store
}

// End is the @timestamp upper bound for a run starting now.
func (e ExtractConfig) End() time.Time {
	if e.TimestampEnd.IsZero() {
		return time.Now().UTC()
	}
	return e.TimestampEnd
}

type KVStoreConfig struct {
	Path string
}

type KafkaConfig struct {
	Brokers      []string
	RecordTopic  string
	BatchSize    int
	BatchTimeout time.Duration
}

// Enabled reports whether records should be published to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.RecordTopic != ""
}

type TimescaleDBConfig struct {
	DSN string `json:"-"`
}

type RunStateConfig struct {
	FilePath string
}

func NewConfig() (*Config, error) {
	v := viper.New()
	// Configure Viper to read .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// Enable automatic environment variable loading
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TRIGGER_INTERVAL", "10s")
	v.SetDefault("SERVER_TRIGGER_BURST", 1)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ELASTICSEARCH_ADDRESSES", "https://localhost:9200")
	v.SetDefault("ELASTICSEARCH_INDEX", "winlogbeat-*")
	v.SetDefault("ELASTICSEARCH_INSECURE_SKIP_VERIFY", false)
	v.SetDefault("ELASTICSEARCH_CONNECT_TIMEOUT", "30s")
	v.SetDefault("EXTRACT_EVENT_CODES", "1,3,7,13,23")
	v.SetDefault("EXTRACT_TIMESTAMP_END", "")
	v.SetDefault("EXTRACT_SIZE", 10000)
	v.SetDefault("EXTRACT_SAVE_LOCATION", "./files/event")
	v.SetDefault("EXTRACT_FILE_SUFFIX", "_logs.csv")
	v.SetDefault("EXTRACT_SCHEMA_FILE", "")
	v.SetDefault("EXTRACT_SCHEDULE", "")
	v.SetDefault("EXTRACT_PARALLELISM", 1)
	v.SetDefault("EXTRACT_LOAD_AFTER", true)
	v.SetDefault("KVSTORE_PATH", "./db")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_RECORD_TOPIC", "sysmon_records")
	v.SetDefault("KAFKA_BATCH_SIZE", 100)
	v.SetDefault("KAFKA_BATCH_TIMEOUT", "1s")
	v.SetDefault("TIMESCALEDB_DSN", "")
	v.SetDefault("RUN_STATE_PATH", "./run_state.json")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config
	config.Server.Port = v.GetString("SERVER_PORT")
	config.Server.TriggerInterval = v.GetDuration("SERVER_TRIGGER_INTERVAL")
	config.Server.TriggerBurst = v.GetInt("SERVER_TRIGGER_BURST")
	config.LogLevel = v.GetString("LOG_LEVEL")

	// --- Elasticsearch ---
	config.Elasticsearch.Addresses = splitList(v.GetString("ELASTICSEARCH_ADDRESSES"))
	config.Elasticsearch.Username = v.GetString("ELASTICSEARCH_USERNAME")
	config.Elasticsearch.Password = v.GetString("ELASTICSEARCH_PASSWORD")
	config.Elasticsearch.Index = v.GetString("ELASTICSEARCH_INDEX")
	config.Elasticsearch.InsecureSkipVerify = v.GetBool("ELASTICSEARCH_INSECURE_SKIP_VERIFY")
	config.Elasticsearch.ConnectTimeout = v.GetDuration("ELASTICSEARCH_CONNECT_TIMEOUT")

	// --- Extraction ---
	config.Extract.EventCodes = splitList(v.GetString("EXTRACT_EVENT_CODES"))
	config.Extract.Size = v.GetInt("EXTRACT_SIZE")
	config.Extract.SaveLocation = v.GetString("EXTRACT_SAVE_LOCATION")
	config.Extract.FileSuffix = v.GetString("EXTRACT_FILE_SUFFIX")
	config.Extract.SchemaFile = v.GetString("EXTRACT_SCHEMA_FILE")
	config.Extract.Schedule = v.GetString("EXTRACT_SCHEDULE")
	config.Extract.Parallelism = v.GetInt("EXTRACT_PARALLELISM")
	config.Extract.LoadAfter = v.GetBool("EXTRACT_LOAD_AFTER")

	if end := strings.TrimSpace(v.GetString("EXTRACT_TIMESTAMP_END")); end != "" {
		t, err := util.ParseTimeFlexible(end)
		if err != nil {
			return nil, fmt.Errorf("EXTRACT_TIMESTAMP_END: %w", err)
		}
		config.Extract.TimestampEnd = t
	}

	// --- Key-value store ---
	config.KVStore.Path = v.GetString("KVSTORE_PATH")

	// --- Kafka ---
	config.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	config.Kafka.RecordTopic = v.GetString("KAFKA_RECORD_TOPIC")
	config.Kafka.BatchSize = v.GetInt("KAFKA_BATCH_SIZE")
	config.Kafka.BatchTimeout = v.GetDuration("KAFKA_BATCH_TIMEOUT")

	// --- TimescaleDB ---
	config.TimescaleDB.DSN = v.GetString("TIMESCALEDB_DSN")

	// --- Run state ---
	config.RunState.FilePath = v.GetString("RUN_STATE_PATH")

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}

func (c *Config) validate() error {
	var errs []error
	if len(c.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("ELASTICSEARCH_ADDRESSES is empty"))
	}
	if c.Elasticsearch.Index == "" {
		errs = append(errs, errors.New("ELASTICSEARCH_INDEX is empty"))
	}
	if len(c.Extract.EventCodes) == 0 {
		errs = append(errs, errors.New("EXTRACT_EVENT_CODES is empty"))
	}
	if c.Extract.Size <= 0 {
		errs = append(errs, fmt.Errorf("EXTRACT_SIZE must be positive, got %d", c.Extract.Size))
	}
	if c.Server.TriggerBurst <= 0 {
		c.Server.TriggerBurst = 1
	}
	if c.Extract.Parallelism <= 0 {
		c.Extract.Parallelism = 1
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// ApplyLogLevel sets the global zerolog level from LOG_LEVEL.
func (c *Config) ApplyLogLevel() {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
