package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config holds the share consumer settings.
type Config struct {
	// Polling
	MaxPollRecords      int                  `yaml:"max_poll_records" json:"max.poll.records"`
	CheckCrcs           bool                 `yaml:"check_crcs" json:"check.crcs"`
	IsolationLevel      types.IsolationLevel `yaml:"isolation_level" json:"isolation.level"`
	ShareRequestVersion int                  `yaml:"share_request_version" json:"share.request.version"`

	// Deserialization
	KeyDeserializer   string `yaml:"key_deserializer" json:"key.deserializer"`
	ValueDeserializer string `yaml:"value_deserializer" json:"value.deserializer"`

	// Initial capacity of pooled decompression buffers, in bytes
	DecompressionBufferSize int `yaml:"decompression_buffer_size" json:"decompression.buffer.size"`

	// Observability
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`

	// Replay input
	FixturePath string `yaml:"fixture_path" json:"fixture.path"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		MaxPollRecords:          500,
		CheckCrcs:               true,
		IsolationLevel:          types.ReadUncommitted,
		ShareRequestVersion:     1,
		KeyDeserializer:         "string",
		ValueDeserializer:       "string",
		DecompressionBufferSize: 64 << 10,
		LogLevel:                util.LogLevelInfo,
		ExporterPort:            9100,
	}
}

// LoadConfig reads the process flags. See Load.
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load builds a Config from defaults, then the file named by -config or
// CONFIG_PATH, then SHARE_* environment variables, then flags given
// explicitly in args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	configPath := fs.String("config", "", "Path to YAML/JSON config file")
	maxPollRecords := fs.Int("max-poll-records", cfg.MaxPollRecords, "Maximum records returned by one poll")
	checkCrcs := fs.Bool("check-crcs", cfg.CheckCrcs, "Verify record batch checksums")
	isolation := fs.String("isolation-level", cfg.IsolationLevel.String(), "read_uncommitted or read_committed")
	requestVersion := fs.Int("share-request-version", cfg.ShareRequestVersion, "ShareFetch request version")
	keyDeserializer := fs.String("key-deserializer", cfg.KeyDeserializer, "Key deserializer (string, bytes, int32, int64, uuid, json)")
	valueDeserializer := fs.String("value-deserializer", cfg.ValueDeserializer, "Value deserializer (string, bytes, int32, int64, uuid, json)")
	bufferSize := fs.Int("decompression-buffer-size", cfg.DecompressionBufferSize, "Initial decompression buffer size in bytes")
	logLevel := fs.String("log-level", cfg.LogLevel.String(), "Log Level (debug, info, warn, error)")
	exporter := fs.Bool("exporter", cfg.EnableExporter, "Enable Prometheus exporter")
	exporterPort := fs.Int("exporter-port", cfg.ExporterPort, "Exporter port")
	fixturePath := fs.String("fixture", cfg.FixturePath, "Path to a replay fixture")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && path == "" {
		path = envPath
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-poll-records":
			cfg.MaxPollRecords = *maxPollRecords
		case "check-crcs":
			cfg.CheckCrcs = *checkCrcs
		case "isolation-level":
			level, err := types.ParseIsolationLevel(*isolation)
			if err != nil {
				flagErr = err
				return
			}
			cfg.IsolationLevel = level
		case "share-request-version":
			cfg.ShareRequestVersion = *requestVersion
		case "key-deserializer":
			cfg.KeyDeserializer = *keyDeserializer
		case "value-deserializer":
			cfg.ValueDeserializer = *valueDeserializer
		case "decompression-buffer-size":
			cfg.DecompressionBufferSize = *bufferSize
		case "log-level":
			cfg.LogLevel = util.ParseLogLevel(*logLevel)
		case "exporter":
			cfg.EnableExporter = *exporter
		case "exporter-port":
			cfg.ExporterPort = *exporterPort
		case "fixture":
			cfg.FixturePath = *fixturePath
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
