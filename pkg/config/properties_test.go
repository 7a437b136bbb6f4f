package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/downfa11-org/sharefetch/pkg/config"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
)

func load(t *testing.T, args ...string) *config.Config {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	cfg, err := config.Load(flag.NewFlagSet("test", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()

	if cfg.MaxPollRecords != 500 {
		t.Errorf("MaxPollRecords default incorrect: %d", cfg.MaxPollRecords)
	}
	if cfg.DecompressionBufferSize != 64<<10 {
		t.Errorf("DecompressionBufferSize default incorrect: %d", cfg.DecompressionBufferSize)
	}
	if cfg.ExporterPort != 9100 {
		t.Errorf("ExporterPort default incorrect: %d", cfg.ExporterPort)
	}
	if cfg.KeyDeserializer != "string" || cfg.ValueDeserializer != "string" {
		t.Errorf("deserializer defaults incorrect: %q/%q", cfg.KeyDeserializer, cfg.ValueDeserializer)
	}
}

func TestDeserializerNormalization(t *testing.T) {
	cfg := config.Default()
	cfg.KeyDeserializer = " INT64 "
	cfg.ValueDeserializer = "protobuf"
	cfg.Normalize()

	if cfg.KeyDeserializer != "int64" {
		t.Errorf("KeyDeserializer normalization failed: %s", cfg.KeyDeserializer)
	}
	if cfg.ValueDeserializer != "string" {
		t.Errorf("unknown ValueDeserializer should fall back to string, got %s", cfg.ValueDeserializer)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := load(t)

	if cfg.MaxPollRecords != 500 || !cfg.CheckCrcs {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.IsolationLevel != types.ReadUncommitted {
		t.Errorf("IsolationLevel default incorrect: %s", cfg.IsolationLevel)
	}
	if cfg.ShareRequestVersion != 1 {
		t.Errorf("ShareRequestVersion default incorrect: %d", cfg.ShareRequestVersion)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "share.yaml", `
max_poll_records: 7
check_crcs: false
isolation_level: read_committed
value_deserializer: json
log_level: debug
exporter_port: 9200
`)
	cfg := load(t, "-config", path)
	defer util.SetLevel(util.LogLevelInfo)

	if cfg.MaxPollRecords != 7 || cfg.CheckCrcs {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.IsolationLevel != types.ReadCommitted {
		t.Errorf("IsolationLevel = %s, want read_committed", cfg.IsolationLevel)
	}
	if cfg.ValueDeserializer != "json" {
		t.Errorf("ValueDeserializer = %s, want json", cfg.ValueDeserializer)
	}
	if cfg.LogLevel != util.LogLevelDebug {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.ExporterPort != 9200 {
		t.Errorf("ExporterPort = %d, want 9200", cfg.ExporterPort)
	}
}

func TestLoadJSONFileFromEnvPath(t *testing.T) {
	path := writeFile(t, "share.json", `{"max.poll.records": 42, "isolation.level": "read-committed", "log_level": 2}`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := config.Load(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	defer util.SetLevel(util.LogLevelInfo)

	if cfg.MaxPollRecords != 42 {
		t.Errorf("MaxPollRecords = %d, want 42", cfg.MaxPollRecords)
	}
	if cfg.IsolationLevel != types.ReadCommitted {
		t.Errorf("IsolationLevel = %s, want read_committed", cfg.IsolationLevel)
	}
	if cfg.LogLevel != util.LogLevelWarn {
		t.Errorf("LogLevel = %s, want warn", cfg.LogLevel)
	}
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, "share.yaml", "max_poll_records: 10\nexporter_port: 9300\nkey_deserializer: bytes\n")
	t.Setenv("SHARE_MAX_POLL_RECORDS", "20")
	t.Setenv("SHARE_EXPORTER_PORT", "9400")

	cfg := load(t, "-config", path, "-max-poll-records", "30")

	if cfg.MaxPollRecords != 30 {
		t.Errorf("explicit flag should win, got %d", cfg.MaxPollRecords)
	}
	if cfg.ExporterPort != 9400 {
		t.Errorf("env should override file, got %d", cfg.ExporterPort)
	}
	if cfg.KeyDeserializer != "bytes" {
		t.Errorf("file should override default, got %s", cfg.KeyDeserializer)
	}
}

func TestInvalidEnvIgnored(t *testing.T) {
	t.Setenv("SHARE_MAX_POLL_RECORDS", "lots")
	t.Setenv("SHARE_ISOLATION_LEVEL", "serializable")

	cfg := load(t)

	if cfg.MaxPollRecords != 500 {
		t.Errorf("invalid env should keep default, got %d", cfg.MaxPollRecords)
	}
	if cfg.IsolationLevel != types.ReadUncommitted {
		t.Errorf("invalid env should keep default, got %s", cfg.IsolationLevel)
	}
}

func TestInvalidIsolationFlag(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	_, err := config.Load(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-isolation-level", "snapshot"})
	if err == nil {
		t.Fatal("expected error for unknown isolation level")
	}
}

func TestMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	_, err := config.Load(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
