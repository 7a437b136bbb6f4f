package config

import (
	"os"
	"strings"

	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
)

func (cfg *Config) Normalize() {
	if cfg.MaxPollRecords <= 0 {
		util.Warn("Invalid max_poll_records (%d), defaulting to 500", cfg.MaxPollRecords)
		cfg.MaxPollRecords = 500
	}
	if cfg.ShareRequestVersion < 0 {
		cfg.ShareRequestVersion = 1
	}
	if cfg.DecompressionBufferSize < 1024 {
		cfg.DecompressionBufferSize = 64 << 10
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = 9100
	}

	cfg.KeyDeserializer = normalizeDeserializer("key_deserializer", cfg.KeyDeserializer)
	cfg.ValueDeserializer = normalizeDeserializer("value_deserializer", cfg.ValueDeserializer)
}

func normalizeDeserializer(field, name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, err := serde.ByName(name); err != nil || name == "" {
		if name != "" {
			util.Warn("Invalid %s '%s', defaulting to 'string'", field, name)
		}
		return "string"
	}
	return name
}

func applyEnv(cfg *Config) {
	overrideEnvInt(&cfg.MaxPollRecords, "SHARE_MAX_POLL_RECORDS")
	overrideEnvBool(&cfg.CheckCrcs, "SHARE_CHECK_CRCS")
	overrideEnvIsolation(&cfg.IsolationLevel, "SHARE_ISOLATION_LEVEL")
	overrideEnvInt(&cfg.ShareRequestVersion, "SHARE_REQUEST_VERSION")
	overrideEnvString(&cfg.KeyDeserializer, "SHARE_KEY_DESERIALIZER")
	overrideEnvString(&cfg.ValueDeserializer, "SHARE_VALUE_DESERIALIZER")
	overrideEnvInt(&cfg.DecompressionBufferSize, "SHARE_DECOMPRESSION_BUFFER_SIZE")
	overrideEnvBool(&cfg.EnableExporter, "SHARE_ENABLE_EXPORTER")
	overrideEnvInt(&cfg.ExporterPort, "SHARE_EXPORTER_PORT")
	overrideEnvString(&cfg.FixturePath, "SHARE_FIXTURE_PATH")
	if v := os.Getenv("SHARE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = util.ParseLogLevel(v)
	}
}

func overrideEnvInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt(v, *target)
	}
}

func overrideEnvBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseBool(v, *target)
	}
}

func overrideEnvString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideEnvIsolation(target *types.IsolationLevel, key string) {
	if v := os.Getenv(key); v != "" {
		if level, err := types.ParseIsolationLevel(v); err == nil {
			*target = level
		} else {
			util.Warn("Ignoring %s: %v", key, err)
		}
	}
}
