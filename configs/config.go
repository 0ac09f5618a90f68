package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/speclab/specgate/internal/adapter/outbound/github"
	"github.com/speclab/specgate/internal/domain"
)

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	SpecSources []any `yaml:"spec_sources"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Fields are loaded from environment variables with
// the prefix "SPECGATE_", potentially overriding file settings.
type Config struct {
	// Config File Path (Loaded first from env)
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/specgate.yaml"`

	// SpecSources are ingested at server startup so their approved
	// capabilities can be previewed over MCP. Loaded from FileConfig.
	SpecSources []string

	// Environment-overridable fields
	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	MCPListenAddr            string        `envconfig:"MCP_LISTEN_ADDR" default:":8081"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ServerIdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	// SessionDir set to an empty string disables persistence and keeps
	// sessions in memory for the lifetime of the process.
	SessionDir               string        `envconfig:"SESSION_DIR" default:".specgate/sessions"`
	Policy                   string        `envconfig:"POLICY" default:"moderate"`
	UseModel                 bool          `envconfig:"USE_MODEL" default:"false"`
	GeminiAPIKey             string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel              string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	ClassifyBatchSize        int           `envconfig:"CLASSIFY_BATCH_SIZE" default:"20"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration first from environment variables (to get the
// file path), then from the specified YAML file, and finally merges and
// overrides with environment variables again.
func Load() (*Config, error) {
	// 1. Load initial config from Env (primarily to get ConfigFilePath)
	var initialCfg Config
	if err := envconfig.Process("specgate", &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	// 2. Load config from YAML file if path is specified
	fileCfg := FileConfig{}
	if initialCfg.ConfigFilePath != "" {
		var yamlFile []byte
		var err error

		if github.IsGitHubURL(initialCfg.ConfigFilePath) {
			yamlFile, err = github.LoadConfig(initialCfg.ConfigFilePath)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from GitHub '%s': %w", initialCfg.ConfigFilePath, err)
			}
			slog.Info("Loaded configuration from GitHub.", "url", initialCfg.ConfigFilePath)
		} else {
			yamlFile, err = os.ReadFile(initialCfg.ConfigFilePath)
			switch {
			case err == nil:
				slog.Info("Loaded configuration from file.", "path", initialCfg.ConfigFilePath)
			case os.IsNotExist(err) && !envOverridesConfigFile():
				// The default path may be absent so the binaries run
				// outside the repository without any setup.
				slog.Info("No config file found at default path, using defaults/env vars only.", "path", initialCfg.ConfigFilePath)
				yamlFile = nil
			default:
				return nil, fmt.Errorf("failed to read config file '%s': %w", initialCfg.ConfigFilePath, err)
			}
		}

		if len(yamlFile) > 0 {
			if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
			}
		}
	} else {
		slog.Info("No config file path specified (SPECGATE_CONFIG_FILE), using defaults/env vars only.")
	}

	// 3. Create final config, starting with file values, then process Env
	// vars again for overrides.
	finalCfg := initialCfg

	// Parse SpecSources - support both string and object formats
	finalCfg.SpecSources = make([]string, 0, len(fileCfg.SpecSources))
	for _, source := range fileCfg.SpecSources {
		switch v := source.(type) {
		case string:
			if v != "" {
				finalCfg.SpecSources = append(finalCfg.SpecSources, v)
			}
		case map[string]any:
			if url, ok := v["url"].(string); ok && url != "" {
				finalCfg.SpecSources = append(finalCfg.SpecSources, url)
			} else {
				slog.Warn("Ignoring spec source without url", "source", source)
			}
		default:
			slog.Warn("Ignoring invalid spec source format", "source", source)
		}
	}

	// Process environment variables AGAIN to allow overrides over file settings.
	if err := envconfig.Process("specgate", &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}

	// The Gemini SDK convention is an unprefixed key variable; honor it
	// when the prefixed form is unset.
	if finalCfg.GeminiAPIKey == "" {
		finalCfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	if _, err := domain.ParsePolicy(finalCfg.Policy); err != nil {
		return nil, fmt.Errorf("invalid SPECGATE_POLICY: %w", err)
	}

	return &finalCfg, nil
}

// envOverridesConfigFile reports whether the config file path came from
// the environment rather than the compiled-in default.
func envOverridesConfigFile() bool {
	_, ok := os.LookupEnv("SPECGATE_CONFIG_FILE")
	return ok
}
