package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for LinkLift. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Bot      BotConfig      `json:"bot"`
	Download DownloadConfig `json:"download"`
	Web      WebConfig      `json:"web"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

type BotConfig struct {
	// Token may be left empty in the file; Load falls back to the
	// TELEGRAM_BOT_TOKEN environment variable.
	Token       string `json:"token"`
	Mention     string `json:"mention"`     // bot mention tag required in group chats
	Attribution string `json:"attribution"` // fixed tag appended to every reply
	ParseMode   string `json:"parseMode"`
}

type DownloadConfig struct {
	// Format is the yt-dlp format selector: capped resolution in a common
	// container first, then any available format.
	Format         string `json:"format"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	ChunkBytes     int    `json:"chunkBytes"`
	// TikTokHD enables the specialized TikTok resolver that adds a
	// high-quality stream and a separate audio track.
	TikTokHD bool `json:"tiktokHd"`
	// PlatformsFile optionally overrides the embedded platform table.
	PlatformsFile string `json:"platformsFile,omitempty"`
}

type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.linklift).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linklift"
	}
	return filepath.Join(home, ".linklift")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	ApplyEnv(cfg)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// ApplyEnv fills credentials from the process environment when the file
// leaves them blank.
func ApplyEnv(cfg *Config) {
	if cfg.Bot.Token == "" {
		cfg.Bot.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Bot.Mention != "" && !strings.HasPrefix(cfg.Bot.Mention, "@") {
		errs = append(errs, "bot.mention must start with @")
	}
	switch cfg.Bot.ParseMode {
	case "", "Markdown", "MarkdownV2", "HTML":
		// valid
	default:
		errs = append(errs, "bot.parseMode must be one of: Markdown, MarkdownV2, HTML")
	}

	if cfg.Download.Format == "" {
		errs = append(errs, "download.format must not be empty")
	}
	if cfg.Download.TimeoutSeconds < 1 {
		errs = append(errs, "download.timeoutSeconds must be >= 1")
	}
	if cfg.Download.ChunkBytes < 1024 {
		errs = append(errs, "download.chunkBytes must be >= 1024")
	}

	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		errs = append(errs, "web.port must be between 0 and 65535")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
