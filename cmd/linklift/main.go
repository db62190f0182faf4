package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"linklift/internal/channel"
	"linklift/internal/classify"
	"linklift/internal/compose"
	"linklift/internal/config"
	"linklift/internal/domain"
	"linklift/internal/extract"
	"linklift/internal/fetch"
	"linklift/internal/pipeline"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "linklift",
		Short: "LinkLift: Telegram bot that downloads social-media videos",
		Long:  "LinkLift detects Instagram, TikTok, YouTube and Twitter links, fetches the video and sends it back in chat.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.linklift/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		config.ApplyEnv(cfg)
	}
	return cfg
}

// buildLogger rebuilds the process logger with the configured level and
// optional log file.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(config.DefaultConfigDir(), 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot (Telegram polling + web probes)",
		Long:  "Starts Telegram long polling and the auxiliary HTTP surface. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger = buildLogger(cfg)

	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token missing: set bot.token in config or TELEGRAM_BOT_TOKEN in the environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := classify.Default()
	if cfg.Download.PlatformsFile != "" {
		data, err := os.ReadFile(config.ExpandPath(cfg.Download.PlatformsFile))
		if err != nil {
			return fmt.Errorf("platforms file: %w", err)
		}
		table, err = classify.Load(data)
		if err != nil {
			return fmt.Errorf("platforms file: %w", err)
		}
		logger.Info("platform table loaded", "path", cfg.Download.PlatformsFile)
	}

	// Best effort: go-ytdlp downloads a yt-dlp binary when PATH has none.
	if err := extract.EnsureInstalled(ctx); err != nil {
		logger.Warn("yt-dlp install check failed", "err", err)
	}

	composer := compose.New(cfg.Bot.Attribution, table)
	resolver := extract.NewYtDlp(cfg.Download.Format, logger)

	var variants extract.VariantResolver
	if cfg.Download.TikTokHD {
		variants = extract.NewPageResolver(time.Duration(cfg.Download.TimeoutSeconds)*time.Second, logger)
	}

	adapters := extract.NewRegistry(
		extract.NewTikTok(resolver, variants, logger),
		extract.New(domain.PlatformInstagram, resolver, logger),
		extract.New(domain.PlatformYouTube, resolver, logger),
		extract.New(domain.PlatformTwitter, resolver, logger),
	)

	fetcher := fetch.New(fetch.Config{
		Timeout:    time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
		ChunkBytes: cfg.Download.ChunkBytes,
		Logger:     logger,
	})

	telegram := channel.NewTelegram(channel.TelegramConfig{
		Token:     cfg.Bot.Token,
		ParseMode: cfg.Bot.ParseMode,
		Composer:  composer,
		Logger:    logger,
	})

	orch := pipeline.New(pipeline.Config{
		Table:    table,
		Adapters: adapters,
		Fetcher:  fetcher,
		Composer: composer,
		Surface:  telegram,
		Mention:  cfg.Bot.Mention,
		Logger:   logger,
	})
	telegram.OnMessage(func(ctx context.Context, msg domain.Inbound) {
		orch.Handle(ctx, msg)
	})

	var web *channel.Web
	if cfg.Web.Enabled {
		web = channel.NewWeb(channel.WebConfig{
			Host:            cfg.Web.Host,
			Port:            cfg.Web.Port,
			Version:         version,
			MetricsEnabled:  cfg.Metrics.Enabled,
			MetricsEndpoint: cfg.Metrics.Endpoint,
			Logger:          logger,
		})
		go func() {
			if err := web.Start(ctx); err != nil {
				logger.Error("web surface error", "err", err)
			}
		}()
	}

	logger.Info("bot started", "mention", cfg.Bot.Mention, "web", cfg.Web.Enabled)

	err := telegram.Start(ctx)

	if web != nil {
		web.Stop()
	}
	logger.Info("shutdown complete")
	return err
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. bot.mention)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. download.timeoutSeconds 60)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
