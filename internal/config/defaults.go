package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Bot: BotConfig{
			Token:       "", // filled from TELEGRAM_BOT_TOKEN
			Mention:     "@LinkLift_Bot",
			Attribution: "@illusivehacks",
			ParseMode:   "Markdown",
		},
		Download: DownloadConfig{
			Format:         "best[height<=720][ext=mp4]/best[ext=mp4]/best",
			TimeoutSeconds: 120,
			ChunkBytes:     8192,
			TikTokHD:       true,
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
