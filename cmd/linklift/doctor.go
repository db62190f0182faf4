package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"linklift/internal/classify"
	"linklift/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your LinkLift installation",
		Long: `Verifies that LinkLift's configuration, bot token, external tools, and
ports are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("LinkLift Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			haveFile := true
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s (env-only setup)", cfgPath))
				warned++
				haveFile = false
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads and validates
			cfg := config.Defaults()
			config.ApplyEnv(cfg)
			if haveFile {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					printFail("Config validation", err.Error())
					failed++
				} else {
					printPass("Config validation", "valid")
					passed++
					cfg = loaded
				}
			}

			// 3. Bot token present
			if cfg.Bot.Token == "" {
				printFail("Bot token", "not set (bot.token or TELEGRAM_BOT_TOKEN)")
				failed++
			} else {
				printPass("Bot token", "configured")
				passed++
			}

			// 4. Platform table loads
			if cfg.Download.PlatformsFile != "" {
				data, err := os.ReadFile(config.ExpandPath(cfg.Download.PlatformsFile))
				if err != nil {
					printFail("Platform table", err.Error())
					failed++
				} else if _, err := classify.Load(data); err != nil {
					printFail("Platform table", err.Error())
					failed++
				} else {
					printPass("Platform table", cfg.Download.PlatformsFile)
					passed++
				}
			} else {
				printPass("Platform table", fmt.Sprintf("built-in (%d platforms)", len(classify.Default().Entries())))
				passed++
			}

			// 5. yt-dlp available
			if path, err := exec.LookPath("yt-dlp"); err != nil {
				printWarn("yt-dlp", "not on PATH (will be downloaded on first start)")
				warned++
			} else {
				printPass("yt-dlp", path)
				passed++
			}

			// 6. Headless browser for TikTok HD
			if cfg.Download.TikTokHD {
				if path := findBrowser(); path == "" {
					printWarn("Browser", "no Chrome/Chromium found; TikTok HD will degrade to standard quality")
					warned++
				} else {
					printPass("Browser", path)
					passed++
				}
			}

			// 7. Web port available
			if cfg.Web.Enabled {
				if err := checkPort(cfg.Web.Port); err != nil {
					printWarn("Web port", fmt.Sprintf("port %d may be in use: %v", cfg.Web.Port, err))
					warned++
				} else {
					printPass("Web port", fmt.Sprintf(":%d available", cfg.Web.Port))
					passed++
				}
			}

			// 8. Log file writable
			if cfg.General.LogFile != "" {
				f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					printWarn("Log file", err.Error())
					warned++
				} else {
					f.Close()
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running LinkLift.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nLinkLift should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! LinkLift is ready to run.\n")
			}
			return nil
		},
	}
}

func findBrowser() string {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
