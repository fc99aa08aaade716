package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/klaxon/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Klaxon Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Alert server URL
		cfg.Server.URL = prompt(scanner, "Alert server URL", cfg.Server.URL)

		// 2. Client ID. Load fills in a random one for the running process,
		// so show the persisted value: blank stays blank and the daemon
		// keeps generating a fresh identity per run.
		storedID := ""
		if v, err := config.GetValue(cfgPath, "client.id"); err == nil {
			if s, ok := v.(string); ok {
				storedID = s
			}
		}
		cfg.Client.ID = prompt(scanner, "Client ID (optional, blank for random per run)", storedID)

		// 3. Sounds directory
		cfg.Client.SoundsDir = prompt(scanner, "Sounds directory", cfg.Client.SoundsDir)

		// 4. Telegram bot token (optional)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		// 5. Telegram chat ID (optional)
		if cfg.Telegram.Token != "" {
			chatIDStr := prompt(scanner, "Telegram chat ID", strconv.FormatInt(cfg.Telegram.ChatID, 10))
			if n, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
				cfg.Telegram.ChatID = n
			}
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
