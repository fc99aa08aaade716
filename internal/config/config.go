package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Server   struct {
		URL              string `json:"url"`
		HeartbeatSeconds int    `json:"heartbeat_seconds"`
		ReconnectSeconds int    `json:"reconnect_seconds"`
	} `json:"server"`
	Client struct {
		ID                  string `json:"id"`
		SoundsDir           string `json:"sounds_dir"`
		MaxConcurrentSounds int    `json:"max_concurrent_sounds"`
	} `json:"client"`
	Confirmations struct {
		TimeoutSeconds int `json:"timeout_seconds"`
		SweepSeconds   int `json:"sweep_seconds"`
	} `json:"confirmations"`
	Control struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"control"`
	History struct {
		Keep int `json:"keep"`
	} `json:"history"`
	Reminder struct {
		Schedule string `json:"schedule"`
	} `json:"reminder"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".klaxon"),
		LogLevel: "info",
	}
	cfg.Server.URL = "ws://localhost:8080/ws"
	cfg.Server.HeartbeatSeconds = 30
	cfg.Server.ReconnectSeconds = 5
	cfg.Client.SoundsDir = "./sounds"
	cfg.Client.MaxConcurrentSounds = 4
	cfg.Confirmations.TimeoutSeconds = 300
	cfg.Confirmations.SweepSeconds = 1
	cfg.Control.Enabled = true
	cfg.Control.Listen = "127.0.0.1:8642"
	cfg.History.Keep = 1000

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if url := os.Getenv("SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}
	if id := os.Getenv("CLIENT_ID"); id != "" {
		cfg.Client.ID = id
	}
	if dir := os.Getenv("SOUNDS_DIR"); dir != "" {
		cfg.Client.SoundsDir = dir
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	// Without an explicit identity each run gets a fresh one.
	if cfg.Client.ID == "" {
		cfg.Client.ID = uuid.New().String()
	}

	return cfg, nil
}

// Save writes the config as indented JSON via a temp file and rename.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Server.HeartbeatSeconds) * time.Second
}

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Server.ReconnectSeconds) * time.Second
}

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Confirmations.TimeoutSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Confirmations.SweepSeconds) * time.Second
}
