package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/klaxon/internal/client"
	"github.com/user/klaxon/internal/control"
	"github.com/user/klaxon/internal/dispatch"
	"github.com/user/klaxon/internal/history"
	"github.com/user/klaxon/internal/notify"
	"github.com/user/klaxon/internal/protocol"
	"github.com/user/klaxon/internal/registry"
	"github.com/user/klaxon/internal/reminder"
	"github.com/user/klaxon/internal/sound"
	"github.com/user/klaxon/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the klaxon daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "klaxon.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Client.SoundsDir, 0755); err != nil {
		return fmt.Errorf("create sounds dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queues live here so they survive reconnects.
	alerts := make(chan protocol.Alert, 100)
	confirms := make(chan protocol.Confirmation, 100)

	clientID := protocol.ClientID(cfg.Client.ID)
	reg := registry.New(clientID, cfg.ConfirmTimeout())
	player := sound.NewPlayer(cfg.Client.SoundsDir, int64(cfg.Client.MaxConcurrentSounds))
	notifier := notify.NewDesktop()
	hist := history.NewStore(filepath.Join(cfg.DataDir, "history.jsonl"), cfg.History.Keep)

	disp := dispatch.New(player, notifier, reg, hist, confirms)

	recon := client.NewReconnector(cfg.Server.URL, clientID, cfg.HeartbeatInterval(),
		client.FixedDelay(cfg.ReconnectDelay()), alerts, confirms)

	// Telegram adapter
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		adapter, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID, reg, disp, recon.Status)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		disp.AddPresenter(adapter)
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token or chat id)")
	}

	sweeper := registry.NewSweeper(reg, confirms, cfg.SweepInterval())
	go sweeper.Run(ctx)
	go disp.Run(ctx, alerts)
	go recon.Run(ctx)

	// Reminder
	rem := reminder.New(reg, notifier, cfg.Reminder.Schedule)
	if err := rem.Start(); err != nil {
		return fmt.Errorf("start reminder: %w", err)
	}
	defer rem.Stop()

	// Control API
	if cfg.Control.Enabled {
		ctrl := control.NewServer(reg, disp, hist, recon.Status)
		httpServer := &http.Server{
			Addr:    cfg.Control.Listen,
			Handler: ctrl,
		}
		go func() {
			slog.Info("control api started", "listen", cfg.Control.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("control api error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	slog.Info("klaxon started",
		"server_url", cfg.Server.URL,
		"client_id", cfg.Client.ID,
		"sounds_dir", cfg.Client.SoundsDir,
		"log_level", cfg.LogLevel,
		"pid_file", pidPath,
	)

	if err := notifier.Notify("Alert client started",
		fmt.Sprintf("Connecting to %s", cfg.Server.URL), protocol.LevelInfo); err != nil {
		slog.Warn("startup notification failed", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
