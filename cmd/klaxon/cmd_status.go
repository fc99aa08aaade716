package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/klaxon/internal/config"
)

var historyLimit int

func init() {
	rootCmd.AddCommand(statusCmd, pendingCmd, confirmCmd, historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of entries to show")
}

// controlGet fetches a control API endpoint and decodes the JSON body into out.
func controlGet(cfg *config.Config, path string, out any) error {
	resp, err := http.Get("http://" + cfg.Control.Listen + path)
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("control api returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon connection status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var st struct {
			State       string     `json:"state"`
			Attempts    int        `json:"attempts"`
			ConnectedAt *time.Time `json:"connected_at"`
			LastError   string     `json:"last_error"`
			Pending     int        `json:"pending"`
		}
		if err := controlGet(cfg, "/api/status", &st); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "State:     %s\n", st.State)
		fmt.Fprintf(os.Stdout, "Attempts:  %d\n", st.Attempts)
		if st.ConnectedAt != nil {
			fmt.Fprintf(os.Stdout, "Connected: %s\n", st.ConnectedAt.Local().Format(time.RFC3339))
		}
		fmt.Fprintf(os.Stdout, "Pending:   %d\n", st.Pending)
		if st.LastError != "" {
			fmt.Fprintf(os.Stdout, "Last error: %s\n", st.LastError)
		}
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List alerts awaiting confirmation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var pending []struct {
			ID        string    `json:"id"`
			Title     string    `json:"title"`
			Level     string    `json:"level"`
			ExpiresAt time.Time `json:"expires_at"`
		}
		if err := controlGet(cfg, "/api/pending", &pending); err != nil {
			return err
		}

		if len(pending) == 0 {
			fmt.Fprintln(os.Stdout, "No alerts awaiting confirmation.")
			return nil
		}
		for _, p := range pending {
			fmt.Fprintf(os.Stdout, "%s  [%s]  %s  (auto-confirms %s)\n",
				p.ID, p.Level, p.Title, p.ExpiresAt.Local().Format("15:04:05"))
		}
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <alert-id>",
	Short: "Confirm a pending alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		id := args[0]

		resp, err := http.Post("http://"+cfg.Control.Listen+"/api/confirm/"+id, "application/json", nil)
		if err != nil {
			return fmt.Errorf("daemon not reachable: %w", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			fmt.Fprintf(os.Stdout, "Confirmed %s.\n", id)
			return nil
		case http.StatusNotFound:
			return fmt.Errorf("alert %s is not pending", id)
		default:
			return fmt.Errorf("control api returned %s", resp.Status)
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently received alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var records []struct {
			Seq        int64     `json:"seq"`
			ReceivedAt time.Time `json:"received_at"`
			Alert      struct {
				ID    string `json:"id"`
				Title string `json:"title"`
				Level string `json:"level"`
			} `json:"alert"`
		}
		path := fmt.Sprintf("/api/history?limit=%d", historyLimit)
		if err := controlGet(cfg, path, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stdout, "No alerts received yet.")
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(os.Stdout, "%s  [%s]  %s  (%s)\n",
				r.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
				r.Alert.Level, r.Alert.Title, r.Alert.ID)
		}
		return nil
	},
}
