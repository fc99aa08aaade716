package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

// clearEnv blanks the env overrides so Load sees only the file.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SERVER_URL", "")
	t.Setenv("CLIENT_ID", "")
	t.Setenv("SOUNDS_DIR", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	original := &Config{
		DataDir:  "/tmp/test-data",
		LogLevel: "debug",
	}
	original.Server.URL = "ws://alerts.example.com:9000/ws"
	original.Server.HeartbeatSeconds = 15
	original.Server.ReconnectSeconds = 2
	original.Client.ID = "client-round-trip"
	original.Client.SoundsDir = "/opt/sounds"
	original.Client.MaxConcurrentSounds = 2
	original.Confirmations.TimeoutSeconds = 60
	original.History.Keep = 50
	original.Telegram.Token = "bot-token-456"

	// Save
	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	// Reload
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Compare key fields
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.Server.URL != original.Server.URL {
		t.Errorf("Server.URL mismatch: %v != %v", loaded.Server.URL, original.Server.URL)
	}
	if loaded.Server.HeartbeatSeconds != original.Server.HeartbeatSeconds {
		t.Errorf("Server.HeartbeatSeconds mismatch: %v != %v", loaded.Server.HeartbeatSeconds, original.Server.HeartbeatSeconds)
	}
	if loaded.Client.ID != original.Client.ID {
		t.Errorf("Client.ID mismatch: %v != %v", loaded.Client.ID, original.Client.ID)
	}
	if loaded.Client.SoundsDir != original.Client.SoundsDir {
		t.Errorf("Client.SoundsDir mismatch: %v != %v", loaded.Client.SoundsDir, original.Client.SoundsDir)
	}
	if loaded.Confirmations.TimeoutSeconds != original.Confirmations.TimeoutSeconds {
		t.Errorf("Confirmations.TimeoutSeconds mismatch: %v != %v", loaded.Confirmations.TimeoutSeconds, original.Confirmations.TimeoutSeconds)
	}
	if loaded.History.Keep != original.History.Keep {
		t.Errorf("History.Keep mismatch: %v != %v", loaded.History.Keep, original.History.Keep)
	}
	if loaded.Telegram.Token != original.Telegram.Token {
		t.Errorf("Telegram.Token mismatch: %v != %v", loaded.Telegram.Token, original.Telegram.Token)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.URL != "ws://localhost:8080/ws" {
		t.Errorf("expected default server url, got %v", cfg.Server.URL)
	}
	if cfg.Server.HeartbeatSeconds != 30 {
		t.Errorf("expected heartbeat_seconds=30, got %v", cfg.Server.HeartbeatSeconds)
	}
	if cfg.Server.ReconnectSeconds != 5 {
		t.Errorf("expected reconnect_seconds=5, got %v", cfg.Server.ReconnectSeconds)
	}
	if cfg.Client.SoundsDir != "./sounds" {
		t.Errorf("expected sounds_dir=./sounds, got %v", cfg.Client.SoundsDir)
	}
	if cfg.Confirmations.TimeoutSeconds != 300 {
		t.Errorf("expected timeout_seconds=300, got %v", cfg.Confirmations.TimeoutSeconds)
	}
	if cfg.Confirmations.SweepSeconds != 1 {
		t.Errorf("expected sweep_seconds=1, got %v", cfg.Confirmations.SweepSeconds)
	}
	if cfg.Control.Listen != "127.0.0.1:8642" {
		t.Errorf("expected control listen=127.0.0.1:8642, got %v", cfg.Control.Listen)
	}
	if cfg.History.Keep != 1000 {
		t.Errorf("expected history keep=1000, got %v", cfg.History.Keep)
	}

	// First load writes the defaults file
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist after first Load: %v", err)
	}
}

func TestLoad_FreshClientIDPerRun(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	first, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first.Client.ID == "" {
		t.Fatal("expected a generated client id, got empty")
	}

	second, err := Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	// The defaults file stores an empty id, so each run gets its own.
	if second.Client.ID == first.Client.ID {
		t.Errorf("expected a fresh client id per run, got %v twice", first.Client.ID)
	}
}

func TestLoad_PersistedClientIDSticks(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Client.ID = "pinned-client"
	writeTestConfig(t, path, cfg)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Client.ID != "pinned-client" {
		t.Errorf("expected pinned-client, got %v", loaded.Client.ID)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Server.URL = "ws://from-file:1/ws"
	cfg.Client.ID = "file-client"
	cfg.Client.SoundsDir = "/file/sounds"
	writeTestConfig(t, path, cfg)

	t.Setenv("SERVER_URL", "ws://from-env:2/ws")
	t.Setenv("CLIENT_ID", "env-client")
	t.Setenv("SOUNDS_DIR", "/env/sounds")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.URL != "ws://from-env:2/ws" {
		t.Errorf("expected env server url to win, got %v", loaded.Server.URL)
	}
	if loaded.Client.ID != "env-client" {
		t.Errorf("expected env client id to win, got %v", loaded.Client.ID)
	}
	if loaded.Client.SoundsDir != "/env/sounds" {
		t.Errorf("expected env sounds dir to win, got %v", loaded.Client.SoundsDir)
	}
	if loaded.Telegram.Token != "env-token" {
		t.Errorf("expected env telegram token to win, got %v", loaded.Telegram.Token)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify no temp file left behind
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	// Verify the file is valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{
		DataDir:  "/tmp/test",
		LogLevel: "debug",
	}
	cfg.Server.URL = "ws://alerts:8080/ws"
	cfg.Server.HeartbeatSeconds = 30
	cfg.Client.MaxConcurrentSounds = 4

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}

	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	if m["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", m["log_level"])
	}

	server, ok := m["server"].(map[string]any)
	if !ok {
		t.Fatalf("expected server to be map, got %T", m["server"])
	}
	if server["url"] != "ws://alerts:8080/ws" {
		t.Errorf("expected server.url=ws://alerts:8080/ws, got %v", server["url"])
	}
	// JSON numbers are float64
	if server["heartbeat_seconds"] != float64(30) {
		t.Errorf("expected server.heartbeat_seconds=30, got %v", server["heartbeat_seconds"])
	}

	client, ok := m["client"].(map[string]any)
	if !ok {
		t.Fatalf("expected client to be map, got %T", m["client"])
	}
	if client["max_concurrent_sounds"] != float64(4) {
		t.Errorf("expected client.max_concurrent_sounds=4, got %v", client["max_concurrent_sounds"])
	}
}

func TestListValues_NoMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be unmasked
	if flat["telegram.token"] != "bot-token-abcd" {
		t.Errorf("expected unmasked telegram.token, got %v", flat["telegram.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be masked
	if flat["telegram.token"] != "***abcd" {
		t.Errorf("expected masked telegram.token=***abcd, got %v", flat["telegram.token"])
	}

	// Non-secrets should be unchanged
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{
		LogLevel: "debug",
	}
	cfg.Server.URL = "ws://alerts:8080/ws"
	cfg.Client.MaxConcurrentSounds = 8
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "server.url")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "ws://alerts:8080/ws" {
		t.Errorf("expected server.url=ws://alerts:8080/ws, got %v", v)
	}

	v, err = GetValue(path, "client.max_concurrent_sounds")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	// JSON numbers are float64
	if v != float64(8) {
		t.Errorf("expected client.max_concurrent_sounds=8, got %v (%T)", v, v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	expected := "unknown config key: nonexistent.key"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestSetValue_String(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.Server.URL = "ws://alerts:8080/ws"
	writeTestConfig(t, path, cfg)

	// Set a string value
	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	// Verify it was set
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug after set, got %v", v)
	}

	// Verify other values are preserved
	v, err = GetValue(path, "server.url")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "ws://alerts:8080/ws" {
		t.Errorf("expected server.url=ws://alerts:8080/ws (preserved), got %v", v)
	}
}

func TestSetValue_Numeric(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Client.MaxConcurrentSounds = 2
	writeTestConfig(t, path, cfg)

	// Set a numeric value (JSON parseable)
	if err := SetValue(path, "client.max_concurrent_sounds", "16"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "client.max_concurrent_sounds")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != float64(16) {
		t.Errorf("expected client.max_concurrent_sounds=16, got %v (%T)", v, v)
	}
}

func TestSetValue_Boolean(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	// Set a boolean value (JSON parseable)
	if err := SetValue(path, "control.enabled", "true"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "control.enabled")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != true {
		t.Errorf("expected control.enabled=true, got %v (%T)", v, v)
	}
}

func TestSetValue_Float(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "client.volume", "0.3"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "client.volume")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != 0.3 {
		t.Errorf("expected client.volume=0.3, got %v (%T)", v, v)
	}
}

func TestSetValue_NestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Server.URL = "ws://old:8080/ws"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "server.url", "ws://new:9000/ws"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "server.url")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "ws://new:9000/ws" {
		t.Errorf("expected server.url=ws://new:9000/ws, got %v", v)
	}
}

func TestSetValue_NewNestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	// Set a new nested key that doesn't exist in Config struct
	if err := SetValue(path, "custom.setting", "value"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "custom.setting")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "value" {
		t.Errorf("expected custom.setting=value, got %v", v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	err := SetValue(path, "log_level", "debug")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	// File doesn't exist yet; Load will create it with defaults
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	// Default log_level is "info"
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.json")

	cfg := &Config{LogLevel: "warn"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}
