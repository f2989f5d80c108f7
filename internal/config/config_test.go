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

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
}

func TestLoadWritesDefaults(t *testing.T) {
	clearEnvOverrides(t)
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level: got %q", cfg.LogLevel)
	}
	if cfg.HTTP.Listen != ":8484" {
		t.Errorf("default listen: got %q", cfg.HTTP.Listen)
	}
	if cfg.Realtime.Model != "gpt-realtime" {
		t.Errorf("default realtime model: got %q", cfg.Realtime.Model)
	}
	if !cfg.Sweep.Enabled || cfg.Sweep.IdleMinutes != 15 {
		t.Errorf("default sweep: enabled=%v idle=%d", cfg.Sweep.Enabled, cfg.Sweep.IdleMinutes)
	}

	// First load should have written the defaults file.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after first Load: %v", err)
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	clearEnvOverrides(t)
	path := tempConfigPath(t)

	original := &Config{
		DataDir:  "/tmp/test-data",
		LogLevel: "debug",
	}
	original.LLM.BaseURL = "https://llm.example.com/v1"
	original.LLM.APIKey = "sk-test-round-trip"
	original.LLM.Model = "gpt-4.1"
	original.LLM.MaxTokens = 4000
	original.LLM.Temperature = 0.5
	original.Realtime.Model = "gpt-realtime"
	original.Realtime.Voice = "cedar"
	original.Exam.Topic = "Binary search trees"
	original.Telegram.Token = "bot-token-456"
	original.Telegram.ChatID = 991122

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LLM.APIKey != original.LLM.APIKey {
		t.Errorf("LLM.APIKey mismatch: %v != %v", loaded.LLM.APIKey, original.LLM.APIKey)
	}
	if loaded.LLM.Temperature != original.LLM.Temperature {
		t.Errorf("LLM.Temperature mismatch: %v != %v", loaded.LLM.Temperature, original.LLM.Temperature)
	}
	if loaded.Realtime.Voice != original.Realtime.Voice {
		t.Errorf("Realtime.Voice mismatch: %v != %v", loaded.Realtime.Voice, original.Realtime.Voice)
	}
	if loaded.Exam.Topic != original.Exam.Topic {
		t.Errorf("Exam.Topic mismatch: %v != %v", loaded.Exam.Topic, original.Exam.Topic)
	}
	if loaded.Telegram.ChatID != original.Telegram.ChatID {
		t.Errorf("Telegram.ChatID mismatch: %v != %v", loaded.Telegram.ChatID, original.Telegram.ChatID)
	}
}

func TestSaveAtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.LLM.APIKey = "sk-from-file"
	cfg.LLM.BaseURL = "https://file.example.com/v1"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_BASE_URL", "https://env.example.com/v1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-bot-token")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.APIKey != "sk-from-env" {
		t.Errorf("env should win over file: %q", loaded.LLM.APIKey)
	}
	if loaded.LLM.BaseURL != "https://env.example.com/v1" {
		t.Errorf("env should win over file: %q", loaded.LLM.BaseURL)
	}
	if loaded.Telegram.Token != "env-bot-token" {
		t.Errorf("env should win over file: %q", loaded.Telegram.Token)
	}
}

func TestGetValue(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	cfg.Exam.Topic = "Graph traversal"

	v, err := cfg.GetValue("exam.topic")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "Graph traversal" {
		t.Errorf("got %v", v)
	}

	if _, err := cfg.GetValue("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetValue(t *testing.T) {
	cfg := &Config{}
	cfg.Sweep.IdleMinutes = 15

	if err := cfg.SetValue("exam.topic", "Sorting algorithms"); err != nil {
		t.Fatalf("SetValue string failed: %v", err)
	}
	if cfg.Exam.Topic != "Sorting algorithms" {
		t.Errorf("topic not set: %q", cfg.Exam.Topic)
	}

	if err := cfg.SetValue("sweep.idle_minutes", "30"); err != nil {
		t.Fatalf("SetValue number failed: %v", err)
	}
	if cfg.Sweep.IdleMinutes != 30 {
		t.Errorf("idle_minutes not set: %d", cfg.Sweep.IdleMinutes)
	}

	if err := cfg.SetValue("sweep.enabled", "false"); err != nil {
		t.Fatalf("SetValue bool failed: %v", err)
	}
	if cfg.Sweep.Enabled {
		t.Error("enabled should be false")
	}

	if err := cfg.SetValue("sweep.enabled", "yes-please"); err == nil {
		t.Error("expected error for non-boolean value")
	}
	if err := cfg.SetValue("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestListValuesMasksSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.APIKey = "sk-abcdef123456"
	cfg.Telegram.Token = "tok"
	cfg.Exam.Topic = "Recursion"

	values, err := cfg.ListValues()
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	if values["llm.api_key"] != "***3456" {
		t.Errorf("api key not masked: %v", values["llm.api_key"])
	}
	if values["telegram.token"] != "***tok" {
		t.Errorf("short token not masked: %v", values["telegram.token"])
	}
	if values["exam.topic"] != "Recursion" {
		t.Errorf("plain value altered: %v", values["exam.topic"])
	}
}
