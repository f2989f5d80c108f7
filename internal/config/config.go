package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	HTTP     struct {
		Listen string `json:"listen"`
	} `json:"http"`
	LLM struct {
		BaseURL         string  `json:"base_url"`
		APIKey          string  `json:"api_key"`
		Model           string  `json:"model"`
		MaxTokens       int     `json:"max_tokens"`
		Temperature     float32 `json:"temperature"`
		MaxPromptTokens int     `json:"max_prompt_tokens"`
	} `json:"llm"`
	Realtime struct {
		Model            string `json:"model"`
		Voice            string `json:"voice"`
		TranscribeModel  string `json:"transcribe_model"`
		SecretTTLSeconds int    `json:"secret_ttl_seconds"`
	} `json:"realtime"`
	Exam struct {
		Topic         string `json:"topic"`
		Description   string `json:"description"`
		Questions     string `json:"questions"`
		LearningGoals string `json:"learning_goals"`
	} `json:"exam"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
	Sweep struct {
		Enabled     bool   `json:"enabled"`
		Schedule    string `json:"schedule"`
		IdleMinutes int    `json:"idle_minutes"`
	} `json:"sweep"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir: filepath.Join(os.Getenv("HOME"), ".viva"),
	}
	cfg.LogLevel = "info"
	cfg.HTTP.Listen = ":8484"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4.1-mini"
	cfg.LLM.MaxTokens = 2000
	cfg.LLM.Temperature = 0.3
	cfg.LLM.MaxPromptTokens = 100000
	cfg.Realtime.Model = "gpt-realtime"
	cfg.Realtime.Voice = "marin"
	cfg.Realtime.TranscribeModel = "whisper-1"
	cfg.Realtime.SecretTTLSeconds = 600
	cfg.Sweep.Enabled = true
	cfg.Sweep.Schedule = "*/5 * * * *"
	cfg.Sweep.IdleMinutes = 15

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
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// Save writes the config to path atomically, creating the parent
// directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
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

// asMap round-trips the config through JSON into a nested map.
func (c *Config) asMap() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetValue returns the value at the given dot-separated key.
func (c *Config) GetValue(key string) (any, error) {
	m, err := c.asMap()
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue sets the value at the given dot-separated key. The raw string
// is coerced to the type the field currently holds.
func (c *Config) SetValue(key, raw string) error {
	m, err := c.asMap()
	if err != nil {
		return err
	}
	flat := Flatten(m)
	current, ok := flat[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	var value any
	switch current.(type) {
	case bool:
		value, err = strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("key %s expects a boolean: %w", key, err)
		}
	case float64:
		value, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("key %s expects a number: %w", key, err)
		}
	default:
		value = raw
	}
	flat[key] = value

	data, err := json.Marshal(Unflatten(flat))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// ListValues returns all config keys flattened, with secret values masked.
func (c *Config) ListValues() (map[string]any, error) {
	m, err := c.asMap()
	if err != nil {
		return nil, err
	}
	return MaskSecrets(Flatten(m)), nil
}
