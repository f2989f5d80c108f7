package config

import (
	"reflect"
	"testing"
)

func TestFlatten(t *testing.T) {
	nested := map[string]any{
		"data_dir": "/tmp/x",
		"llm": map[string]any{
			"model":   "gpt-4.1-mini",
			"api_key": "sk-123",
		},
		"sweep": map[string]any{
			"enabled": true,
		},
	}

	flat := Flatten(nested)
	want := map[string]any{
		"data_dir":      "/tmp/x",
		"llm.model":     "gpt-4.1-mini",
		"llm.api_key":   "sk-123",
		"sweep.enabled": true,
	}
	if !reflect.DeepEqual(flat, want) {
		t.Errorf("Flatten mismatch:\ngot  %v\nwant %v", flat, want)
	}
}

func TestUnflatten(t *testing.T) {
	flat := map[string]any{
		"log_level":      "debug",
		"llm.model":      "gpt-4.1",
		"llm.max_tokens": 4000,
	}

	nested := Unflatten(flat)
	llm, ok := nested["llm"].(map[string]any)
	if !ok {
		t.Fatalf("llm is not a nested map: %v", nested["llm"])
	}
	if llm["model"] != "gpt-4.1" || llm["max_tokens"] != 4000 {
		t.Errorf("llm subtree wrong: %v", llm)
	}
	if nested["log_level"] != "debug" {
		t.Errorf("top-level key wrong: %v", nested["log_level"])
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	nested := map[string]any{
		"http": map[string]any{
			"listen": ":8484",
		},
		"realtime": map[string]any{
			"model": "gpt-realtime",
			"voice": "marin",
		},
	}
	got := Unflatten(Flatten(nested))
	if !reflect.DeepEqual(got, nested) {
		t.Errorf("round trip mismatch:\ngot  %v\nwant %v", got, nested)
	}
}

func TestIsSecretKey(t *testing.T) {
	if !IsSecretKey("llm.api_key") || !IsSecretKey("telegram.token") {
		t.Error("known secrets not flagged")
	}
	if IsSecretKey("llm.model") || IsSecretKey("exam.topic") {
		t.Error("plain keys flagged as secret")
	}
}

func TestMaskSecretsEmptyValue(t *testing.T) {
	flat := map[string]any{"llm.api_key": ""}
	out := MaskSecrets(flat)
	if out["llm.api_key"] != "" {
		t.Errorf("empty secret should stay empty: %v", out["llm.api_key"])
	}
}
