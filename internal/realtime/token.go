// Package realtime mints ephemeral client secrets for the browser's voice
// session against an OpenAI-compatible realtime API. The secret carries the
// examiner instructions and the assessment_complete tool, so the client
// never sees the long-lived API key or the prompt configuration.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/viva/internal/types"
)

// Config holds the realtime session settings.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Voice           string
	TranscribeModel string
	// Instructions is the examiner system prompt for the session.
	Instructions string
	// SecretTTL is how long the minted secret stays valid.
	SecretTTL time.Duration
}

// Client mints realtime client secrets.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a realtime Client with the given configuration.
func New(config *Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// assessmentCompleteTool is the function the examiner calls when the exam is
// over, delivering its in-session evaluation as an AssessmentSummary.
var assessmentCompleteTool = map[string]any{
	"type": "function",
	"name": "assessment_complete",
	"description": "Call when the formative assessment is complete and you " +
		"are ready to generate a report.",
	"parameters": map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"mastery_level": map[string]any{
				"type": "string",
				"enum": []string{
					types.MasteryNovice,
					types.MasteryDeveloping,
					types.MasteryCompetent,
					types.MasteryProficient,
				},
			},
			"evidence": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"misconceptions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"recommended_next_steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
		},
		"required": []string{
			"mastery_level",
			"evidence",
			"misconceptions",
			"recommended_next_steps",
			"confidence",
		},
	},
}

// MintClientSecret requests a short-lived client secret bound to a fully
// configured exam session and returns the upstream payload verbatim. Fails
// with ErrMissingCredential before any network call when no API key is
// configured, and with ErrUpstream on a non-success response.
func (c *Client) MintClientSecret(ctx context.Context) (json.RawMessage, error) {
	if c.config.APIKey == "" {
		return nil, types.ErrMissingCredential
	}

	ttl := c.config.SecretTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	body := map[string]any{
		"expires_after": map[string]any{
			"anchor":  "created_at",
			"seconds": int(ttl.Seconds()),
		},
		"session": map[string]any{
			"type":              "realtime",
			"model":             c.config.Model,
			"instructions":      c.config.Instructions,
			"output_modalities": []string{"audio"},
			"tool_choice":       "auto",
			"tools":             []any{assessmentCompleteTool},
			"audio": map[string]any{
				"input": map[string]any{
					"transcription": map[string]any{
						"model":    c.config.TranscribeModel,
						"language": "en",
					},
					"turn_detection": map[string]any{
						"type":               "server_vad",
						"create_response":    true,
						"interrupt_response": true,
					},
				},
				"output": map[string]any{
					"voice": c.config.Voice,
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal client secret request: %w", err)
	}

	url := c.config.BaseURL + "/realtime/client_secrets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create client secret request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read client secret response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrUpstream, resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}
