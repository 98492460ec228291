package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const scriptPrompt = `You write narration scripts for short-form trend videos.

Topic: %s
Category: %s

Write a tight, spoken-word script of 130-170 words: a hook in the first
sentence, three or four concrete facts or angles on why this topic is
trending right now, and a one-line close inviting the viewer to comment.
Plain sentences only, no stage directions, no emoji, no headings.
Write in the language the topic itself is written in.

Return ONLY the script text.`

// ScriptClient writes video scripts through an LLM chat API
// (OpenAI-compatible or Anthropic).
type ScriptClient struct {
	client   *http.Client
	provider string // "openai" or "anthropic"
	model    string
	apiKey   string
	baseURL  string
	retries  int
}

// NewScriptClient creates a script-writing collaborator.
func NewScriptClient(provider, model, apiKey, baseURL string) *ScriptClient {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &ScriptClient{
		client:   &http.Client{Timeout: 60 * time.Second},
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		retries:  2,
	}
}

// WriteScript generates narration text for a topic. Retries transient
// failures internally before reporting failure to the orchestrator.
func (c *ScriptClient) WriteScript(ctx context.Context, topic, category string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("script writer: API key required")
	}

	prompt := fmt.Sprintf(scriptPrompt, topic, category)

	var raw string
	err := withRetry(ctx, c.retries+1, 2*time.Second, func() error {
		var callErr error
		switch c.provider {
		case "anthropic":
			raw, callErr = c.callAnthropic(ctx, prompt)
		default:
			raw, callErr = c.callOpenAI(ctx, prompt)
		}
		return callErr
	})
	if err != nil {
		return "", err
	}

	script := strings.TrimSpace(raw)
	// Some models wrap output in a code fence despite instructions.
	if strings.HasPrefix(script, "```") {
		if idx := strings.Index(script[3:], "\n"); idx >= 0 {
			script = script[3+idx+1:]
		}
		script = strings.TrimSpace(strings.TrimSuffix(script, "```"))
	}
	if script == "" {
		return "", fmt.Errorf("script writer: empty script returned")
	}
	return script, nil
}

func (c *ScriptClient) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *ScriptClient) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      c.model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}
