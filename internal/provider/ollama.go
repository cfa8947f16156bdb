package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// ollamaEnhancer cleans up transcripts through a local Ollama instance.
type ollamaEnhancer struct {
	endpoint    string
	model       string
	enhancement config.EnhancementConfig
}

func NewOllamaEnhancer(cfg config.LocalConfig, enhancement config.EnhancementConfig) Enhancer {
	return &ollamaEnhancer{
		endpoint:    cfg.OllamaEndpoint,
		model:       cfg.OllamaModel,
		enhancement: enhancement,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (e *ollamaEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	payload := ollamaRequest{
		Model:  e.model,
		Prompt: text,
		System: e.enhancement.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: e.enhancement.Temperature,
			NumPredict:  e.enhancement.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	enhanced := strings.TrimSpace(decoded.Response)
	if enhanced == "" {
		return text, nil
	}
	return enhanced, nil
}
