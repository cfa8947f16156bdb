package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// openaiTranscriber uploads recorded clips to the OpenAI audio
// transcriptions endpoint.
type openaiTranscriber struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewOpenAITranscriber(cfg config.OpenAIConfig) (Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	return &openaiTranscriber{
		cfg:    cfg,
		client: newHTTPClient(cfg.TimeoutMS),
	}, nil
}

type openaiTranscriptionResponse struct {
	Text string `json:"text"`
}

func (t *openaiTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy audio file: %w", err)
	}
	if err := writer.WriteField("model", t.cfg.WhisperModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	url := strings.TrimRight(t.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription returned status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded openaiTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return decoded.Text, nil
}

// openaiEnhancer cleans up transcripts through the chat completions
// endpoint.
type openaiEnhancer struct {
	cfg         config.OpenAIConfig
	enhancement config.EnhancementConfig
	client      *http.Client
}

func NewOpenAIEnhancer(cfg config.OpenAIConfig, enhancement config.EnhancementConfig) (Enhancer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	return &openaiEnhancer{
		cfg:         cfg,
		enhancement: enhancement,
		client:      newHTTPClient(cfg.TimeoutMS),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *openaiEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	payload := chatRequest{
		Model: e.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: e.enhancement.Prompt},
			{Role: "user", Content: text},
		},
		Temperature: e.enhancement.Temperature,
		MaxTokens:   e.enhancement.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("enhancement request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("enhancement returned status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode enhancement response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("enhancement returned no choices")
	}
	enhanced := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if enhanced == "" {
		// An empty completion is treated as no improvement.
		return text, nil
	}
	return enhanced, nil
}

func newHTTPClient(timeoutMS int) *http.Client {
	timeout := 45 * time.Second
	if timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}
	return &http.Client{Timeout: timeout}
}
