package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIProvider calls OpenAI's /audio/speech endpoint.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	model        string
	defaultVoice string
	client       *http.Client
}

func NewOpenAIProvider(apiKey, baseURL, model, defaultVoice string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "tts-1"
	}
	if defaultVoice == "" {
		defaultVoice = "alloy"
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		defaultVoice: defaultVoice,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, opts Options) ([]byte, string, error) {
	voice := opts.Voice
	if voice == "" {
		voice = p.defaultVoice
	}
	format := opts.Format
	if format == "" {
		format = "mp3"
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":           p.model,
		"input":           text,
		"voice":           voice,
		"response_format": format,
	})
	if err != nil {
		return nil, "", fmt.Errorf("tts openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("tts openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts openai: status %d: %s", resp.StatusCode, string(audio))
	}
	return audio, mimeForFormat(format), nil
}

func mimeForFormat(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "opus", "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}
