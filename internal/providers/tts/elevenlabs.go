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

// ElevenLabsProvider calls ElevenLabs' text-to-speech REST API.
type ElevenLabsProvider struct {
	apiKey       string
	baseURL      string
	defaultVoice string // voice id
	modelID      string
	client       *http.Client
}

func NewElevenLabsProvider(apiKey, defaultVoiceID, modelID string) *ElevenLabsProvider {
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}
	return &ElevenLabsProvider{
		apiKey:       apiKey,
		baseURL:      "https://api.elevenlabs.io/v1",
		defaultVoice: defaultVoiceID,
		modelID:      modelID,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts Options) ([]byte, string, error) {
	voice := opts.Voice
	if voice == "" {
		voice = p.defaultVoice
	}
	if voice == "" {
		return nil, "", fmt.Errorf("tts elevenlabs: no voice id configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": p.modelID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("tts elevenlabs: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", p.baseURL, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("tts elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts elevenlabs: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts elevenlabs: status %d: %s", resp.StatusCode, string(audio))
	}
	return audio, "audio/mpeg", nil
}
