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

// KokoroProvider calls a self-hosted Kokoro TTS server (OpenAI-compatible
// /v1/audio/speech route, e.g. the kokoro-fastapi project), for operators
// who run their own model instead of a paid API.
type KokoroProvider struct {
	baseURL      string
	defaultVoice string
	client       *http.Client
}

func NewKokoroProvider(baseURL, defaultVoice string) *KokoroProvider {
	if defaultVoice == "" {
		defaultVoice = "af_heart"
	}
	return &KokoroProvider{
		baseURL:      baseURL,
		defaultVoice: defaultVoice,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *KokoroProvider) Name() string { return "kokoro" }

func (p *KokoroProvider) Synthesize(ctx context.Context, text string, opts Options) ([]byte, string, error) {
	voice := opts.Voice
	if voice == "" {
		voice = p.defaultVoice
	}
	format := opts.Format
	if format == "" {
		format = "mp3"
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":           "kokoro",
		"input":           text,
		"voice":           voice,
		"response_format": format,
	})
	if err != nil {
		return nil, "", fmt.Errorf("tts kokoro: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("tts kokoro: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts kokoro: request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts kokoro: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts kokoro: status %d: %s", resp.StatusCode, string(audio))
	}
	return audio, mimeForFormat(format), nil
}
