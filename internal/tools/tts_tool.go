package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/providers/tts"
)

// TtsManager is the narrow surface TtsTool needs from a tts.Manager.
type TtsManager interface {
	PrimaryProvider() string
	AutoMode() tts.AutoMode
	Synthesize(ctx context.Context, text string, opts tts.Options) ([]byte, string, error)
}

// TtsTool converts text to speech and returns a MEDIA: path to the audio
// file, the same convention create_image.go uses for generated images.
type TtsTool struct {
	mgr TtsManager
}

func NewTtsTool(mgr TtsManager) *TtsTool {
	return &TtsTool{mgr: mgr}
}

func (t *TtsTool) Name() string { return "text_to_speech" }

func (t *TtsTool) Description() string {
	return "Convert text to spoken audio. Returns a MEDIA: path to the generated audio file."
}

func (t *TtsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text":  map[string]interface{}{"type": "string", "description": "Text to speak"},
			"voice": map[string]interface{}{"type": "string", "description": "Voice name or id (provider-specific, optional)"},
		},
		"required": []string{"text"},
	}
}

func (t *TtsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	text, _ := args["text"].(string)
	if text == "" {
		return ErrorResult("text is required")
	}
	voice, _ := args["voice"].(string)

	audio, mime, err := t.mgr.Synthesize(ctx, text, tts.Options{Voice: voice})
	if err != nil {
		return ErrorResult(fmt.Sprintf("text-to-speech failed: %v", err))
	}

	ext := "mp3"
	if mime == "audio/wav" {
		ext = "wav"
	} else if mime == "audio/ogg" {
		ext = "ogg"
	}
	audioPath := filepath.Join(os.TempDir(), fmt.Sprintf("goclaw_tts_%d.%s", time.Now().UnixNano(), ext))
	if err := os.WriteFile(audioPath, audio, 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("failed to save generated audio: %v", err))
	}
	return &Result{ForLLM: fmt.Sprintf("MEDIA:%s", audioPath), Provider: t.mgr.PrimaryProvider()}
}
