package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

func writeSkill(t *testing.T, dir, name, description, body string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n" + body
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderDiscoversBundles(t *testing.T) {
	workspace := t.TempDir()
	writeSkill(t, filepath.Join(workspace, "skills"), "weather", "Reports current weather", "Use the weather API.")

	l := NewLoader(workspace, "", "")
	all := l.ListSkills()
	if len(all) != 1 || all[0].Name != "weather" {
		t.Fatalf("expected 1 bundle named weather, got %+v", all)
	}
	if all[0].Description != "Reports current weather" {
		t.Errorf("unexpected description: %q", all[0].Description)
	}

	content, ok := l.GetContent("weather")
	if !ok || content != "Use the weather API." {
		t.Errorf("unexpected content: %q ok=%v", content, ok)
	}
}

func TestFilterSkillsRespectsAllowList(t *testing.T) {
	workspace := t.TempDir()
	writeSkill(t, filepath.Join(workspace, "skills"), "weather", "desc", "body")
	writeSkill(t, filepath.Join(workspace, "skills"), "billing", "desc", "body")

	l := NewLoader(workspace, "", "")
	filtered := l.FilterSkills([]string{"weather"})
	if len(filtered) != 1 || filtered[0].Name != "weather" {
		t.Fatalf("expected only weather, got %+v", filtered)
	}
}

func TestReloadPicksUpNewBundle(t *testing.T) {
	workspace := t.TempDir()
	l := NewLoader(workspace, "", "")
	if len(l.ListSkills()) != 0 {
		t.Fatalf("expected no bundles initially")
	}

	writeSkill(t, filepath.Join(workspace, "skills"), "new-skill", "desc", "body")
	l.Reload()

	if len(l.ListSkills()) != 1 {
		t.Fatalf("expected reload to discover new bundle")
	}
}

// fakeBuiltin is a minimal Skill used to exercise the built-in side of the
// message-processing and post-response pipelines.
type fakeBuiltin struct {
	name       string
	skipAI     bool
	replyText  string
	hookCalled *bool
}

func (f *fakeBuiltin) Name() string           { return f.name }
func (f *fakeBuiltin) Enabled(string) bool    { return true }
func (f *fakeBuiltin) ToolDefinitions() []providers.ToolDefinition { return nil }

func (f *fakeBuiltin) ProcessMessage(ctx context.Context, msg IncomingMessage) (*SkillResult, error) {
	if f.skipAI {
		return &SkillResult{Kind: ResultKindSkipAI, ReplyText: f.replyText}, nil
	}
	return &SkillResult{Kind: ResultKindPassthrough}, nil
}

func (f *fakeBuiltin) PostResponseHook(ctx context.Context, run AgentRun) error {
	if f.hookCalled != nil {
		*f.hookCalled = true
	}
	return nil
}

func TestProcessMessageShortCircuitsOnSkipAI(t *testing.T) {
	l := NewLoader(t.TempDir(), "", "")
	l.RegisterBuiltin(&fakeBuiltin{name: "cmd", skipAI: true, replyText: "handled"})

	res, err := l.ProcessMessage(context.Background(), "agent-1", IncomingMessage{Text: "ping"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ResultKindSkipAI || res.ReplyText != "handled" {
		t.Errorf("expected skip_ai result, got %+v", res)
	}
}

func TestProcessMessagePassthroughWhenNoSkillActs(t *testing.T) {
	l := NewLoader(t.TempDir(), "", "")
	l.RegisterBuiltin(&fakeBuiltin{name: "noop"})

	res, err := l.ProcessMessage(context.Background(), "agent-1", IncomingMessage{Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ResultKindPassthrough || res.Text != "hello" {
		t.Errorf("expected passthrough of original text, got %+v", res)
	}
}

func TestPostResponseHookInvokesEnabledSkills(t *testing.T) {
	called := false
	l := NewLoader(t.TempDir(), "", "")
	l.RegisterBuiltin(&fakeBuiltin{name: "tracker", hookCalled: &called})

	l.PostResponseHook(context.Background(), "agent-1", AgentRun{Output: "done"})
	if !called {
		t.Error("expected post-response hook to run")
	}
}
