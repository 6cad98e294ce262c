package tools

import "testing"

func TestRenderCommandTemplateSubstitutesBothPlaceholderSpellings(t *testing.T) {
	out, err := RenderCommandTemplate("tail -n <lines> {file}", []ToolParameter{
		{Name: "lines", Required: true},
		{Name: "file", Required: true},
	}, map[string]string{"lines": "50", "file": "/var/log/app.log"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "tail -n 50 /var/log/app.log" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestRenderCommandTemplateFallsBackToDefault(t *testing.T) {
	out, err := RenderCommandTemplate("tail -n <lines> {file}", []ToolParameter{
		{Name: "lines", Default: "20"},
		{Name: "file", Required: true},
	}, map[string]string{"file": "app.log"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "tail -n 20 app.log" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestRenderCommandTemplateErrorsOnMissingRequiredParameter(t *testing.T) {
	_, err := RenderCommandTemplate("rm {file}", []ToolParameter{
		{Name: "file", Required: true},
	}, map[string]string{})
	if err == nil {
		t.Fatal("expected error for missing required parameter")
	}
}

func TestRenderCommandTemplateNeverShellInterpolates(t *testing.T) {
	out, err := RenderCommandTemplate("echo {msg}", []ToolParameter{
		{Name: "msg", Required: true},
	}, map[string]string{"msg": "$(rm -rf /)"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "echo $(rm -rf /)" {
		t.Errorf("expected raw literal substitution, got %q", out)
	}
}
