package agent

import "testing"

func TestContaminationDetectorFlagsIdentityPrefix(t *testing.T) {
	d := NewContaminationDetector(nil)
	pattern := d.Check("@movl: Compreendido, vou ajudá-lo...")
	if pattern == "" {
		t.Fatal("expected identity-prefix pattern to fire")
	}
}

func TestContaminationDetectorFlagsRoleReversal(t *testing.T) {
	d := NewContaminationDetector(nil)
	if d.Check("I am the customer and I need help") == "" {
		t.Error("expected role-reversal pattern to fire")
	}
}

func TestContaminationDetectorCleanMessagePasses(t *testing.T) {
	d := NewContaminationDetector(nil)
	if d.Check("Sure, here's the weather forecast for today.") != "" {
		t.Error("expected clean text not to fire")
	}
}

func TestContaminationDetectorAgentExtraPattern(t *testing.T) {
	d := NewContaminationDetector([]string{`(?i)\bsecret codeword\b`})
	if d.Check("the secret codeword is foo") == "" {
		t.Error("expected per-agent extension pattern to fire")
	}
}

func TestContaminationDetectorCleanResponseStripsPrefix(t *testing.T) {
	d := NewContaminationDetector(nil)
	cleaned := d.CleanResponse("@movl: here is your answer")
	if cleaned != "here is your answer" {
		t.Errorf("expected prefix stripped, got %q", cleaned)
	}
}

func TestContaminationDetectorForCachesPerAgent(t *testing.T) {
	d1 := ContaminationDetectorFor("agent-a", nil)
	d2 := ContaminationDetectorFor("agent-a", nil)
	if d1 != d2 {
		t.Error("expected the same cached detector for the same agent id")
	}
	d3 := ContaminationDetectorFor("agent-b", nil)
	if d3 == d1 {
		t.Error("expected a distinct detector for a distinct agent id")
	}
}
