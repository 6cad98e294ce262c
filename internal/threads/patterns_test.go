package threads

import "testing"

func TestMatchesStatusAckRequiresDateAndNoRequest(t *testing.T) {
	if !MatchesStatusAck("Seu pedido está em trânsito, previsão para 2026-02-14.") {
		t.Error("expected status+date message to match")
	}
	if MatchesStatusAck("Qual o status do meu pedido?") {
		t.Error("a request should never match the status-ack short-circuit")
	}
}

func TestMatchesSessionEnd(t *testing.T) {
	if !MatchesSessionEnd("Vamos encerrar o diálogo por aqui, obrigado!") {
		t.Error("expected session-end phrase to match")
	}
	if MatchesSessionEnd("tudo bem, pode continuar") {
		t.Error("unrelated text should not match")
	}
}

func TestDetectGoalUserCompletion(t *testing.T) {
	achieved, summary := DetectGoal("valeu, muito obrigado!", "De nada!")
	if !achieved || summary == "" {
		t.Error("expected user-completion pattern to close the thread")
	}
}

func TestDetectGoalDataRetrieval(t *testing.T) {
	achieved, summary := DetectGoal("", "Seu pedido está em trânsito, chegada 12/05/2026")
	if !achieved {
		t.Errorf("expected delivery-status+date pattern to close the thread, got summary=%q", summary)
	}
}

func TestDetectGoalFallsThroughOnOrdinaryReply(t *testing.T) {
	if achieved, _ := DetectGoal("ainda estou esperando", "Vou verificar para você"); achieved {
		t.Error("ordinary exchange should not trigger goal detection")
	}
}

func TestMatchesSchedulingBreakout(t *testing.T) {
	if !MatchesSchedulingBreakout("me lembre de pagar a conta amanhã") {
		t.Error("expected scheduling keyword to match")
	}
	if MatchesSchedulingBreakout("obrigado pela informação") {
		t.Error("unrelated text should not match")
	}
}
