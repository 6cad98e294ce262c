// Package threads implements the finite-turn conversation-thread state
// machine for outbound-initiated dialogues: the agent messaged an external
// recipient pursuing an objective, and each inbound reply on that recipient
// advances the thread one turn until a goal, a timeout, or a forced closure
// ends it.
package threads

import "regexp"

// sessionEndPatterns match an external counterpart signaling it's winding the
// conversation down, checked only once more than 3 turns have already been
// processed (per-turn step 1e).
var sessionEndPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)vamos encerrar o di[aá]logo`),
	regexp.MustCompile(`(?i)avalia[cç][aã]o do servi[cç]o`),
	regexp.MustCompile(`(?i)thank you for contacting`),
	regexp.MustCompile(`(?i)have a (nice|great) day`),
	regexp.MustCompile(`(?i)encerramos (o|seu) atendimento`),
}

// midSessionPatterns match the external bot fishing for whether there's
// anything else to handle — step 4's mid-session-menu short-circuit fires on
// these in turns 1-2.
var midSessionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)h[aá] mais algo`),
	regexp.MustCompile(`(?i)anything else`),
	regexp.MustCompile(`(?i)algo mais (em que|posso)`),
}

// statusWords and dateLikePattern/requestWords implement the status-ack
// short-circuit: reply "Perfeito, obrigado!" when the inbound looks like a
// status update (has a status word and a date-like token) and isn't itself a
// request (no request word), so the thread doesn't echo retrieved data back.
var statusWords = regexp.MustCompile(`(?i)\b(status|em tr[aâ]nsito|entregue|delivered|in transit|a caminho|previs[aã]o)\b`)
var dateLikePattern = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?|\d{4}-\d{2}-\d{2}`)
var requestWords = regexp.MustCompile(`(?i)\b(qual|quando|poderia|pode|could you|please|por favor|\?)\b`)

// userCompletionPatterns, agentCompletionPatterns, dataRetrievalPatterns, and
// userProvidingInfoPattern implement step 7's goal detection (applies only
// from turn >= 2).
var userCompletionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(obrigad[oa]|valeu|thanks?|bye|tchau)\b`),
}

var agentCompletionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(de nada|disponha|at[ée] mais|you'?re welcome)\b`),
}

var dataRetrievalPatterns = []*regexp.Regexp{
	// delivery status + date in the same message
	regexp.MustCompile(`(?i)(em tr[aâ]nsito|entregue|delivered|in transit).{0,80}` + dateLikePattern.String()),
	// flight status + gate + time
	regexp.MustCompile(`(?i)(voo|flight).{0,80}(gate|port[aã]o).{0,80}\d{1,2}:\d{2}`),
}

var userProvidingInfoPattern = regexp.MustCompile(`(?i)^segue\s+\S+`)

// schedulingKeywordPattern implements the router's scheduling-breakout rule:
// a thread pauses for a message that looks like a reminder/scheduling
// request so it can be handled by normal skill processing instead of being
// swallowed as a thread turn.
var schedulingKeywordPattern = regexp.MustCompile(`(?i)\b(me lembre|agendar|remind me|schedule)\b`)

// MatchesSchedulingBreakout reports whether body should bypass thread
// routing in favor of normal chat handling.
func MatchesSchedulingBreakout(body string) bool {
	return schedulingKeywordPattern.MatchString(body)
}

// MatchesSessionEnd reports whether body contains a session-end phrase.
func MatchesSessionEnd(body string) bool {
	for _, re := range sessionEndPatterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// MatchesMidSession reports whether body is the external bot's "anything
// else?" prompt.
func MatchesMidSession(body string) bool {
	for _, re := range midSessionPatterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// MatchesStatusAck reports whether body looks like a pure status update
// (status word + date-like token, no request word).
func MatchesStatusAck(body string) bool {
	return statusWords.MatchString(body) && dateLikePattern.MatchString(body) && !requestWords.MatchString(body)
}

// DetectGoal inspects both the cleaned agent reply and the inbound user
// message for goal-completion signals. Callers only call this once
// currentTurn >= 2, per step 7.
func DetectGoal(inbound, reply string) (achieved bool, summary string) {
	for _, re := range userCompletionPatterns {
		if re.MatchString(inbound) {
			return true, "User signaled completion"
		}
	}
	for _, re := range agentCompletionPatterns {
		if re.MatchString(reply) {
			return true, "Agent signaled completion"
		}
	}
	for _, re := range dataRetrievalPatterns {
		if re.MatchString(reply) || re.MatchString(inbound) {
			return true, "Data successfully retrieved from external bot"
		}
	}
	if userProvidingInfoPattern.MatchString(inbound) {
		return true, "User provided requested information"
	}
	return false, ""
}
