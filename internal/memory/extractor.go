package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// thinkTagRe strips <think>...</think> reasoning blocks some models (DeepSeek,
// MiniMax) prepend to their output before the actual JSON payload.
var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// instructionPatterns match an explicit "remember this" request in the
// user's latest message, which forces extraction regardless of the message
// count threshold.
var instructionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmemorize\b`),
	regexp.MustCompile(`(?i)\bremember (that|this|when)\b`),
	regexp.MustCompile(`(?i)\bwhen i ask\b.*\b(respond|reply|say)\b`),
	regexp.MustCompile(`(?i)\bfrom now on\b`),
	regexp.MustCompile(`(?i)\blembr(e|a)\b`),          // PT: lembre/lembra
	regexp.MustCompile(`(?i)\bsempre que eu\b`),        // PT: "whenever I ask..."
	regexp.MustCompile(`(?i)\ba partir de agora\b`),    // PT: "from now on"
}

// extractedFact is the wire shape the extraction prompt is instructed to emit.
type extractedFact struct {
	Topic      string  `json:"topic"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

const extractionPrompt = `Extract durable facts about the user from this conversation excerpt.

Classify each fact under exactly one of these topics:
preferences, personal_info, history, relationships, goals, instructions,
communication_style, inside_jokes, linguistic_patterns

Each fact needs a short stable "key" (e.g. "favorite_language", "timezone",
"nickname") so the same fact updates in place instead of duplicating, a
"value" (the fact content), and a "confidence" from 0 to 1 reflecting how
certain this is a durable fact rather than a one-off remark.

Return ONLY a JSON array, no markdown fences or explanation. If nothing
durable can be extracted, return [].

Example:
[
  {"topic": "personal_info", "key": "occupation", "value": "works as a nurse", "confidence": 0.9},
  {"topic": "preferences", "key": "coffee", "value": "prefers espresso over drip coffee", "confidence": 0.7}
]

CONVERSATION:
%s`

// Extractor runs the fact-extraction LLM call and validates/stores the result.
type Extractor struct {
	provider providers.Provider
	model    string
	facts    store.FactStore
}

func NewExtractor(provider providers.Provider, model string, facts store.FactStore) *Extractor {
	return &Extractor{provider: provider, model: model, facts: facts}
}

// ExtractionTrigger decides whether the fact extractor should run now.
type ExtractionTrigger struct {
	MessagesSinceExtraction int
	Threshold               int // N accumulated messages; caller lowers to 2 for adaptive-personality agents
	LatestUserMessage       string
}

// ShouldExtract triggers on N accumulated user messages since the last
// extraction, OR an explicit "remember this" pattern in the latest message.
func ShouldExtract(t ExtractionTrigger) bool {
	if t.Threshold > 0 && t.MessagesSinceExtraction >= t.Threshold {
		return true
	}
	for _, re := range instructionPatterns {
		if re.MatchString(t.LatestUserMessage) {
			return true
		}
	}
	return false
}

// ExtractAndStore extracts facts from the given conversation excerpt and
// upserts each one that passes MemGuard validation. It returns the facts
// that were stored and the facts MemGuard rejected (reason included), and
// returns an error only when the LLM call itself fails; model output that
// parses neither as a fact array nor as a single fact is treated as
// "nothing extracted" and never panics the caller.
func (ex *Extractor) ExtractAndStore(ctx context.Context, agentID uuid.UUID, userKey, conversationExcerpt string) (stored []store.Fact, rejected []string, err error) {
	facts, err := ex.extract(ctx, conversationExcerpt)
	if err != nil {
		return nil, nil, err
	}

	for _, f := range facts {
		topic := store.FactTopic(strings.ToLower(strings.TrimSpace(f.Topic)))
		candidate := store.Fact{
			AgentID:    agentID,
			UserKey:    userKey,
			Topic:      topic,
			Key:        strings.TrimSpace(f.Key),
			Value:      strings.TrimSpace(f.Value),
			Confidence: clamp01(f.Confidence),
		}
		if candidate.Key == "" || candidate.Value == "" {
			rejected = append(rejected, fmt.Sprintf("%s: missing key or value", f.Topic))
			continue
		}
		if ok, reason := Validate(candidate); !ok {
			rejected = append(rejected, fmt.Sprintf("%s.%s: %s", candidate.Topic, candidate.Key, reason))
			continue
		}
		saved, err := ex.facts.Upsert(ctx, candidate)
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("%s.%s: store error: %v", candidate.Topic, candidate.Key, err))
			continue
		}
		stored = append(stored, *saved)
	}
	return stored, rejected, nil
}

func (ex *Extractor) extract(ctx context.Context, conversationExcerpt string) ([]extractedFact, error) {
	if len(strings.TrimSpace(conversationExcerpt)) < 10 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := ex.provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: fmt.Sprintf(extractionPrompt, conversationExcerpt)}},
		Model:    ex.model,
		Options:  map[string]interface{}{"max_tokens": 1024, "temperature": 0.1},
	})
	if err != nil {
		return nil, fmt.Errorf("fact extractor: llm call: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	content = thinkTagRe.ReplaceAllString(content, "")
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var facts []extractedFact
	if err := json.Unmarshal([]byte(content), &facts); err != nil {
		var single extractedFact
		if err2 := json.Unmarshal([]byte(content), &single); err2 == nil && single.Value != "" {
			return []extractedFact{single}, nil
		}
		// Malformed model output never fails the caller's turn; treat as
		// "nothing extracted".
		return nil, nil
	}
	return facts, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
