package engine

import (
	"context"
	"fmt"
	"strings"

	"surveyengine/internal/domain/models"
	"surveyengine/internal/oracle"
)

// conditionPromptTemplate is the fixed Y/N instruction sent to the
// oracle, verbatim.
const conditionPromptTemplate = "请根据以下判断条件和对话记录，只回复 Y 或 N。\n\n判断条件: %s\n\n对话记录:\n%s"

// ConditionEvaluator implements evaluate(predicate,
// transcript) -> bool, querying the oracle with a fixed Y/N prompt and
// falling back to a substring match if the oracle fails.
type ConditionEvaluator struct {
	oracle oracle.Oracle
}

// NewConditionEvaluator wraps an Oracle.
func NewConditionEvaluator(o oracle.Oracle) *ConditionEvaluator {
	return &ConditionEvaluator{oracle: o}
}

// Evaluate renders transcript into the fixed prompt template and asks
// the oracle for a verdict. On oracle failure it falls back to a
// literal case-insensitive substring match of predicate in the last
// HUMAN message of transcript.
func (e *ConditionEvaluator) Evaluate(ctx context.Context, predicate string, transcript []models.Message) bool {
	prompt := fmt.Sprintf(conditionPromptTemplate, predicate, renderTranscript(transcript))
	reply, err := e.oracle.Invoke(ctx, []models.Message{{Tag: models.TagHuman, Content: prompt}})
	if err != nil {
		return fallbackSubstringMatch(predicate, transcript)
	}
	return isAffirmative(reply)
}

// renderTranscript formats current_step_messages with the exact
// per-role prefixes: "用户回复:" for HUMAN, "AI提问:"
// for ASSISTANT. SYSTEM messages do not occur in a per-step transcript
// and are rendered with their raw tag if they somehow do.
func renderTranscript(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		switch m.Tag {
		case models.TagHuman:
			lines = append(lines, "用户回复:"+m.Content)
		case models.TagAssistant:
			lines = append(lines, "AI提问:"+m.Content)
		default:
			lines = append(lines, string(m.Tag)+":"+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// isAffirmative reports whether reply should be read as "Y": the
// lowercased reply contains any of y, yes, true.
func isAffirmative(reply string) bool {
	lower := strings.ToLower(reply)
	for _, token := range []string{"y", "yes", "true"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// fallbackSubstringMatch is the documented (possibly surprising)
// fallback: a literal
// case-insensitive substring match of predicate in the last HUMAN
// message of transcript. It is intentionally not "smarter" than that —
// do not change this behavior without tests.
func fallbackSubstringMatch(predicate string, transcript []models.Message) bool {
	var lastHuman string
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Tag == models.TagHuman {
			lastHuman = transcript[i].Content
			break
		}
	}
	if lastHuman == "" {
		return false
	}
	return strings.Contains(strings.ToLower(lastHuman), strings.ToLower(predicate))
}
