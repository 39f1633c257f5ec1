package models

import (
	"fmt"
	"strconv"
	"strings"
)

// EndSurveyLabel is the single terminal node label of every compiled graph.
const EndSurveyLabel = "end_survey"

// SessionState is the full durable state of one live survey conversation.
// It is what the State Serializer encodes/decodes and what the Checkpoint
// Store persists; CurrentStep is the sole control-flow cursor.
type SessionState struct {
	ThreadID            string    `json:"thread_id"`
	Messages            []Message `json:"messages"`
	Steps               []Step    `json:"steps"`
	SystemPrompt        string    `json:"system_prompt"`
	EndMessage          string    `json:"end_message"`
	MaxTurns            int       `json:"max_turns"`
	CurrentStep         string    `json:"current_step"`
	CurrentStepMessages []Message `json:"current_step_messages"`
}

// NewSessionState seeds a fresh session: SYSTEM prompt,
// ASSISTANT welcome, HUMAN first message, entry node "0_q".
func NewSessionState(threadID string, tmpl EffectiveTemplate, firstMessage string) *SessionState {
	return &SessionState{
		ThreadID: threadID,
		Messages: []Message{
			{Tag: TagSystem, Content: tmpl.EffectiveSystemPrompt},
			{Tag: TagAssistant, Content: tmpl.WelcomeMessage},
			{Tag: TagHuman, Content: firstMessage},
		},
		Steps:               tmpl.Steps,
		SystemPrompt:        tmpl.EffectiveSystemPrompt,
		EndMessage:          tmpl.EndMessage,
		MaxTurns:            tmpl.MaxTurns,
		CurrentStep:         QuestionLabel(0),
		CurrentStepMessages: nil,
	}
}

// NodeKind is the category a parsed node label belongs to.
type NodeKind string

const (
	NodeQuestion NodeKind = "question"
	NodeAnswer   NodeKind = "answer"
	NodeEnd      NodeKind = "end"
)

// NodeLabel is a parsed "<i>_q" / "<i>_a" / "end_survey" control-flow cursor.
type NodeLabel struct {
	Kind  NodeKind
	Index int // meaningless when Kind == NodeEnd
}

func (n NodeLabel) String() string {
	switch n.Kind {
	case NodeQuestion:
		return QuestionLabel(n.Index)
	case NodeAnswer:
		return AnswerLabel(n.Index)
	default:
		return EndSurveyLabel
	}
}

// QuestionLabel formats the question-node label for step i.
func QuestionLabel(i int) string { return fmt.Sprintf("%d_q", i) }

// AnswerLabel formats the answer-node label for step i.
func AnswerLabel(i int) string { return fmt.Sprintf("%d_a", i) }

// ParseNodeLabel parses a node label of the form "<i>_q", "<i>_a", or
// "end_survey". An unrecognized label is an error — the caller should
// treat it the same as a malformed branch value and force end_survey.
func ParseNodeLabel(label string) (NodeLabel, error) {
	if label == EndSurveyLabel {
		return NodeLabel{Kind: NodeEnd}, nil
	}

	parts := strings.SplitN(label, "_", 2)
	if len(parts) != 2 {
		return NodeLabel{}, fmt.Errorf("malformed node label %q", label)
	}

	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return NodeLabel{}, fmt.Errorf("malformed node label %q: %w", label, err)
	}

	switch parts[1] {
	case "q":
		return NodeLabel{Kind: NodeQuestion, Index: idx}, nil
	case "a":
		return NodeLabel{Kind: NodeAnswer, Index: idx}, nil
	default:
		return NodeLabel{}, fmt.Errorf("malformed node label %q", label)
	}
}
