package engine

import (
	"context"
	"strings"
	"testing"

	"surveyengine/internal/checkpoint"
	"surveyengine/internal/domain/models"
)

// scriptedOracle replies from a fixed queue, repeating the last reply
// once exhausted, so tests can assert exact node-by-node behavior.
type scriptedOracle struct {
	replies []string
	calls   int
}

func (o *scriptedOracle) Invoke(ctx context.Context, messages []models.Message) (string, error) {
	i := o.calls
	o.calls++
	if i >= len(o.replies) {
		return o.replies[len(o.replies)-1], nil
	}
	return o.replies[i], nil
}

func newState(steps []models.Step, maxTurns int) *models.SessionState {
	return &models.SessionState{
		ThreadID:     "thread-1",
		Messages:     []models.Message{{Tag: models.TagSystem, Content: "sys"}, {Tag: models.TagAssistant, Content: "hi"}, {Tag: models.TagHuman, Content: "hello"}},
		Steps:        steps,
		SystemPrompt: "sys",
		EndMessage:   "bye",
		MaxTurns:     maxTurns,
		CurrentStep:  models.QuestionLabel(0),
	}
}

func collectEmits(t *testing.T) (EmitFunc, *[]string) {
	t.Helper()
	var chunks []string
	return func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	}, &chunks
}

func TestSingleLinearStepAdvancesToEndSurvey(t *testing.T) {
	// B2: single LINEAR step; after it finishes, next node is end_survey.
	steps := []models.Step{{Index: 0, Content: "Ask name", Type: models.StepLinear}}
	state := newState(steps, 1)

	o := &scriptedOracle{replies: []string{"What is your name?"}}
	exec := NewExecutor(o, NewConditionEvaluator(o), nil, nil)
	emit, _ := collectEmits(t)

	result, err := exec.Run(context.Background(), state, nil, emit)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Finished {
		t.Fatal("expected suspension at answer node, got finished")
	}
	if state.CurrentStep != models.AnswerLabel(0) {
		t.Errorf("CurrentStep = %q, want %q", state.CurrentStep, models.AnswerLabel(0))
	}

	reply := "Alice, FINISH"
	result, err = exec.Run(context.Background(), state, &reply, emit)
	if err != nil {
		t.Fatalf("Run (resume): %v", err)
	}
	if !result.Finished {
		t.Fatal("expected session finished after single step")
	}
	if state.CurrentStep != models.EndSurveyLabel {
		t.Errorf("CurrentStep = %q, want %q", state.CurrentStep, models.EndSurveyLabel)
	}
}

func TestMaxTurnsBoundForcesFinishWithoutFinishKeyword(t *testing.T) {
	// B1: max_turns=1 with an assistant that never emits FINISH; step
	// completes after the third message (2*1+1).
	steps := []models.Step{
		{Index: 0, Content: "Ask name", Type: models.StepLinear},
		{Index: 1, Content: "Ask age", Type: models.StepLinear},
	}
	state := newState(steps, 1)

	o := &scriptedOracle{replies: []string{"What is your name?", "Thanks, noted."}}
	exec := NewExecutor(o, NewConditionEvaluator(o), nil, nil)
	emit, _ := collectEmits(t)

	_, err := exec.Run(context.Background(), state, nil, emit)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(state.CurrentStepMessages) != 2 {
		t.Fatalf("CurrentStepMessages len = %d, want 2", len(state.CurrentStepMessages))
	}

	reply := "Alice"
	result, err := exec.Run(context.Background(), state, &reply, emit)
	if err != nil {
		t.Fatalf("Run (resume): %v", err)
	}
	if result.Finished {
		t.Fatal("expected step 1 question, not finished")
	}
	if state.CurrentStep != models.AnswerLabel(1) {
		t.Errorf("CurrentStep = %q, want %q (bound should have forced completion of step 0)", state.CurrentStep, models.AnswerLabel(1))
	}
}

func TestConditionEndBranchTerminates(t *testing.T) {
	// B3: CONDITION branch value "END" on the Y side terminates immediately.
	steps := []models.Step{
		{Index: 0, Type: models.StepCondition, Condition: "user prefers tea", Branches: [2]string{"END", "1"}},
	}
	state := newState(steps, 1)
	state.CurrentStepMessages = []models.Message{{Tag: models.TagHuman, Content: "I love tea"}}

	o := &scriptedOracle{replies: []string{"FINISH", "Y"}}
	exec := NewExecutor(o, NewConditionEvaluator(o), nil, nil)
	emit, _ := collectEmits(t)

	result, err := exec.Run(context.Background(), state, nil, emit)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Finished {
		t.Fatal("expected immediate termination")
	}
	if state.Messages[len(state.Messages)-1].Content != "bye" {
		t.Errorf("last message = %q, want end message", state.Messages[len(state.Messages)-1].Content)
	}
}

func TestConditionBackwardBranchResetsPerStepMessages(t *testing.T) {
	// B4: CONDITION branch pointing backward re-enters step 0 with cleared
	// per-step messages.
	steps := []models.Step{
		{Index: 0, Content: "Collect preference", Type: models.StepLinear},
		{Index: 1, Type: models.StepCondition, Condition: "user prefers tea", Branches: [2]string{"END", "1"}},
	}
	state := newState(steps, 1)
	state.CurrentStep = models.QuestionLabel(1)
	state.CurrentStepMessages = []models.Message{{Tag: models.TagHuman, Content: "I prefer coffee"}}

	o := &scriptedOracle{replies: []string{"FINISH", "N"}}
	exec := NewExecutor(o, NewConditionEvaluator(o), nil, nil)
	emit, _ := collectEmits(t)

	_, err := exec.Run(context.Background(), state, nil, emit)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Run does not stop at 0_q: it re-enters step 0 and suspends at 0_a,
	// so step 0's transcript holds only its own instruction and question.
	if state.CurrentStep != models.AnswerLabel(0) {
		t.Errorf("CurrentStep = %q, want %q", state.CurrentStep, models.AnswerLabel(0))
	}
	if len(state.CurrentStepMessages) != 2 || state.CurrentStepMessages[0].Content != "Collect preference" {
		t.Errorf("CurrentStepMessages should be reset before re-entering step 0, got %v", state.CurrentStepMessages)
	}
}

func TestMalformedBranchForcesEndSurvey(t *testing.T) {
	steps := []models.Step{
		{Index: 0, Type: models.StepCondition, Condition: "x", Branches: [2]string{"END", "99"}},
	}
	state := newState(steps, 1)
	state.CurrentStepMessages = []models.Message{{Tag: models.TagHuman, Content: "x"}}

	o := &scriptedOracle{replies: []string{"FINISH", "N"}}
	exec := NewExecutor(o, NewConditionEvaluator(o), nil, nil)
	emit, _ := collectEmits(t)

	result, err := exec.Run(context.Background(), state, nil, emit)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Finished {
		t.Fatal("out-of-range branch target should force end_survey")
	}
}

func TestEchoedInstructionIsDiscardedAndRetried(t *testing.T) {
	steps := []models.Step{{Index: 0, Content: "Ask name", Type: models.StepLinear}}
	state := newState(steps, 3)

	o := &scriptedOracle{replies: []string{"# 目标 Ask name", "What is your name, really?"}}
	exec := NewExecutor(o, NewConditionEvaluator(o), nil, nil)
	emit, chunks := collectEmits(t)

	_, err := exec.Run(context.Background(), state, nil, emit)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o.calls != 2 {
		t.Fatalf("oracle calls = %d, want 2 (echo + retry)", o.calls)
	}
	joined := strings.Join(*chunks, "")
	if joined != "What is your name, really?" {
		t.Fatalf("streamed %q, want chunks from the retried reply", joined)
	}
}

func TestRunPersistsCheckpointAfterEveryTransition(t *testing.T) {
	steps := []models.Step{{Index: 0, Content: "Ask name", Type: models.StepLinear}}
	state := newState(steps, 1)

	o := &scriptedOracle{replies: []string{"What is your name?"}}
	store := checkpoint.NewInMemoryStore(0)
	exec := NewExecutor(o, NewConditionEvaluator(o), store, nil)
	emit, _ := collectEmits(t)

	if _, err := exec.Run(context.Background(), state, nil, emit); err != nil {
		t.Fatalf("Run: %v", err)
	}

	blob, ok, err := store.GetLatest(context.Background(), state.ThreadID)
	if err != nil || !ok {
		t.Fatalf("GetLatest: ok=%v err=%v", ok, err)
	}
	if len(blob) == 0 {
		t.Fatal("expected a non-empty checkpoint blob")
	}
}
