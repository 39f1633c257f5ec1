package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"surveyengine/internal/checkpoint"
	"surveyengine/internal/chatlog"
	"surveyengine/internal/domain/models"
	"surveyengine/internal/oracle"
	"surveyengine/internal/serializer"
)

// goalPrefix signals the oracle echoed the injected step instruction
// back instead of producing a user-facing question.
const goalPrefix = "# 目标"

// purgeDelay is the minimum wait before purging a finished session's
// checkpoints, so any in-flight writes from the terminal transition
// land first.
const purgeDelay = 150 * time.Millisecond

// EmitFunc delivers one chunk of assistant-visible text to the HTTP
// layer. A non-nil error from a real transport means the client is
// gone; the executor logs and continues rather than aborting the
// node transition: a client disconnect does not cancel the graph.
type EmitFunc func(chunk string) error

// Executor is the Graph Executor: it advances
// state.CurrentStep node by node within one Run call, persisting a
// checkpoint after every mutation, and returns control exactly when
// it reaches an answer node it cannot pass without a user reply.
type Executor struct {
	oracle    oracle.Oracle
	evaluator *ConditionEvaluator
	store     checkpoint.Store
	chatlog   chatlog.Writer
	logger    *slog.Logger

	wordsPerChunk int
	chunkDelay    time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithStreamPacing sets the word-group size and inter-chunk delay used
// to turn one oracle reply into multiple SSE frames.
func WithStreamPacing(wordsPerChunk int, delay time.Duration) Option {
	return func(e *Executor) {
		e.wordsPerChunk = wordsPerChunk
		e.chunkDelay = delay
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor builds an Executor. store and log may be nil in tests
// that only exercise node semantics without durability.
func NewExecutor(o oracle.Oracle, evaluator *ConditionEvaluator, store checkpoint.Store, log chatlog.Writer, opts ...Option) *Executor {
	e := &Executor{
		oracle:        o,
		evaluator:     evaluator,
		store:         store,
		chatlog:       log,
		logger:        slog.Default(),
		wordsPerChunk: 3,
		chunkDelay:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result reports what happened to a session after one Run call.
type Result struct {
	// Finished is true iff the session reached end_survey.
	Finished bool
}

// Run drives state forward from its current node. If resume is
// non-nil, it is delivered to the answer node at state.CurrentStep as
// the resume value (the reply from /chat/continue); the node semantics
// determine everything else. Run returns when
// the session reaches end_survey or suspends at an answer node with no
// resume value left to consume.
func (e *Executor) Run(ctx context.Context, state *models.SessionState, resume *string, emit EmitFunc) (Result, error) {
	for {
		label, err := models.ParseNodeLabel(state.CurrentStep)
		if err != nil {
			// An unparseable cursor is as malformed as a bad branch value;
			// force termination rather than getting stuck.
			state.CurrentStep = models.EndSurveyLabel
			label = models.NodeLabel{Kind: models.NodeEnd}
		}

		switch label.Kind {
		case models.NodeEnd:
			if err := e.runTerminal(ctx, state, emit); err != nil {
				return Result{}, err
			}
			return Result{Finished: true}, nil

		case models.NodeQuestion:
			if err := e.runQuestion(ctx, state, label.Index, emit); err != nil {
				return Result{}, err
			}

		case models.NodeAnswer:
			if resume == nil {
				return Result{Finished: false}, nil
			}
			reply := *resume
			resume = nil
			if err := e.applyResume(ctx, state, label.Index, reply); err != nil {
				return Result{}, err
			}
		}
	}
}

func (e *Executor) runQuestion(ctx context.Context, state *models.SessionState, idx int, emit EmitFunc) error {
	if idx < 0 || idx >= len(state.Steps) {
		state.CurrentStep = models.EndSurveyLabel
		return e.persist(ctx, state)
	}
	step := state.Steps[idx]

	if len(state.CurrentStepMessages) == 0 {
		instruction := models.Message{Tag: models.TagAssistant, Content: step.Content}
		state.Messages = append(state.Messages, instruction)
		state.CurrentStepMessages = append(state.CurrentStepMessages, instruction)
	}

	text, err := e.oracle.Invoke(ctx, state.Messages)
	if err != nil {
		return fmt.Errorf("generate question: %w", err)
	}

	if strings.HasPrefix(text, goalPrefix) {
		text, err = e.oracle.Invoke(ctx, state.Messages)
		if err != nil {
			return fmt.Errorf("generate question (retry after echoed instruction): %w", err)
		}
	}

	finished := strings.Contains(strings.ToLower(text), "finish") ||
		len(state.CurrentStepMessages) >= 2*state.MaxTurns+1

	if finished {
		if step.Type == models.StepCondition {
			e.branchCondition(ctx, state, step)
		} else {
			e.branchLinear(state, idx)
		}
		// Any finished transition resets the per-step transcript, the
		// safer contract for back-edge re-entry too.
		state.CurrentStepMessages = nil
		return e.persist(ctx, state)
	}

	assistantMsg := models.Message{Tag: models.TagAssistant, Content: text}
	state.Messages = append(state.Messages, assistantMsg)
	state.CurrentStepMessages = append(state.CurrentStepMessages, assistantMsg)
	state.CurrentStep = models.AnswerLabel(idx)

	e.streamChunks(text, emit)

	return e.persist(ctx, state)
}

// branchCondition resolves a finished CONDITION step's target label
// and writes it to state.CurrentStep.
func (e *Executor) branchCondition(ctx context.Context, state *models.SessionState, step models.Step) {
	branch := step.Branches[1]
	if len(state.CurrentStepMessages) > 0 {
		if e.evaluator.Evaluate(ctx, step.Condition, state.CurrentStepMessages) {
			branch = step.Branches[0]
		}
	}
	state.CurrentStep = resolveBranchTarget(branch, len(state.Steps))
}

// branchLinear resolves a finished LINEAR step's fall-through target
//.
func (e *Executor) branchLinear(state *models.SessionState, idx int) {
	if idx+1 < len(state.Steps) {
		state.CurrentStep = models.QuestionLabel(idx + 1)
		return
	}
	state.CurrentStep = models.EndSurveyLabel
}

// resolveBranchTarget maps a branch value ("END", or a 1-based step
// number as a string) to a node label. An empty, malformed, or
// out-of-range value forces end_survey.
func resolveBranchTarget(branch string, stepCount int) string {
	if branch == "" || branch == "END" {
		return models.EndSurveyLabel
	}
	k, err := strconv.Atoi(branch)
	if err != nil || k < 1 || k > stepCount {
		return models.EndSurveyLabel
	}
	return models.QuestionLabel(k - 1)
}

// applyResume delivers a /chat/continue reply to the answer node it
// is addressed to and re-enters the step.
func (e *Executor) applyResume(ctx context.Context, state *models.SessionState, idx int, reply string) error {
	msg := models.Message{Tag: models.TagHuman, Content: reply}
	state.Messages = append(state.Messages, msg)
	state.CurrentStepMessages = append(state.CurrentStepMessages, msg)
	state.CurrentStep = models.QuestionLabel(idx)
	return e.persist(ctx, state)
}

// runTerminal implements the terminal node: emit the end
// message, append it to the transcript, hand the transcript to the
// Chat Log Writer, and schedule a delayed purge.
func (e *Executor) runTerminal(ctx context.Context, state *models.SessionState, emit EmitFunc) error {
	e.streamChunks(state.EndMessage, emit)

	endMsg := models.Message{Tag: models.TagAssistant, Content: state.EndMessage}
	state.Messages = append(state.Messages, endMsg)

	if err := e.persist(ctx, state); err != nil {
		return err
	}

	if e.chatlog != nil {
		if err := e.chatlog.Write(ctx, state.ThreadID, state.Messages); err != nil {
			e.logger.Error("chat log write failed", "thread_id", state.ThreadID, "error", err)
		}
	}

	if e.store != nil {
		threadID := state.ThreadID
		go func() {
			time.Sleep(purgeDelay)
			purgeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := e.store.Purge(purgeCtx, threadID); err != nil {
				e.logger.Error("checkpoint purge failed", "thread_id", threadID, "error", err)
			}
		}()
	}

	return nil
}

// persist writes the current state to the Checkpoint Store. This
// happens after every CurrentStep mutation.
func (e *Executor) persist(ctx context.Context, state *models.SessionState) error {
	if e.store == nil {
		return nil
	}
	blob, err := serializer.Encode(state)
	if err != nil {
		return fmt.Errorf("persist checkpoint: encode: %w", err)
	}
	if _, err := e.store.Put(ctx, state.ThreadID, blob); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// streamChunks splits text into word groups and hands each to emit,
// pacing them the way a word-paced mock token stream would. emit
// errors (a disconnected client) are logged, not
// propagated — a disconnect does not cancel the graph.
func (e *Executor) streamChunks(text string, emit EmitFunc) {
	if emit == nil || text == "" {
		return
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}

	groupSize := e.wordsPerChunk
	if groupSize < 1 {
		groupSize = 1
	}

	for i := 0; i < len(words); i += groupSize {
		end := i + groupSize
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if i > 0 {
			chunk = " " + chunk
		}
		if err := emit(chunk); err != nil {
			e.logger.Debug("stream emit failed, client likely disconnected", "error", err)
			return
		}
		if e.chunkDelay > 0 && end < len(words) {
			time.Sleep(e.chunkDelay)
		}
	}
}
