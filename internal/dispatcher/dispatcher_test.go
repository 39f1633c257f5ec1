package dispatcher

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"surveyengine/internal/chatlog"
	"surveyengine/internal/checkpoint"
	"surveyengine/internal/domain/models"
	"surveyengine/internal/engine"
	"surveyengine/internal/oracle"
	"surveyengine/internal/template"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	tmpl := models.Template{
		ID:             "survey-1",
		SystemPrompt:   "You run a short survey.",
		MaxTurns:       1,
		WelcomeMessage: "hi",
		EndMessage:     "bye",
		Steps: []models.Step{
			{Index: 0, Content: "Ask for a name", Type: models.StepLinear},
			{Index: 1, Content: "Ask for an age", Type: models.StepLinear},
		},
	}
	store := template.NewMemoryStore([]models.Template{tmpl}, nil)
	resolver := template.NewResolver(store)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	o := oracle.NewLoremOracle(2, 4)
	evaluator := engine.NewConditionEvaluator(o)
	cpStore := checkpoint.NewInMemoryStore(time.Hour)

	chatDir := t.TempDir()
	chatStore, err := chatlog.NewFileStore(filepath.Join(chatDir, "log.jsonl"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	exec := engine.NewExecutor(o, evaluator, cpStore, chatStore, engine.WithStreamPacing(50, 0), engine.WithLogger(logger))

	return New(resolver, exec, cpStore, chatStore, store, 10*time.Second, logger)
}

func readSSEFrames(t *testing.T, body *bytes.Buffer) []string {
	t.Helper()
	var frames []string
	for _, line := range strings.Split(body.String(), "\n") {
		if strings.HasPrefix(line, "data: ") {
			var decoded string
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &decoded); err != nil {
				t.Fatalf("decode frame %q: %v", line, err)
			}
			frames = append(frames, decoded)
		}
	}
	return frames
}

func TestHandleStreamCreatesSessionAndStreamsQuestion(t *testing.T) {
	d := newTestDispatcher(t)

	body, _ := json.Marshal(streamRequest{ConversationID: "conv-1", Message: "hello", TemplateID: "survey-1"})
	req := httptest.NewRequest("POST", "/api/survey/chat/stream", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	d.HandleStream(rec, req)

	if rec.Code != 0 && rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	frames := readSSEFrames(t, rec.Body)
	if len(frames) == 0 {
		t.Fatal("expected at least one streamed frame")
	}

	entry, ok := d.cache.load(sessionKey("survey-1", "conv-1"))
	if !ok {
		t.Fatal("expected a cached live session after stream")
	}
	if entry.state.CurrentStep == "" {
		t.Error("expected a non-empty current step after the first turn")
	}
}

func TestHandleStreamThenContinueAdvancesAndEventuallyFinishes(t *testing.T) {
	d := newTestDispatcher(t)

	streamBody, _ := json.Marshal(streamRequest{ConversationID: "conv-2", Message: "hello", TemplateID: "survey-1"})
	streamReq := httptest.NewRequest("POST", "/api/survey/chat/stream", bytes.NewReader(streamBody))
	streamRec := httptest.NewRecorder()
	d.HandleStream(streamRec, streamReq)

	for i := 0; i < 10; i++ {
		continueBody, _ := json.Marshal(continueRequest{
			ConversationID: "conv-2",
			UserResponse:   "FINISH",
			TemplateID:     "survey-1",
		})
		continueReq := httptest.NewRequest("POST", "/api/survey/chat/continue", bytes.NewReader(continueBody))
		continueRec := httptest.NewRecorder()
		d.HandleContinue(continueRec, continueReq)

		if continueRec.Code != 0 && continueRec.Code != 200 {
			t.Fatalf("continue status = %d, body = %s", continueRec.Code, continueRec.Body.String())
		}

		if _, ok := d.cache.load(sessionKey("survey-1", "conv-2")); !ok {
			// Session finished and was evicted from the cache.
			summaries, err := d.chatlog.List(streamReq.Context())
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			found := false
			for _, s := range summaries {
				if s.ConversationID == "conv-2" {
					found = true
				}
			}
			if !found {
				t.Fatal("expected finished conversation to be written to the chat log")
			}
			return
		}
	}
	t.Fatal("session did not finish within 10 continue calls")
}

func TestHandleContinueWithNoSessionOrCheckpointErrors(t *testing.T) {
	d := newTestDispatcher(t)

	body, _ := json.Marshal(continueRequest{ConversationID: "unknown", UserResponse: "hi", TemplateID: "survey-1"})
	req := httptest.NewRequest("POST", "/api/survey/chat/continue", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	d.HandleContinue(rec, req)

	if rec.Code != 400 {
		t.Errorf("status = %d, want 400 for checkpoint miss", rec.Code)
	}
}

func TestHandleContinueSecondArrivalConflicts(t *testing.T) {
	d := newTestDispatcher(t)

	streamBody, _ := json.Marshal(streamRequest{ConversationID: "conv-3", Message: "hello", TemplateID: "survey-1"})
	streamReq := httptest.NewRequest("POST", "/api/survey/chat/stream", bytes.NewReader(streamBody))
	streamRec := httptest.NewRecorder()
	d.HandleStream(streamRec, streamReq)

	entry, ok := d.cache.load(sessionKey("survey-1", "conv-3"))
	if !ok {
		t.Fatal("expected cached session")
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	body, _ := json.Marshal(continueRequest{ConversationID: "conv-3", UserResponse: "hi", TemplateID: "survey-1"})
	req := httptest.NewRequest("POST", "/api/survey/chat/continue", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	d.HandleContinue(rec, req)

	if rec.Code != 409 {
		t.Errorf("status = %d, want 409 conflict while session held", rec.Code)
	}
}
