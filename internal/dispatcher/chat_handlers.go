package dispatcher

import (
	"context"
	"fmt"
	"net/http"

	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
	"surveyengine/internal/httputil"
	"surveyengine/internal/serializer"
)

// HandleStream implements POST /api/survey/chat/stream: it
// creates a fresh session, seeds it, and streams the graph's first
// question.
func (d *Dispatcher) HandleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl, err := d.resolver.Resolve(r.Context(), req.TemplateID)
	if err != nil {
		handleError(w, err)
		return
	}

	state := models.NewSessionState(req.ConversationID, *tmpl, req.Message)

	key := sessionKey(req.TemplateID, req.ConversationID)
	entry, created := d.cache.loadOrCreate(key, state)
	if !created {
		if !entry.mu.TryLock() {
			handleError(w, domain.ErrSessionBusy)
			return
		}
		entry.state = state
	} else {
		entry.mu.Lock()
	}
	defer entry.mu.Unlock()

	d.runAndStream(w, r, key, entry)
}

// HandleContinue implements POST /api/survey/chat/continue:
// it locates the live instance or rehydrates one from the latest
// checkpoint, then delivers the user's reply as the resume value.
func (d *Dispatcher) HandleContinue(w http.ResponseWriter, r *http.Request) {
	var req continueRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := sessionKey(req.TemplateID, req.ConversationID)

	entry, ok := d.cache.load(key)
	if !ok {
		rehydrated, err := d.rehydrate(r.Context(), req.TemplateID, req.ConversationID)
		if err != nil {
			handleError(w, err)
			return
		}
		entry, ok = d.cache.load(key)
		if !ok {
			entry = &liveSession{state: rehydrated}
			d.cache.store(key, entry)
		}
	}

	if !entry.mu.TryLock() {
		handleError(w, domain.ErrSessionBusy)
		return
	}
	defer entry.mu.Unlock()

	d.runAndStream(w, r, key, entry, req.UserResponse)
}

// rehydrate rebuilds a session from the latest checkpoint under
// conversationID, re-resolving the template so a compiled-graph change
// (new steps, new prompt) takes effect on resume while the transcript
// and control-flow cursor carry over untouched from the checkpoint.
func (d *Dispatcher) rehydrate(ctx context.Context, templateID, conversationID string) (*models.SessionState, error) {
	blob, ok, err := d.checkpoints.GetLatest(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return nil, domain.ErrCheckpointMiss
	}

	state, err := serializer.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}

	tmpl, err := d.resolver.Resolve(ctx, templateID)
	if err != nil {
		return nil, err
	}
	state.Steps = tmpl.Steps
	state.SystemPrompt = tmpl.EffectiveSystemPrompt
	state.EndMessage = tmpl.EndMessage
	state.MaxTurns = tmpl.MaxTurns

	return state, nil
}

// runAndStream advances the graph one turn, streaming assistant output
// over SSE. resume, if given, is the user's reply delivered to a
// suspended answer node.
func (d *Dispatcher) runAndStream(w http.ResponseWriter, r *http.Request, key string, entry *liveSession, resume ...string) {
	writer, keepAlive, err := d.newSSEWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	defer keepAlive.Stop()

	var resumePtr *string
	if len(resume) > 0 {
		resumePtr = &resume[0]
	}

	// Detached from the request's cancellation: a client disconnect must
	// not cancel the in-flight oracle call or checkpoint write for the
	// current turn.
	ctx := context.WithoutCancel(r.Context())

	result, err := d.executor.Run(ctx, entry.state, resumePtr, writer.WriteChunk)
	if err != nil {
		d.logger.Error("graph execution failed", "conversation_key", key, "error", err)
		_ = writer.WriteError(err.Error())
		return
	}

	if result.Finished {
		d.cache.delete(key)
	}
}
