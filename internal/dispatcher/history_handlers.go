package dispatcher

import (
	"net/http"

	"surveyengine/internal/httputil"
)

// HandleHistoryList implements GET /api/survey/chat/history:
// a list of {conversation_id, timestamp, created_at, message_count}.
func (d *Dispatcher) HandleHistoryList(w http.ResponseWriter, r *http.Request) {
	summaries, err := d.chatlog.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summaries)
}

// HandleHistoryGet implements GET /api/survey/chat/history/{conversation_id}:
// the full HUMAN/ASSISTANT transcript for one conversation.
func (d *Dispatcher) HandleHistoryGet(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := pathParam(w, r, "conversation_id", "conversation_id")
	if !ok {
		return
	}

	entry, err := d.chatlog.Get(r.Context(), conversationID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, entry)
}
