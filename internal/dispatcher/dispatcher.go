// Package dispatcher implements the Session Dispatcher:
// the HTTP surface that routes a request to its live graph instance —
// or rebuilds one from the checkpoint store — and streams the
// executor's output back over SSE.
package dispatcher

import (
	"log/slog"
	"net/http"
	"time"

	"surveyengine/internal/chatlog"
	"surveyengine/internal/checkpoint"
	"surveyengine/internal/engine"
	"surveyengine/internal/sse"
	"surveyengine/internal/template"
)

// Dispatcher owns the in-process session cache and every dependency a
// chat turn touches: template resolution, the graph executor, the
// checkpoint store (to rehydrate a missing cache entry), and the chat
// log (for the history endpoints).
type Dispatcher struct {
	resolver    *template.Resolver
	executor    *engine.Executor
	checkpoints checkpoint.Store
	chatlog     chatlog.Reader
	templates   template.AdminStore

	keepAlive time.Duration
	logger    *slog.Logger

	cache sessionCache
}

// New builds a Dispatcher. templates may be nil if the admin CRUD
// endpoints are not mounted (e.g. a deployment fronted by an external
// template-management system).
func New(
	resolver *template.Resolver,
	executor *engine.Executor,
	checkpoints checkpoint.Store,
	chatlogStore chatlog.Reader,
	templates template.AdminStore,
	keepAlive time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		resolver:    resolver,
		executor:    executor,
		checkpoints: checkpoints,
		chatlog:     chatlogStore,
		templates:   templates,
		keepAlive:   keepAlive,
		logger:      logger,
	}
}

// Routes registers every chat, history, template, and host endpoint onto mux.
func (d *Dispatcher) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/survey/chat/stream", d.HandleStream)
	mux.HandleFunc("POST /api/survey/chat/continue", d.HandleContinue)
	mux.HandleFunc("GET /api/survey/chat/history", d.HandleHistoryList)
	mux.HandleFunc("GET /api/survey/chat/history/{conversation_id}", d.HandleHistoryGet)

	if d.templates != nil {
		mux.HandleFunc("GET /api/template/templates", d.HandleListTemplates)
		mux.HandleFunc("POST /api/template/templates", d.HandleCreateTemplate)
		mux.HandleFunc("GET /api/template/templates/{id}", d.HandleGetTemplate)
		mux.HandleFunc("PUT /api/template/templates/{id}", d.HandleUpdateTemplate)
		mux.HandleFunc("DELETE /api/template/templates/{id}", d.HandleDeleteTemplate)

		mux.HandleFunc("GET /api/host/hosts", d.HandleListHosts)
		mux.HandleFunc("POST /api/host/hosts", d.HandleCreateHost)
		mux.HandleFunc("GET /api/host/hosts/{id}", d.HandleGetHost)
		mux.HandleFunc("PUT /api/host/hosts/{id}", d.HandleUpdateHost)
		mux.HandleFunc("DELETE /api/host/hosts/{id}", d.HandleDeleteHost)
	}
}

// newSSEWriter starts an SSE response plus its keepalive ticker, to
// cover the oracle-wait gap between emitted chunks.
func (d *Dispatcher) newSSEWriter(w http.ResponseWriter) (*sse.Writer, *sse.TickerKeepAlive, error) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		return nil, nil, err
	}
	keepAlive := sse.NewTickerKeepAlive(d.keepAlive)
	keepAlive.Start(writer, d.logger)
	return writer, keepAlive, nil
}
