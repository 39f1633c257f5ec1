package dispatcher

import (
	"net/http"

	"surveyengine/internal/domain/models"
	"surveyengine/internal/httputil"
)

// HandleListHosts implements GET /api/host/hosts.
func (d *Dispatcher) HandleListHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := d.templates.ListHosts(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, hosts)
}

// HandleGetHost implements GET /api/host/hosts/{id}.
func (d *Dispatcher) HandleGetHost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "host id")
	if !ok {
		return
	}
	h, err := d.templates.GetHost(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h)
}

// HandleCreateHost implements POST /api/host/hosts.
func (d *Dispatcher) HandleCreateHost(w http.ResponseWriter, r *http.Request) {
	var h models.Host
	if err := httputil.ParseJSON(w, r, &h); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.ID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "host id is required")
		return
	}
	if err := d.templates.UpsertHost(r.Context(), h); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, h)
}

// HandleUpdateHost implements PUT /api/host/hosts/{id}.
func (d *Dispatcher) HandleUpdateHost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "host id")
	if !ok {
		return
	}
	var h models.Host
	if err := httputil.ParseJSON(w, r, &h); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.ID = id
	if err := d.templates.UpsertHost(r.Context(), h); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h)
}

// HandleDeleteHost implements DELETE /api/host/hosts/{id}.
func (d *Dispatcher) HandleDeleteHost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "host id")
	if !ok {
		return
	}
	if err := d.templates.DeleteHost(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
