package dispatcher

import (
	"fmt"
	"net/http"

	"surveyengine/internal/domain/models"
	"surveyengine/internal/httputil"
)

// HandleListTemplates implements GET /api/template/templates.
func (d *Dispatcher) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := d.templates.ListTemplates(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, templates)
}

// HandleGetTemplate implements GET /api/template/templates/{id}.
func (d *Dispatcher) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "template id")
	if !ok {
		return
	}
	t, err := d.templates.GetTemplate(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, t)
}

// HandleCreateTemplate implements POST /api/template/templates.
func (d *Dispatcher) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if err := httputil.ParseJSON(w, r, &t); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateTemplate(t); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.templates.UpsertTemplate(r.Context(), t); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, t)
}

// HandleUpdateTemplate implements PUT /api/template/templates/{id}.
func (d *Dispatcher) HandleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "template id")
	if !ok {
		return
	}
	var t models.Template
	if err := httputil.ParseJSON(w, r, &t); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = id
	if err := validateTemplate(t); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.templates.UpsertTemplate(r.Context(), t); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, t)
}

// HandleDeleteTemplate implements DELETE /api/template/templates/{id}.
func (d *Dispatcher) HandleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "template id")
	if !ok {
		return
	}
	if err := d.templates.DeleteTemplate(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateTemplate enforces the data-model invariant (models.Step.Validate)
// plus the minimal existence checks this CRUD surface is responsible for:
// "is this template/host well-formed", nothing more.
func validateTemplate(t models.Template) error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}
	for _, step := range t.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}
