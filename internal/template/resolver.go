package template

import (
	"context"
	"fmt"
	"strings"

	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
)

// Resolver assembles a Template and its optional Host into the
// EffectiveTemplate a session is seeded from.
type Resolver struct {
	store Store
}

// NewResolver wraps a Store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads templateID, validates its steps, loads its host (if
// any), and assembles the effective system prompt: host role, then
// the template's system prompt, then its background knowledge, in that
// order, joined with a single newline.
func (r *Resolver) Resolve(ctx context.Context, templateID string) (*models.EffectiveTemplate, error) {
	tmpl, err := r.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	for _, step := range tmpl.Steps {
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
		}
	}

	var parts []string
	if tmpl.HostID != nil && *tmpl.HostID != "" {
		host, err := r.store.GetHost(ctx, *tmpl.HostID)
		if err != nil {
			return nil, err
		}
		parts = append(parts, host.Role)
	}
	parts = append(parts, tmpl.SystemPrompt)
	if strings.TrimSpace(tmpl.BackgroundKnowledge) != "" {
		parts = append(parts, "# 背景知识\n"+tmpl.BackgroundKnowledge)
	}

	substituted := *tmpl
	if len(substituted.Variables) > 0 {
		substituted.Theme = ApplyVariables(substituted.Theme, substituted.Variables)
		substituted.SystemPrompt = ApplyVariables(substituted.SystemPrompt, substituted.Variables)
		substituted.BackgroundKnowledge = ApplyVariables(substituted.BackgroundKnowledge, substituted.Variables)
		substituted.WelcomeMessage = ApplyVariables(substituted.WelcomeMessage, substituted.Variables)
		substituted.EndMessage = ApplyVariables(substituted.EndMessage, substituted.Variables)
		for i := range parts {
			parts[i] = ApplyVariables(parts[i], substituted.Variables)
		}
		steps := make([]models.Step, len(substituted.Steps))
		for i, st := range substituted.Steps {
			st.Content = ApplyVariables(st.Content, substituted.Variables)
			st.Condition = ApplyVariables(st.Condition, substituted.Variables)
			steps[i] = st
		}
		substituted.Steps = steps
	}

	return &models.EffectiveTemplate{
		Template:              substituted,
		EffectiveSystemPrompt: strings.Join(parts, "\n"),
	}, nil
}

// ApplyVariables substitutes every "{{key}}" occurrence in text with
// bindings[key]. A key with no binding is left untouched rather than
// erroring — an unbound variable is treated as a no-op, not a
// failure.
func ApplyVariables(text string, bindings map[string]string) string {
	if len(bindings) == 0 {
		return text
	}
	replacer := make([]string, 0, len(bindings)*2)
	for k, v := range bindings {
		replacer = append(replacer, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(replacer...).Replace(text)
}
