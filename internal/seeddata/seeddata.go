// Package seeddata holds the demo survey template bundled with the
// repo so `cmd/seed` and local runs have something runnable without an
// external template-management system; this is just enough data to exercise
// the engine end to end).
package seeddata

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"surveyengine/internal/domain/models"
)

//go:embed templates.yaml
var bundled embed.FS

type hostDoc struct {
	ID   string `yaml:"id"`
	Role string `yaml:"role"`
}

type stepDoc struct {
	Index     int       `yaml:"index"`
	Type      string    `yaml:"type"`
	Content   string    `yaml:"content"`
	Condition string    `yaml:"condition"`
	Branches  [2]string `yaml:"branches"`
}

type templateDoc struct {
	ID                  string            `yaml:"id"`
	Theme               string            `yaml:"theme"`
	HostID              string            `yaml:"host_id"`
	SystemPrompt        string            `yaml:"system_prompt"`
	BackgroundKnowledge string            `yaml:"background_knowledge"`
	MaxTurns            int               `yaml:"max_turns"`
	WelcomeMessage      string            `yaml:"welcome_message"`
	EndMessage          string            `yaml:"end_message"`
	Variables           map[string]string `yaml:"variables"`
	Steps               []stepDoc         `yaml:"steps"`
}

type bundleDoc struct {
	Hosts     []hostDoc     `yaml:"hosts"`
	Templates []templateDoc `yaml:"templates"`
}

// Load parses the embedded templates.yaml into domain models, ready to
// hand to a template.AdminStore's Upsert calls.
func Load() ([]models.Template, []models.Host, error) {
	data, err := bundled.ReadFile("templates.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("read embedded seed data: %w", err)
	}

	var doc bundleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse embedded seed data: %w", err)
	}

	hosts := make([]models.Host, 0, len(doc.Hosts))
	for _, h := range doc.Hosts {
		hosts = append(hosts, models.Host{ID: h.ID, Role: h.Role})
	}

	templates := make([]models.Template, 0, len(doc.Templates))
	for _, t := range doc.Templates {
		steps := make([]models.Step, 0, len(t.Steps))
		for _, s := range t.Steps {
			steps = append(steps, models.Step{
				Index:     s.Index,
				Content:   s.Content,
				Type:      models.StepType(s.Type),
				Condition: s.Condition,
				Branches:  s.Branches,
			})
		}

		var hostID *string
		if t.HostID != "" {
			id := t.HostID
			hostID = &id
		}

		templates = append(templates, models.Template{
			ID:                  t.ID,
			Theme:               t.Theme,
			SystemPrompt:        t.SystemPrompt,
			BackgroundKnowledge: t.BackgroundKnowledge,
			MaxTurns:            t.MaxTurns,
			WelcomeMessage:      t.WelcomeMessage,
			EndMessage:          t.EndMessage,
			Steps:               steps,
			Variables:           t.Variables,
			HostID:              hostID,
		})
	}

	return templates, hosts, nil
}
