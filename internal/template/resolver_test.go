package template

import (
	"context"
	"errors"
	"testing"

	"surveyengine/internal/domain"
	"surveyengine/internal/domain/models"
)

func TestApplyVariablesSubstitutesKnownTokensAndLeavesUnknown(t *testing.T) {
	got := ApplyVariables("Hello {{name}}, about {{topic}}, also {{missing}}", map[string]string{
		"name":  "Bob",
		"topic": "tea",
	})
	want := "Hello Bob, about tea, also {{missing}}"
	if got != want {
		t.Errorf("ApplyVariables = %q, want %q", got, want)
	}
}

func TestApplyVariablesIsIdempotent(t *testing.T) {
	bindings := map[string]string{"name": "Bob", "topic": "tea"}
	text := "Hello {{name}}, about {{topic}}"

	once := ApplyVariables(text, bindings)
	twice := ApplyVariables(once, bindings)

	if once != twice {
		t.Errorf("ApplyVariables not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestResolveAssemblesEffectivePromptWithHostAndBackground(t *testing.T) {
	hostID := "host-1"
	store := NewMemoryStore(
		[]models.Template{{
			ID:                  "tmpl-1",
			SystemPrompt:        "You run a survey.",
			BackgroundKnowledge: "Domain facts here.",
			HostID:              &hostID,
		}},
		[]models.Host{{ID: hostID, Role: "You are a friendly host."}},
	)

	resolved, err := NewResolver(store).Resolve(context.Background(), "tmpl-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := "You are a friendly host.\nYou run a survey.\n# 背景知识\nDomain facts here."
	if resolved.EffectiveSystemPrompt != want {
		t.Errorf("EffectiveSystemPrompt = %q, want %q", resolved.EffectiveSystemPrompt, want)
	}
}

func TestResolveOmitsBackgroundSectionWhenBlank(t *testing.T) {
	store := NewMemoryStore([]models.Template{{
		ID:           "tmpl-2",
		SystemPrompt: "You run a survey.",
	}}, nil)

	resolved, err := NewResolver(store).Resolve(context.Background(), "tmpl-2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if resolved.EffectiveSystemPrompt != "You run a survey." {
		t.Errorf("EffectiveSystemPrompt = %q, want %q", resolved.EffectiveSystemPrompt, "You run a survey.")
	}
}

func TestResolveTemplateNotFound(t *testing.T) {
	store := NewMemoryStore(nil, nil)
	_, err := NewResolver(store).Resolve(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveRejectsConditionStepWithoutTwoBranches(t *testing.T) {
	store := NewMemoryStore([]models.Template{{
		ID:           "tmpl-3",
		SystemPrompt: "x",
		Steps: []models.Step{
			{Index: 0, Type: models.StepCondition, Condition: "x", Branches: [2]string{"END", ""}},
		},
	}}, nil)

	_, err := NewResolver(store).Resolve(context.Background(), "tmpl-3")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
