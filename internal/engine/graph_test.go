package engine

import (
	"reflect"
	"sort"
	"testing"

	"surveyengine/internal/domain/models"
)

func TestCompileRejectsConditionStepWithoutBranches(t *testing.T) {
	_, err := Compile([]models.Step{
		{Index: 0, Type: models.StepCondition, Condition: "x", Branches: [2]string{"END", ""}},
	})
	if err == nil {
		t.Fatal("expected error for CONDITION step missing a branch")
	}
}

func TestDeclaredEdgesFromInteriorNode(t *testing.T) {
	g, err := Compile([]models.Step{
		{Index: 0, Type: models.StepLinear},
		{Index: 1, Type: models.StepLinear},
		{Index: 2, Type: models.StepLinear},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	edges, err := g.DeclaredEdges(models.QuestionLabel(1))
	if err != nil {
		t.Fatalf("DeclaredEdges: %v", err)
	}

	want := []string{"1_q", "1_a", "2_q", "2_a", "end_survey"}
	sort.Strings(edges)
	sort.Strings(want)
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges = %v, want %v", edges, want)
	}
}

func TestDeclaredEdgesFromEndSurvey(t *testing.T) {
	g, err := Compile([]models.Step{{Index: 0, Type: models.StepLinear}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	edges, err := g.DeclaredEdges(models.EndSurveyLabel)
	if err != nil {
		t.Fatalf("DeclaredEdges: %v", err)
	}
	if len(edges) != 1 || edges[0] != models.EndSurveyLabel {
		t.Errorf("edges = %v, want [end_survey]", edges)
	}
}

func TestDeclaredEdgesRejectsMalformedLabel(t *testing.T) {
	g, err := Compile([]models.Step{{Index: 0, Type: models.StepLinear}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := g.DeclaredEdges("bogus"); err == nil {
		t.Fatal("expected error for malformed label")
	}
}
