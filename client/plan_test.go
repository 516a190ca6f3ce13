package client

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/datasparq-ai/houston-client/model"
)

func TestSubstituteEnv(t *testing.T) {
	os.Setenv("TEST_PLAN_TOPIC", "topic-from-env")
	defer os.Unsetenv("TEST_PLAN_TOPIC")

	out := substituteEnv(`{"topic": "${TEST_PLAN_TOPIC}", "key": "${TEST_PLAN_UNSET}", "cost": "$100"}`)
	expected := `{"topic": "topic-from-env", "key": "${TEST_PLAN_UNSET}", "cost": "$100"}`
	if out != expected {
		t.Fatalf("Expected '%v', got '%v'", expected, out)
	}
}

func TestParsePlan_YAML(t *testing.T) {
	plan, err := parsePlan(`
name: yaml-plan
services:
  - name: svc
    trigger:
      method: pubsub
      topic: tp
stages:
  - name: stage-1
    service: svc
    downstream:
      - stage-2
  - name: stage-2
    service: svc
    params:
      table: events
`)
	if err != nil {
		t.Fatalf("Could not parse YAML plan: %v", err)
	}
	if plan.Name != "yaml-plan" || len(plan.Stages) != 2 {
		t.Fatalf("YAML plan parsed incorrectly: %+v", plan)
	}
	if plan.Services[0].Trigger == nil || plan.Services[0].Trigger.Method != model.TriggerMethodPubSub {
		t.Fatalf("Service trigger not parsed: %+v", plan.Services[0])
	}
	if plan.Stages[1].Params["table"] != "events" {
		t.Fatalf("Stage params not parsed: %+v", plan.Stages[1])
	}
	if err := plan.Validate(); err != nil {
		t.Fatalf("Parsed plan should validate: %v", err)
	}
}

func TestParsePlan_Invalid(t *testing.T) {
	_, err := parsePlan(`{"name": "broken"`)
	var validationErr *model.PlanValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected a plan validation error, got %v", err)
	}
}

func TestLoadPlanText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(testPlanDocument), 0644); err != nil {
		t.Fatalf("Could not write plan file: %v", err)
	}

	text, err := LoadPlanText(path)
	if err != nil {
		t.Fatalf("Could not load plan file: %v", err)
	}
	if text != testPlanDocument {
		t.Fatalf("Loaded plan text does not match")
	}

	_, err = LoadPlanText(filepath.Join(t.TempDir(), "missing.json"))
	var notFound *model.PlanNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected plan not found, got %v", err)
	}
}

func TestIsPlanDocument(t *testing.T) {
	documents := []string{`{"name": "p"}`, "name: p\nstages: []", "plans/my-plan.json", "my-plan.yaml", "my-plan.yml"}
	for _, doc := range documents {
		if !isPlanDocument(doc) {
			t.Fatalf("'%v' should be treated as a plan document", doc)
		}
	}
	names := []string{"my-plan", "apollo"}
	for _, name := range names {
		if isPlanDocument(name) {
			t.Fatalf("'%v' should be treated as a saved plan name", name)
		}
	}
}
