package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/datasparq-ai/houston-client/model"
)

func TestNew_InlinePlan(t *testing.T) {
	c := newTestClient(t, "http://localhost:8000/api/v1")
	if c.Plan.Name != "test-plan" {
		t.Fatalf("Plan not parsed, got name '%v'", c.Plan.Name)
	}
	if len(c.Plan.Stages) != 2 {
		t.Fatalf("Plan stages not parsed")
	}
}

func TestNew_NoKey(t *testing.T) {
	os.Unsetenv("HOUSTON_KEY")
	_, err := New(Options{Plan: testPlanDocument, BaseUrl: "http://localhost:8000/api/v1"})
	if err == nil {
		t.Fatalf("Client should not be created without a key")
	}
}

func TestNew_KeyAsURI(t *testing.T) {
	c, err := New(Options{Plan: testPlanDocument, Key: "https://example.com/api/v1/key/abc123"})
	if err != nil {
		t.Fatalf("Could not create client from key URI: %v", err)
	}
	if c.BaseUrl != "https://example.com/api/v1" || c.Key != "abc123" {
		t.Fatalf("Key URI not split correctly: '%v' '%v'", c.BaseUrl, c.Key)
	}
}

func TestNew_InvalidBaseUrl(t *testing.T) {
	_, err := New(Options{Plan: testPlanDocument, Key: "test-key", BaseUrl: "localhost:8000"})
	if err == nil {
		t.Fatalf("Base URL without a scheme should be rejected")
	}
}

func TestNew_PlanFromServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plans/saved-plan":
			w.Write([]byte(`{"name": "saved-plan", "stages": [{"name": "stage-1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c, err := New(Options{Plan: "saved-plan", Key: "test-key", BaseUrl: server.URL})
	if err != nil {
		t.Fatalf("Could not create client from saved plan: %v", err)
	}
	if c.Plan.Name != "saved-plan" {
		t.Fatalf("Saved plan not loaded")
	}

	_, err = New(Options{Plan: "missing-plan", Key: "test-key", BaseUrl: server.URL})
	var notFound *model.PlanNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected PlanNotFound for a plan that doesn't exist, got %v", err)
	}
}

func TestGetParams_PlanOnly(t *testing.T) {
	c, err := New(Options{
		Plan: `{"name": "test-plan", "stages": [{"name": "stage-1", "params": {"table": "test.sql", "limit": "100"}}]}`,
		Key:  "test-key", BaseUrl: "http://localhost:8000/api/v1",
	})
	if err != nil {
		t.Fatalf("Could not create client: %v", err)
	}

	params, err := c.GetParams("stage-1", "")
	if err != nil {
		t.Fatalf("GetParams failed: %v", err)
	}
	if params["table"] != "test.sql" {
		t.Fatalf("Stage params not returned: %v", params)
	}
	// JSON encoded strings are decoded before use
	if params["limit"] != float64(100) {
		t.Fatalf("JSON encoded param not decoded: %v (%T)", params["limit"], params["limit"])
	}

	params, err = c.GetParams("not-a-stage", "")
	if err != nil {
		t.Fatalf("GetParams should not error for a missing stage: %v", err)
	}
	if params != nil {
		t.Fatalf("Expected nil params for a missing stage, got %v", params)
	}
}

func TestGetParams_MissionOverlay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/missions/m1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"i":"m1","n":"test-plan","p":{"env":"prod","table":"default.sql"},` +
			`"s":[{"n":"stage-1","p":{"table":"stage.sql"},"t":"0001-01-01T00:00:00Z","e":"0001-01-01T00:00:00Z"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	params, err := c.GetParams("stage-1", "m1")
	if err != nil {
		t.Fatalf("GetParams failed: %v", err)
	}
	// mission level params are included, stage values win on collision
	if params["env"] != "prod" {
		t.Fatalf("Mission level param missing: %v", params)
	}
	if params["table"] != "stage.sql" {
		t.Fatalf("Stage param should win on key collision, got %v", params["table"])
	}

	params, _ = c.GetParams("not-a-stage", "m1")
	if params != nil {
		t.Fatalf("Expected nil params for a missing stage, got %v", params)
	}
}

func TestCreateMission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/missions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("x-access-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"m1"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	missionId, err := c.CreateMission("", nil)
	if err != nil {
		t.Fatalf("Could not create mission: %v", err)
	}
	if missionId != "m1" {
		t.Fatalf("Unexpected mission ID: %v", missionId)
	}
}

func TestDeleteMission_Safe(t *testing.T) {
	status := http.StatusNotFound
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"msg":"mission not found"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	// a mission that is already gone is not an error in safe mode
	mission, err := c.DeleteMission("m1", true)
	if err != nil || mission != nil {
		t.Fatalf("Safe delete of a missing mission should be quiet, got mission=%v err=%v", mission, err)
	}

	// a server fault is not "already gone" and must propagate even in safe mode
	status = http.StatusInternalServerError
	_, err = c.DeleteMission("m1", true)
	var serverErr *model.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("Safe delete must not swallow server faults, got %v", err)
	}
}

func TestSavePlan_ValidatesLocally(t *testing.T) {
	c, err := New(Options{
		Plan: `{"name": "bad-plan", "stages": [{"name": "stage-1", "upstream": ["not-a-stage"]}]}`,
		Key:  "test-key", BaseUrl: "http://localhost:1", // any request would fail
	})
	if err != nil {
		t.Fatalf("Could not create client: %v", err)
	}
	err = c.SavePlan()
	var validationErr *model.PlanValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected PlanValidationError before any request is made, got %v", err)
	}
}
