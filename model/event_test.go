package model

import (
	"encoding/json"
	"testing"
)

func TestEvent_ExtraKeysPassThrough(t *testing.T) {

	data := []byte(`{"plan":"test-plan","stage":"stage-1","mission_id":"m1","topic":"tp-test","count":3}`)

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("Could not unmarshal event: %v", err)
	}
	if event.Plan != "test-plan" || event.Stage != "stage-1" || event.MissionId != "m1" {
		t.Fatalf("Known attributes not parsed: %+v", event)
	}
	if event.Extra["topic"] != "tp-test" {
		t.Fatalf("Extra key 'topic' not preserved: %v", event.Extra)
	}

	out, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Could not marshal event: %v", err)
	}
	var raw map[string]interface{}
	json.Unmarshal(out, &raw)
	if raw["topic"] != "tp-test" {
		t.Fatalf("Extra key 'topic' not present after marshal: %v", string(out))
	}
	if raw["count"] != float64(3) {
		t.Fatalf("Extra key 'count' not present after marshal: %v", string(out))
	}
	if raw["stage"] != "stage-1" {
		t.Fatalf("Known attribute lost after marshal: %v", string(out))
	}
}

func TestEvent_MissionAlias(t *testing.T) {
	var event Event
	json.Unmarshal([]byte(`{"stage":"stage-1","mission":"m1"}`), &event)
	if event.MissionId != "m1" {
		t.Fatalf("'mission' was not accepted as an alias for 'mission_id'")
	}
	if _, ok := event.Extra["mission"]; ok {
		t.Fatalf("Alias should not remain in extra keys")
	}
}

func TestEvent_ContinuationFields(t *testing.T) {
	event := Event{
		Stage:               "stage-1",
		MissionId:           "m1",
		Command:             CommandWait,
		WaitInvocationCount: 2,
		WaitParams:          map[string]interface{}{"job": "j1"},
	}
	out, _ := json.Marshal(event)
	var parsed Event
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("Could not round trip continuation event: %v", err)
	}
	if parsed.Command != "wait" || parsed.WaitInvocationCount != 2 {
		t.Fatalf("Continuation state lost: %+v", parsed)
	}
	if parsed.WaitParams["job"] != "j1" {
		t.Fatalf("Wait params lost: %+v", parsed)
	}
}

func TestEvent_StageList(t *testing.T) {
	e := Event{Stage: "only"}
	if list := e.StageList(); len(list) != 1 || list[0] != "only" {
		t.Fatalf("StageList should fall back to the single stage, got %v", list)
	}
	e = Event{Extra: map[string]interface{}{"stages": "a, b,c"}}
	if list := e.StageList(); len(list) != 3 || list[2] != "c" {
		t.Fatalf("Comma separated stages not parsed, got %v", list)
	}
	e = Event{Extra: map[string]interface{}{"stages": []interface{}{"a", "b"}}}
	if list := e.StageList(); len(list) != 2 {
		t.Fatalf("List of stages not parsed, got %v", list)
	}
}

func TestMission_GetStage(t *testing.T) {
	data := []byte(`{"i":"m1","n":"test-plan","s":[` +
		`{"n":"stage-1","s":2,"p":{"table":"a"},"t":"2023-01-01T00:00:00Z","e":"2023-01-01T00:01:00Z"},` +
		`{"n":"stage-2","s":0,"t":"0001-01-01T00:00:00Z","e":"0001-01-01T00:00:00Z"}]}`)
	var m Mission
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Could not unmarshal mission: %v", err)
	}
	s := m.GetStage("stage-1")
	if s == nil || s.State != StateFinished || !s.IsFinished() {
		t.Fatalf("Stage not parsed correctly: %+v", s)
	}
	if m.GetStage("stage-2").IsFinished() {
		t.Fatalf("Zero end time should mean not finished")
	}
	if m.GetStage("not-a-stage") != nil {
		t.Fatalf("Found a stage that doesn't exist")
	}
	if m.IsComplete() {
		t.Fatalf("Mission with a not started stage should not be complete")
	}
}
