package gcp

import (
	"encoding/base64"
	"testing"
)

func TestExtractEvent(t *testing.T) {

	raw := `{"plan": "test-plan", "stage": "stage-1", "mission_id": "m1"}`

	event, err := ExtractEvent([]byte(raw))
	if err != nil {
		t.Fatalf("Could not extract raw JSON event: %v", err)
	}
	if event.Plan != "test-plan" || event.Stage != "stage-1" || event.MissionId != "m1" {
		t.Fatalf("Event parsed incorrectly: %+v", event)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(raw))
	event, err = ExtractEvent([]byte(encoded))
	if err != nil {
		t.Fatalf("Could not extract base64 encoded event: %v", err)
	}
	if event.Stage != "stage-1" {
		t.Fatalf("Base64 event parsed incorrectly: %+v", event)
	}

	if _, err := ExtractEvent([]byte("not an event")); err == nil {
		t.Fatalf("Expected an error for undecodable data")
	}
}
