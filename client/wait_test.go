/**
Tests for the bounded-wait continuation engine. A stub API server records stage state
changes and a fake publisher captures any continuation trigger messages.
*/
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/datasparq-ai/houston-client/model"
)

// stageStateRecorder is a stub Houston API that records every stage state change.
type stageStateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (rec *stageStateRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update model.MissionStageStateUpdate
		json.NewDecoder(r.Body).Decode(&update)
		rec.mu.Lock()
		rec.states = append(rec.states, update.State)
		rec.mu.Unlock()
		w.Write([]byte(`{"success":true,"next":[],"complete":false}`))
	})
}

func (rec *stageStateRecorder) recorded() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string{}, rec.states...)
}

func newWaitClient(t *testing.T, baseUrl string, publisher Publisher) *Client {
	t.Helper()
	plan := `{
		"name": "test-plan",
		"services": [{"name": "svc", "trigger": {"method": "pubsub", "topic": "tp-stage", "project": "test-project"}}],
		"stages": [{"name": "stage-1", "service": "svc", "downstream": ["stage-2"]}, {"name": "stage-2", "service": "svc"}]
	}`
	c, err := New(Options{Plan: plan, Key: "test-key", BaseUrl: baseUrl, Publisher: publisher})
	if err != nil {
		t.Fatalf("Could not create client: %v", err)
	}
	return c
}

func TestWait_TimeLimitTriggersContinuation(t *testing.T) {

	rec := &stageStateRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	publisher := &fakePublisher{}
	c := newWaitClient(t, server.URL, publisher)

	callbackCount := 0
	err := c.Wait("stage-1", "m1", WaitOptions{
		Callback: func(params map[string]interface{}) (bool, error) {
			callbackCount++
			return false, nil
		},
		StartTime:           time.Now(),
		TimeLimitSeconds:    1,
		PollIntervalSeconds: 2,
		Params:              map[string]interface{}{"job": "j1"},
		InvocationCount:     1,
	})
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// exactly one re-trigger event, with the invocation count incremented by exactly 1
	if len(publisher.published) != 1 {
		t.Fatalf("Expected exactly 1 continuation trigger, got %v", len(publisher.published))
	}
	var event model.Event
	json.Unmarshal(publisher.published[0].data, &event)
	if event.Command != model.CommandWait {
		t.Fatalf("Continuation message should carry the wait command, got '%v'", event.Command)
	}
	if event.WaitInvocationCount != 2 {
		t.Fatalf("Expected invocation count 2, got %v", event.WaitInvocationCount)
	}
	if event.WaitParams["job"] != "j1" {
		t.Fatalf("Wait params not carried forward: %v", event.WaitParams)
	}
	if event.Stage != "stage-1" || event.MissionId != "m1" {
		t.Fatalf("Continuation message missing stage attributes: %+v", event)
	}

	// the stage must not be ended: the next invocation resumes polling
	for _, state := range rec.recorded() {
		if state == "finished" {
			t.Fatalf("Stage was ended before the work finished")
		}
	}
	if callbackCount != 1 {
		t.Fatalf("Expected 1 callback run, got %v", callbackCount)
	}
}

func TestWait_CallbackFinishesEndsStage(t *testing.T) {

	rec := &stageStateRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	publisher := &fakePublisher{}
	c := newWaitClient(t, server.URL, publisher)

	err := c.Wait("stage-1", "m1", WaitOptions{
		Callback:            func(params map[string]interface{}) (bool, error) { return true, nil },
		StartTime:           time.Now(),
		TimeLimitSeconds:    30,
		PollIntervalSeconds: 0,
		InvocationCount:     1,
	})
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	states := rec.recorded()
	if len(states) != 1 || states[0] != "finished" {
		t.Fatalf("Expected exactly one end stage call, got %v", states)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("No re-trigger should be emitted when the work finishes in time")
	}
}

func TestWait_InvocationCeiling(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("No requests should be made once the invocation ceiling is reached")
	}))
	defer server.Close()

	publisher := &fakePublisher{}
	c := newWaitClient(t, server.URL, publisher)

	err := c.Wait("stage-1", "m1", WaitOptions{
		Callback:            func(params map[string]interface{}) (bool, error) { return false, nil },
		StartTime:           time.Now(),
		TimeLimitSeconds:    1,
		PollIntervalSeconds: 0,
		InvocationCount:     151, // over the default ceiling of 150
	})
	// treated as finished rather than an error: the loop has to be broken
	if err != nil {
		t.Fatalf("Reaching the ceiling should not be an error: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("No re-trigger should be emitted once the ceiling is reached")
	}
}

func TestWait_CallbackErrorFailsStage(t *testing.T) {

	rec := &stageStateRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	c := newWaitClient(t, server.URL, &fakePublisher{})

	callbackErr := fmt.Errorf("job crashed")
	err := c.Wait("stage-1", "m1", WaitOptions{
		Callback:            func(params map[string]interface{}) (bool, error) { return false, callbackErr },
		StartTime:           time.Now(),
		TimeLimitSeconds:    30,
		PollIntervalSeconds: 0,
		InvocationCount:     1,
	})
	if !errors.Is(err, callbackErr) {
		t.Fatalf("Callback error should propagate, got %v", err)
	}

	states := rec.recorded()
	if len(states) != 1 || states[0] != "failed" {
		t.Fatalf("Stage should be marked as failed before the error propagates, got %v", states)
	}
}

func TestWait_AlreadyCompletedIsHarmless(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"msg":"stage 'stage-1' is already finished"}`))
	}))
	defer server.Close()

	publisher := &fakePublisher{}
	c := newWaitClient(t, server.URL, publisher)

	err := c.Wait("stage-1", "m1", WaitOptions{
		Callback:            func(params map[string]interface{}) (bool, error) { return true, nil },
		StartTime:           time.Now(),
		TimeLimitSeconds:    30,
		PollIntervalSeconds: 0,
		InvocationCount:     1,
	})
	if err != nil {
		t.Fatalf("'already completed' after waiting ends should be harmless, got %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("No downstream stages should be triggered")
	}
}
