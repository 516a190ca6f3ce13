package model

import (
	"encoding/json"
	"strings"
)

// CommandWait is the command carried by continuation trigger messages.
const CommandWait = "wait"

// Event is the payload delivered to a service to make it run a stage or a command.
// Any keys not recognised below pass through Extra unmodified, so callers can attach
// arbitrary information to a trigger message.
type Event struct {
	Plan               string                 `json:"plan,omitempty"`
	Stage              string                 `json:"stage,omitempty"`
	MissionId          string                 `json:"mission_id,omitempty"`
	Command            string                 `json:"command,omitempty"`
	IgnoreDependencies bool                   `json:"ignore_dependencies,omitempty"`
	IgnoreDependants   bool                   `json:"ignore_dependants,omitempty"`
	Params             map[string]interface{} `json:"params,omitempty"`

	// continuation state for the wait command
	WaitInvocationCount int                    `json:"wait_invocation_count,omitempty"`
	WaitParams          map[string]interface{} `json:"wait_params,omitempty"`

	Extra map[string]interface{} `json:"-"`
}

// StageList returns every stage an event refers to: the 'stages' passthrough attribute
// (a list or a comma separated string) if present, otherwise the single 'stage'
// attribute.
func (e Event) StageList() []string {
	switch v := e.Extra["stages"].(type) {
	case string:
		var names []string
		for _, s := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		return names
	case []string:
		return v
	case []interface{}:
		var names []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				names = append(names, s)
			}
		}
		return names
	}
	if e.Stage != "" {
		return []string{e.Stage}
	}
	return nil
}

// eventAlias prevents MarshalJSON/UnmarshalJSON recursion.
type eventAlias Event

func (e Event) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(eventAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}
	var merged map[string]interface{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var a eventAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range []string{
		"plan", "stage", "mission_id", "command", "ignore_dependencies",
		"ignore_dependants", "params", "wait_invocation_count", "wait_params",
	} {
		delete(raw, known)
	}
	// 'mission' is accepted as an alias for 'mission_id'
	if a.MissionId == "" {
		if alias, ok := raw["mission"].(string); ok {
			a.MissionId = alias
			delete(raw, "mission")
		}
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*e = Event(a)
	return nil
}
