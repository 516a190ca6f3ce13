package model

import "time"

// State is the runtime state of a stage within a mission.
type State int

const (
	StateNotStarted State = iota
	StateStarted
	StateFinished
	StateFailed
	StateIgnored
	StateSkipped
)

func (s State) String() string {
	states := [...]string{
		"ready",
		"started",
		"finished",
		"failed",
		"ignored",
		"skipped"}

	if s < StateNotStarted || s > StateSkipped {
		return "unknown"
	}
	return states[s]
}

// MissionStage is a stage plus its runtime state. Start and End are the zero time until
// the stage has started/ended. The server stores missions with single character
// attribute names to save space, hence the JSON tags.
type MissionStage struct {
	Name       string                 `json:"n"`
	Service    string                 `json:"a"`
	Upstream   []string               `json:"u"`
	Downstream []string               `json:"d"`
	Params     map[string]interface{} `json:"p"`
	State      State                  `json:"s"`
	Start      time.Time              `json:"t"`
	End        time.Time              `json:"e"`
}

// IsFinished reports whether the stage has ended. The server sends a zero timestamp for
// stages that haven't ended yet.
func (s *MissionStage) IsFinished() bool {
	return !s.End.IsZero()
}

// Mission is a server-side instantiation of a plan. The client never constructs one
// locally; it is read back from GET /missions/{id} and should only be used for checking
// mission status. Missions are snapshots: server state may change between reads.
type Mission struct {
	Id       string                 `json:"i"`
	Name     string                 `json:"n"`
	Services []string               `json:"a"`
	Stages   []*MissionStage        `json:"s"`
	Params   map[string]interface{} `json:"p"`
	Start    time.Time              `json:"t"`
	End      time.Time              `json:"e"`
}

// GetStage finds a stage within a mission. Returns nil if the stage doesn't exist.
func (m *Mission) GetStage(stageName string) *MissionStage {
	for _, s := range m.Stages {
		if s.Name == stageName {
			return s
		}
	}
	return nil
}

// IsComplete reports whether every stage of the mission has reached a terminal state.
func (m *Mission) IsComplete() bool {
	for _, s := range m.Stages {
		switch s.State {
		case StateFinished, StateIgnored, StateSkipped:
			continue
		default:
			return false
		}
	}
	return true
}
