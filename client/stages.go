package client

import (
	"encoding/json"
	"fmt"

	"github.com/datasparq-ai/houston-client/model"
)

// postStageState requests a stage state change. State transitions are arbitrated by the
// server; the client only issues requests.
func (c *Client) postStageState(stageName, missionId string, update model.MissionStageStateUpdate) (model.Response, error) {
	var response model.Response
	reqJSON, err := json.Marshal(update)
	if err != nil {
		return response, err
	}
	path := fmt.Sprintf("/missions/%v/stages/%v", missionId, stageName)
	_, body, err := c.post(path, reqJSON)
	if err != nil {
		return response, err
	}
	err = parseResponse(body, &response)
	return response, err
}

// StartStage marks a stage as started. Fails with a ClientError if the stage has
// already started, or if its dependencies are unmet, unless ignoreDependencies is set
// (which ignores every upstream stage, allowing the stage to run in isolation).
func (c *Client) StartStage(stageName, missionId string, ignoreDependencies bool) (model.Response, error) {
	return c.postStageState(stageName, missionId,
		model.MissionStageStateUpdate{State: "started", IgnoreDependencies: ignoreDependencies})
}

// EndStage marks a stage as finished and returns the downstream stages that are now
// eligible to run, along with their resolved parameters. If ignoreDependants is set, all
// downstream stages are ignored, effectively ending the mission early from this branch.
func (c *Client) EndStage(stageName, missionId string, ignoreDependants bool) (model.Response, error) {
	return c.postStageState(stageName, missionId,
		model.MissionStageStateUpdate{State: "finished", IgnoreDependencies: ignoreDependants})
}

// FailStage marks a stage as failed, which allows it to be started again.
func (c *Client) FailStage(stageName, missionId string) (model.Response, error) {
	return c.postStageState(stageName, missionId, model.MissionStageStateUpdate{State: "failed"})
}

// IgnoreStage marks a stage as ignored. Ignored stages are treated as if they were
// removed from the mission along with their dependants.
func (c *Client) IgnoreStage(stageName, missionId string) (model.Response, error) {
	return c.postStageState(stageName, missionId, model.MissionStageStateUpdate{State: "ignored"})
}

// SkipStage marks a stage as skipped. Skipped stages won't run, and the mission
// continues as if they don't exist.
func (c *Client) SkipStage(stageName, missionId string) (model.Response, error) {
	return c.postStageState(stageName, missionId, model.MissionStageStateUpdate{State: "skipped"})
}

// GetParams returns the parameters for a stage. If a mission ID is given, mission level
// parameters are overlaid with the stage's recorded parameters (stage values win on key
// collision); otherwise the plan's static per-stage parameters are returned. Returns nil
// rather than an error if the stage doesn't exist.
func (c *Client) GetParams(stageName, missionId string) (map[string]interface{}, error) {

	if missionId == "" {
		stage := c.Plan.GetStage(stageName)
		if stage == nil {
			return nil, nil
		}
		return decodeParams(stage.Params), nil
	}

	mission, err := c.GetMission(missionId)
	if err != nil {
		return nil, err
	}
	stage := mission.GetStage(stageName)
	if stage == nil {
		return nil, nil
	}

	params := make(map[string]interface{}, len(mission.Params)+len(stage.Params))
	for k, v := range mission.Params {
		params[k] = v
	}
	for k, v := range stage.Params {
		params[k] = v
	}
	return decodeParams(params), nil
}

// decodeParams parses any string values that are JSON encoded. Params can be JSON
// encoded strings in transit and must be decoded before use.
func decodeParams(params map[string]interface{}) map[string]interface{} {
	decoded := make(map[string]interface{}, len(params))
	for k, v := range params {
		decoded[k] = v
		if s, ok := v.(string); ok {
			var parsed interface{}
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				switch parsed.(type) {
				case map[string]interface{}, []interface{}, float64, bool:
					decoded[k] = parsed
				}
			}
		}
	}
	return decoded
}
