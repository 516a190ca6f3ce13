package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/datasparq-ai/houston-client/model"
)

// Commands are additional high-level methods that let users or Houston integrated
// services carry out common tasks with a single command. A service will run a command
// when triggered with a message containing the 'command' attribute.

// Start creates a new mission and triggers its starting stages with dependencies
// ignored. If no stages are requested, the plan's independent stages (the DAG roots)
// are triggered. Stages in ignore/skip are marked accordingly before anything runs.
// Returns the new mission's ID.
func (c *Client) Start(missionId string, stages, ignore, skip []string, params map[string]interface{}) (string, error) {

	newMissionId, err := c.CreateMission(missionId, params)
	if err != nil {
		return "", err
	}

	for _, s := range ignore {
		if s == "" {
			continue
		}
		if _, err := c.IgnoreStage(s, newMissionId); err != nil {
			log.Warnf("Could not ignore stage '%v': %v", s, err)
		}
	}
	for _, s := range skip {
		if s == "" {
			continue
		}
		if _, err := c.SkipStage(s, newMissionId); err != nil {
			log.Warnf("Could not skip stage '%v': %v", s, err)
		}
	}

	startingStages := stages
	if len(startingStages) == 0 {
		for _, s := range c.Plan.IndependentStages() {
			startingStages = append(startingStages, s.Name)
		}
	}

	// the requested stages may not be the DAG roots, so dependencies are always ignored
	if err := c.TriggerAll(startingStages, newMissionId, true); err != nil {
		return newMissionId, err
	}

	log.Infof("Started new mission '%v' with stages: %v.", newMissionId, strings.Join(startingStages, ", "))
	return newMissionId, nil
}

// Ignore marks the requested stages as ignored. If no stages are given then every stage
// is ignored, essentially stopping the mission. Note: a stage that has already started
// cannot be stopped.
func (c *Client) Ignore(missionId string, stages []string) error {
	if len(stages) == 0 {
		for _, s := range c.Plan.Stages {
			stages = append(stages, s.Name)
		}
	}
	for _, s := range stages {
		if _, err := c.IgnoreStage(s, missionId); err != nil {
			// we don't care if the stage was already ignored
			log.Debugf("Could not ignore stage '%v': %v", s, err)
		}
	}
	log.Infof("Ignored stages: %v", strings.Join(stages, ", "))
	return nil
}

// Skip marks one or more stages as skipped.
func (c *Client) Skip(missionId string, stages []string) error {
	for _, s := range stages {
		if _, err := c.SkipStage(s, missionId); err != nil {
			return err
		}
		log.Infof("Marked stage '%v' as skipped.", s)
	}
	return nil
}

// Fail forces one or more stages to be marked as failed.
func (c *Client) Fail(missionId string, stages []string) error {
	for _, s := range stages {
		if _, err := c.FailStage(s, missionId); err != nil {
			log.Warnf("Failed to fail stage '%v'. Stage may not exist.", s)
		}
	}
	log.Infof("Marked stages as failed: %v", strings.Join(stages, ", "))
	return nil
}

// StaticFire runs a single stage in isolation: a new mission is created and the stage is
// triggered with both its dependencies and its dependants ignored.
func (c *Client) StaticFire(stageName string) error {
	missionId, err := c.CreateMission("", nil)
	if err != nil {
		return err
	}
	err = c.Trigger(model.Event{
		Stage:              stageName,
		MissionId:          missionId,
		Plan:               c.Plan.Name,
		IgnoreDependencies: true,
		IgnoreDependants:   true,
	})
	if err != nil {
		return err
	}
	log.Infof("Started a new mission and triggered stage '%v' with all other stages ignored.", stageName)
	return nil
}

// Delete deletes the plan, or a single mission if a mission ID is given. Deleting
// something that is already gone is not an error.
func (c *Client) Delete(missionId string) error {
	if missionId != "" {
		mission, err := c.DeleteMission(missionId, true)
		if err != nil {
			return err
		}
		if mission != nil {
			log.Infof("Deleted mission '%v'.", missionId)
		}
		return nil
	}
	if err := c.DeletePlan(true); err != nil {
		return err
	}
	log.Infof("Deleted plan '%v'.", c.Plan.Name)
	return nil
}

// CommandContext carries everything a command might need beyond the client itself: the
// triggering event and the waiting configuration of the current invocation.
type CommandContext struct {
	Event model.Event

	WaitCallback        WaitCallback
	StartTime           time.Time
	TimeLimitSeconds    int
	WaitIntervalSeconds int
}

// RunCommand selects and runs a command given its name. Command names are normalised so
// that e.g. 'start-mission', 'start_mission', and 'startmission' are equivalent, and
// several historical aliases are accepted.
func (c *Client) RunCommand(commandName string, ctx CommandContext) error {

	event := ctx.Event
	stages := event.StageList()

	normalised := strings.NewReplacer("-", "", "_", "", "plan", "", "mission", "", "sequence", "").Replace(strings.ToLower(commandName))

	switch normalised {
	case "start", "blastoff":
		_, err := c.Start(event.MissionId, stages, listParam(event, "ignore"), listParam(event, "skip"), nil)
		return err
	case "ignore", "exclude", "scrub":
		return c.Ignore(event.MissionId, stages)
	case "skip", "dummy":
		return c.Skip(event.MissionId, stages)
	case "fail":
		return c.Fail(event.MissionId, stages)
	case "staticfire":
		return c.StaticFire(event.Stage)
	case "save", "update":
		if err := c.SavePlan(); err != nil {
			return err
		}
		log.Infof("Saved plan '%v'.", c.Plan.Name)
		return nil
	case "delete":
		return c.Delete(event.MissionId)
	case "trigger":
		for _, s := range stages {
			err := c.Trigger(model.Event{
				Stage:              s,
				MissionId:          event.MissionId,
				IgnoreDependencies: event.IgnoreDependencies,
				IgnoreDependants:   event.IgnoreDependants,
			})
			if err != nil {
				return err
			}
		}
		log.Infof("Triggered stages: %v", strings.Join(stages, ", "))
		return nil
	case "wait":
		return c.Wait(event.Stage, event.MissionId, WaitOptions{
			Callback:            ctx.WaitCallback,
			StartTime:           ctx.StartTime,
			TimeLimitSeconds:    ctx.TimeLimitSeconds,
			PollIntervalSeconds: ctx.WaitIntervalSeconds,
			Params:              event.WaitParams,
			InvocationCount:     event.WaitInvocationCount,
		})
	default:
		return &model.ClientError{Detail: fmt.Sprintf("unrecognised command '%v'", commandName)}
	}
}

// listParam reads a list-valued attribute from an event's passthrough keys. The value
// may be a list or a comma separated string.
func listParam(event model.Event, key string) []string {
	return parseStageList(event.Extra[key])
}

func parseStageList(value interface{}) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
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
	return nil
}
