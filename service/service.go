// Package service provides the high level harness for services that carry out Houston
// stages or commands. A service receives an externally delivered event, runs the unit
// of work it describes, and reports the outcome back to the Houston server.
package service

import (
	"errors"
	"time"

	"github.com/datasparq-ai/houston-client/client"
	"github.com/datasparq-ai/houston-client/model"
)

// Func is the unit of work a service performs for a stage. It receives the stage's
// resolved parameters and returns values that are passed to the wait callback, if any.
type Func func(params map[string]interface{}) (map[string]interface{}, error)

// Options configures a service.
type Options struct {
	// Name is a friendly name for the service, used in logs.
	Name string

	// Auth maps service names to credentials for authenticated triggers.
	Auth map[string]string

	// TimeLimitSeconds is the maximum time the service can run for in a single
	// invocation, e.g. the hosting platform's execution time limit. Default 300.
	TimeLimitSeconds int

	// WaitCallback, if set, is used to check whether the stage's work is finished after
	// Func returns. The service polls it and re-triggers itself if the time limit is
	// reached first.
	WaitCallback client.WaitCallback

	// WaitIntervalSeconds is the time between runs of the wait callback. Default 10.
	WaitIntervalSeconds int

	// Client overrides how the Houston client is constructed, e.g. to wire in a pubsub
	// publisher. The plan and auth map are filled in from the event and Options.Auth.
	Client client.Options
}

// Execute runs a Houston stage or command based on the event provided. This is the main
// entrypoint for a service: the caller's platform handler decodes its native message
// into a model.Event and hands it here.
//
// If the event carries no plan, fn runs standalone without Houston. If it carries a
// command, the command runs. Otherwise the event's stage is started, fn runs, and the
// stage is ended (triggering downstream stages) or handed to the continuation engine
// when a wait callback is configured.
func Execute(event model.Event, fn Func, opt Options) (map[string]interface{}, error) {

	start := time.Now() // start time of the invocation, used by the continuation engine

	if opt.Name == "" {
		opt.Name = "unnamed"
	}
	if opt.TimeLimitSeconds == 0 {
		opt.TimeLimitSeconds = 300
	}
	if opt.WaitIntervalSeconds == 0 {
		opt.WaitIntervalSeconds = 10
	}
	log := client.Log()

	if event.Plan == "" {
		return executeWithoutHouston(event, fn, opt)
	}

	log.Infof("Initialising Houston client for plan '%v'.", event.Plan)

	clientOpt := opt.Client
	clientOpt.Plan = event.Plan
	if clientOpt.Auth == nil {
		clientOpt.Auth = opt.Auth
	}
	c, err := client.New(clientOpt)
	if err != nil {
		return nil, err
	}

	if event.Command != "" {
		log.Infof("Executing command '%v'.", event.Command)
		return nil, c.RunCommand(event.Command, client.CommandContext{
			Event:               event,
			WaitCallback:        opt.WaitCallback,
			StartTime:           start,
			TimeLimitSeconds:    opt.TimeLimitSeconds,
			WaitIntervalSeconds: opt.WaitIntervalSeconds,
		})
	}

	if event.Stage == "" {
		return nil, &model.ClientError{Detail: "event doesn't contain 'stage' attribute; can't start a stage"}
	}
	if event.MissionId == "" {
		return nil, &model.ClientError{Detail: "event doesn't contain 'mission_id' attribute; " +
			"a stage can't be started without knowing which mission it belongs to"}
	}

	if _, err := c.StartStage(event.Stage, event.MissionId, event.IgnoreDependencies); err != nil {
		var clientErr *model.ClientError
		if errors.As(err, &clientErr) {
			// another invocation got there first
			log.Info("Stage has already started - stopping")
			return nil, nil
		}
		return nil, err
	}
	log.Infof("Stage '%v' started successfully.", event.Stage)

	params, err := c.GetParams(event.Stage, event.MissionId)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded stage params: %v", params)

	funcRes, err := fn(params)
	if err != nil {
		log.Errorf("Error occurred in stage '%v' within service %v: %v", event.Stage, opt.Name, err)
		log.Error("Marking stage as failed.")
		if _, failErr := c.FailStage(event.Stage, event.MissionId); failErr != nil {
			log.Errorf("Could not mark stage as failed: %v", failErr)
		}
		return nil, err
	}

	if opt.WaitCallback != nil {
		return funcRes, c.Wait(event.Stage, event.MissionId, client.WaitOptions{
			Callback:            opt.WaitCallback,
			StartTime:           start,
			TimeLimitSeconds:    opt.TimeLimitSeconds,
			PollIntervalSeconds: opt.WaitIntervalSeconds,
			Params:              funcRes,
			InvocationCount:     1,
		})
	}

	res, err := c.EndStage(event.Stage, event.MissionId, event.IgnoreDependants)
	if err != nil {
		return funcRes, err
	}
	if err := c.TriggerAll(res.Next, event.MissionId, false); err != nil {
		return funcRes, err
	}

	log.Infof("Finished %v.", opt.Name)
	return funcRes, nil
}

// executeWithoutHouston runs fn directly using the event's own attributes as
// parameters. Used for testing services and for running them outside of any mission.
func executeWithoutHouston(event model.Event, fn Func, opt Options) (map[string]interface{}, error) {
	log := client.Log()
	log.Info("No plan specified; running without Houston.")

	params := event.Params
	if params == nil {
		params = event.Extra
	}

	funcRes, err := fn(params)
	if err != nil {
		return nil, err
	}

	if opt.WaitCallback != nil {
		log.Info("Wait callback is defined but it is not possible to wait indefinitely without Houston - " +
			"will wait as long as possible in this invocation.")
		deadline := time.Now().Add(time.Duration(opt.TimeLimitSeconds) * time.Second)
		for time.Now().Before(deadline) {
			finished, err := opt.WaitCallback(funcRes)
			if err != nil {
				return funcRes, err
			}
			if finished {
				log.Info("Wait callback returned true. Waiting finished.")
				break
			}
			log.Info("Wait callback returned false. Waiting will continue.")
			time.Sleep(time.Duration(opt.WaitIntervalSeconds) * time.Second)
		}
	}

	log.Infof("Finished %v.", opt.Name)
	return funcRes, nil
}
