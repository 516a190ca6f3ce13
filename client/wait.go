package client

import (
	"errors"
	"time"

	"github.com/datasparq-ai/houston-client/model"
)

// WaitCallback reports whether the work a stage is waiting on has finished. It receives
// the wait params carried by the triggering message.
type WaitCallback func(params map[string]interface{}) (bool, error)

// WaitOptions are the inputs to a single invocation of the continuation engine.
type WaitOptions struct {
	Callback WaitCallback

	// StartTime is when this invocation began; elapsed time is measured against it.
	StartTime time.Time

	// TimeLimitSeconds is the wall clock budget for this invocation, e.g. the hosting
	// platform's execution time limit.
	TimeLimitSeconds int

	// PollIntervalSeconds is the time to wait between runs of the callback.
	PollIntervalSeconds int

	// Params are passed to the callback and carried forward into any continuation.
	Params map[string]interface{}

	// InvocationCount tracks how many invocations have waited on this stage so far,
	// starting at 1.
	InvocationCount int
}

// Wait polls the callback until the stage's work finishes or this invocation's time
// budget runs out. If the work finishes, the stage is ended and its downstream stages
// are triggered. If the budget runs out first, the service re-triggers itself with the
// invocation count incremented and the same wait params, and a fresh invocation resumes
// polling - so a stage's real work can exceed a single invocation's execution budget.
//
// Continuation is at-least-once: a duplicated re-trigger message can create a second
// concurrent waiter. The server's end-stage call is lock protected, which prevents
// double triggering of downstream stages.
func (c *Client) Wait(stageName, missionId string, opt WaitOptions) error {

	if opt.Callback == nil {
		// a wait event can reach a service that never configured a callback; fail the
		// stage so the mission doesn't stall with the stage still marked as started
		err := &model.ClientError{Detail: "cannot wait for stage '" + stageName +
			"': no wait callback is configured for this service"}
		log.Error(err.Detail)
		log.Error("Marking stage as failed.")
		if _, failErr := c.FailStage(stageName, missionId); failErr != nil {
			log.Errorf("Could not mark stage as failed: %v", failErr)
		}
		return err
	}

	invocationCount := opt.InvocationCount
	if invocationCount < 1 {
		invocationCount = 1
	}

	if invocationCount > c.MaxWaitInvocations {
		// stop rather than error: erroring here would fail a stage whose work may well
		// have finished, and the loop has to be broken either way
		log.Errorf("There have been over %v invocations for waiting! This could be an infinite loop; waiting will stop.",
			c.MaxWaitInvocations)
		return nil
	}

	log.Infof("Waiting for stage '%v' to finish. Time limit is %vs.", stageName, opt.TimeLimitSeconds)
	log.Infof("This is wait invocation number %v.", invocationCount)

	timeLimit := time.Duration(opt.TimeLimitSeconds) * time.Second
	pollInterval := time.Duration(opt.PollIntervalSeconds) * time.Second

	finished := false
	for !finished && time.Since(opt.StartTime) < timeLimit {
		log.Infof("Not finished after %v.", time.Since(opt.StartTime).Round(time.Second))
		time.Sleep(pollInterval)

		var err error
		err = withRetry(func() error {
			finished, err = opt.Callback(opt.Params)
			return err
		})
		if err != nil {
			// waiting never silently swallows caller errors: mark the stage failed so the
			// server-visible mission state doesn't stall, then propagate
			log.Errorf("Exception has occurred while waiting for stage '%v' to complete: %v.", stageName, err)
			log.Error("Marking stage as failed.")
			if _, failErr := c.FailStage(stageName, missionId); failErr != nil {
				log.Errorf("Could not mark stage as failed: %v", failErr)
			}
			return err
		}
	}

	if finished {
		res, err := c.EndStage(stageName, missionId, false)
		if err != nil {
			var clientErr *model.ClientError
			if errors.As(err, &clientErr) {
				// 'stage has already been completed' errors after waiting ends are harmless
				log.Info("Stage has already been completed - doing nothing")
				return nil
			}
			return err
		}
		log.Infof("Finished after %v!", time.Since(opt.StartTime).Round(time.Second))
		return c.TriggerAll(res.Next, missionId, false)
	}

	log.Infof("Reached the time limit. Waiting for stage '%v' will continue in a new invocation.", stageName)

	// trigger a new invocation to continue waiting, carrying the continuation state
	// forward; the stage is deliberately not ended
	return c.Trigger(model.Event{
		Stage:               stageName,
		MissionId:           missionId,
		Command:             model.CommandWait,
		WaitInvocationCount: invocationCount + 1,
		WaitParams:          opt.Params,
	})
}
