package model

import "fmt"

// ClientError means the request was invalid. It is never retried; the caller is expected
// to fix the request.
type ClientError struct {
	Detail string
}

func (e *ClientError) Error() string {
	if e.Detail == "" {
		return "unknown client error occurred, please check request"
	}
	return e.Detail
}

// ServerBusy means the server rejected the request due to contention on shared DAG
// state. Raised only after retries have been exhausted.
type ServerBusy struct {
	Detail string
}

func (e *ServerBusy) Error() string {
	return "server busy: " + e.Detail
}

// ServerError is any 5xx response from the server.
type ServerError struct {
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return "unknown server error occurred, if this persists please contact support"
	}
	return e.Detail
}

// ServerUnreachable means the server couldn't be reached at all. Raised only after
// retries have been exhausted.
type ServerUnreachable struct {
	URL    string
	Reason error
}

func (e *ServerUnreachable) Error() string {
	return fmt.Sprintf("server at '%v' could not be reached: %v", e.URL, e.Reason)
}

func (e *ServerUnreachable) Unwrap() error {
	return e.Reason
}

// PlanNotFound means neither a saved plan nor a local plan file exists with the given name.
type PlanNotFound struct {
	PlanName string
}

func (e *PlanNotFound) Error() string {
	return fmt.Sprintf("plan '%v' not found", e.PlanName)
}

// NoTriggerMethod means no trigger method could be resolved for a stage: its service
// declares none and its parameters contain no recognised topic attributes.
type NoTriggerMethod struct {
	StageName string
}

func (e *NoTriggerMethod) Error() string {
	return fmt.Sprintf("could not determine how to trigger stage '%v': the stage's service does not "+
		"declare a trigger method and the stage params do not contain a recognised topic attribute", e.StageName)
}

// MissingAuth means a service declares an auth requirement but no credentials were
// provided for it. Configuration errors are never retried.
type MissingAuth struct {
	ServiceName string
	AuthType    string
}

func (e *MissingAuth) Error() string {
	return fmt.Sprintf("service '%v' requires '%v' auth but no credentials were provided for it; "+
		"add an entry for '%v' to the client's service auth map", e.ServiceName, e.AuthType, e.ServiceName)
}

type PlanValidationError struct {
	Detail string
}

func (e *PlanValidationError) Error() string {
	return "plan is invalid: " + e.Detail
}
