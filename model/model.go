package model

// TriggerMethod identifies the transport used to notify a stage's executor that it may run.
type TriggerMethod string

const (
	TriggerMethodHTTP      TriggerMethod = "http"
	TriggerMethodPubSub    TriggerMethod = "pubsub"
	TriggerMethodEventGrid TriggerMethod = "event-grid"
)

// Trigger is the trigger configuration of a service. Exactly one of the method specific
// fields is authoritative for any given method.
type Trigger struct {
	Method   TriggerMethod `json:"method" yaml:"method"`
	URL      string        `json:"url,omitempty" yaml:"url,omitempty"`
	Topic    string        `json:"topic,omitempty" yaml:"topic,omitempty"`
	TopicKey string        `json:"topic_key,omitempty" yaml:"topic_key,omitempty"`
	Project  string        `json:"project,omitempty" yaml:"project,omitempty"`
	Auth     string        `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// Service is the executable associated with one or more stages of a plan.
type Service struct {
	Name    string   `json:"name" yaml:"name"`
	Trigger *Trigger `json:"trigger,omitempty" yaml:"trigger,omitempty"`
}

type Stage struct {
	Name       string                 `json:"name" yaml:"name"`
	Service    string                 `json:"service,omitempty" yaml:"service,omitempty"`
	Upstream   []string               `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Downstream []string               `json:"downstream,omitempty" yaml:"downstream,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

type Plan struct {
	Name     string                 `json:"name" yaml:"name"`
	Services []*Service             `json:"services,omitempty" yaml:"services,omitempty"`
	Stages   []*Stage               `json:"stages" yaml:"stages"`
	Params   map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

// GetStage finds a stage within a plan by name. Returns nil if the stage doesn't exist.
func (p *Plan) GetStage(stageName string) *Stage {
	for _, s := range p.Stages {
		if s.Name == stageName {
			return s
		}
	}
	return nil
}

// GetService finds a service within a plan by name. Returns nil if the service doesn't exist.
func (p *Plan) GetService(serviceName string) *Service {
	for _, a := range p.Services {
		if a.Name == serviceName {
			return a
		}
	}
	return nil
}

// GetServiceForStage returns the service that runs the named stage, or nil if the stage
// doesn't exist or doesn't declare a service.
func (p *Plan) GetServiceForStage(stageName string) *Service {
	s := p.GetStage(stageName)
	if s == nil || s.Service == "" {
		return nil
	}
	return p.GetService(s.Service)
}

// IndependentStages returns every stage that can run at the very start of a mission:
// stages with no upstream dependencies that are not listed in any other stage's
// downstream. Order matches the plan's stage list.
func (p *Plan) IndependentStages() []*Stage {
	var independent []*Stage
	for _, s := range p.Stages {
		if len(s.Upstream) > 0 {
			continue
		}
		isDownstream := false
		for _, other := range p.Stages {
			if contains(other.Downstream, s.Name) {
				isDownstream = true
				break
			}
		}
		if !isDownstream {
			independent = append(independent, s)
		}
	}
	return independent
}

type MissionCreateRequest struct {
	Plan   string                 `json:"plan"`
	Id     string                 `json:"id,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type MissionCreatedResponse struct {
	Id string `json:"id"`
}

// MissionStageStateUpdate is the request body for POST /missions/{id}/stages/{name}.
type MissionStageStateUpdate struct {
	State              string `json:"state"`
	IgnoreDependencies bool   `json:"ignoreDependencies,omitempty"`
}

// Response is returned by the server whenever a stage changes state. Next lists the
// downstream stages that are now eligible to run; Params holds each of their resolved
// parameters keyed by stage name.
type Response struct {
	Success    bool                              `json:"success"`
	Next       []string                          `json:"next"`
	IsComplete bool                              `json:"complete"`
	Params     map[string]map[string]interface{} `json:"params,omitempty"`
}

func contains(s []string, e string) bool {
	for _, a := range s {
		if a == e {
			return true
		}
	}
	return false
}
