package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datasparq-ai/houston-client/model"
)

// Publisher is the capability needed to deliver pubsub-style trigger messages. Publish
// must block until the publish is acknowledged. Implementations live outside this
// package (see the gcp package) so that new transports can be added without touching
// dispatch logic.
type Publisher interface {
	Publish(ctx context.Context, project, topic string, data []byte) error
}

// resolveTrigger decides how a stage should be triggered. An explicit trigger method on
// the stage's service always wins; otherwise the stage's plan parameters are inspected
// for topic attributes. The service (if any) is returned alongside for auth lookups.
func (c *Client) resolveTrigger(stageName string) (*model.Trigger, *model.Service, error) {

	service := c.Plan.GetServiceForStage(stageName)
	if service != nil && service.Trigger != nil && service.Trigger.Method != "" {
		return service.Trigger, service, nil
	}

	if stage := c.Plan.GetStage(stageName); stage != nil {
		params := decodeParams(stage.Params)
		topic, _ := params["topic"].(string)
		topicKey, _ := params["topic_key"].(string)
		psq, _ := params["psq"].(string)

		if topic != "" && topicKey != "" {
			return &model.Trigger{Method: model.TriggerMethodEventGrid, Topic: topic, TopicKey: topicKey}, service, nil
		}
		if topic != "" {
			return &model.Trigger{Method: model.TriggerMethodPubSub, Topic: topic}, service, nil
		}
		if psq != "" {
			return &model.Trigger{Method: model.TriggerMethodPubSub, Topic: psq}, service, nil
		}
	}

	return nil, nil, &model.NoTriggerMethod{StageName: stageName}
}

// Trigger notifies a stage's executor that it may run, using whatever mechanism the
// plan declares for it. Triggering is fire-and-forget with at-least-once semantics: it
// does not wait for the stage to start, and a message may be delivered more than once.
func (c *Client) Trigger(event model.Event) error {

	if event.Plan == "" {
		event.Plan = c.Plan.Name
	}

	trigger, service, err := c.resolveTrigger(event.Stage)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	log.Infof("Triggering stage '%v' via %v", event.Stage, trigger.Method)

	switch trigger.Method {
	case model.TriggerMethodHTTP:
		return c.httpTrigger(trigger, service, payload)
	case model.TriggerMethodPubSub:
		return c.pubsubTrigger(trigger, payload)
	case model.TriggerMethodEventGrid:
		return c.eventGridTrigger(trigger, payload)
	default:
		return &model.NoTriggerMethod{StageName: event.Stage}
	}
}

// TriggerAll triggers multiple stages. This is N independent calls to Trigger and is not
// transactional: partial delivery on partial failure is possible, and the caller should
// detect it via the server's mission state.
func (c *Client) TriggerAll(stageNames []string, missionId string, ignoreDependencies bool) error {
	for _, stageName := range stageNames {
		err := c.Trigger(model.Event{
			Stage:              stageName,
			MissionId:          missionId,
			IgnoreDependencies: ignoreDependencies,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// httpTrigger POSTs the payload to the service's trigger URL, fire-and-forget. If the
// service requires auth, the credentials must be present before any network call is
// made.
func (c *Client) httpTrigger(trigger *model.Trigger, service *model.Service, payload []byte) error {

	headers := map[string]string{}
	if service != nil && trigger.Auth != "" {
		switch trigger.Auth {
		case "bearer":
			token := c.Auth[service.Name]
			if token == "" {
				return &model.MissingAuth{ServiceName: service.Name, AuthType: trigger.Auth}
			}
			headers["Authorization"] = "Bearer " + token
		default:
			return &model.ClientError{Detail: "service '" + service.Name + "' declares unsupported auth type '" + trigger.Auth + "'"}
		}
	}

	if trigger.URL == "" {
		return &model.ClientError{Detail: "http trigger has no url"}
	}

	_, _, err := c.request("POST", trigger.URL, payload, requestOptions{
		headers:       headers,
		fireAndForget: true,
		retries:       c.Retries,
	})
	return err
}

// pubsubTrigger publishes the payload to a topic and blocks until the publish is
// acknowledged - the underlying client libraries don't expose a true fire-and-forget
// primitive. The topic may be fully qualified ('projects/{project}/topics/{topic}');
// otherwise the project comes from the service's trigger definition or the client's
// default.
func (c *Client) pubsubTrigger(trigger *model.Trigger, payload []byte) error {

	if c.Publisher == nil {
		return &model.ClientError{Detail: "no pubsub publisher is configured; create the client with a Publisher, e.g. using the gcp package"}
	}

	project := trigger.Project
	topic := trigger.Topic

	if strings.HasPrefix(topic, "projects/") {
		// 'projects/{project}/topics/{topic}'
		parts := strings.Split(topic, "/")
		if len(parts) == 4 && parts[2] == "topics" {
			project = parts[1]
			topic = parts[3]
		}
	}
	if project == "" {
		project = c.Project
	}

	if topic == "" {
		return &model.ClientError{Detail: "pubsub topic name could not be determined; set it in the service's trigger or as a 'topic' or 'psq' stage parameter"}
	}
	if project == "" {
		return &model.ClientError{Detail: "pubsub project is not set; specify a 'project' in the service's trigger, " +
			"set Options.Project, or set the GCP_PROJECT environment variable"}
	}

	return withRetry(func() error {
		return c.Publisher.Publish(context.Background(), project, topic, payload)
	})
}

// eventGridEvent is the envelope published to an Event Grid topic.
type eventGridEvent struct {
	Id          string          `json:"id"`
	Subject     string          `json:"subject"`
	Data        json.RawMessage `json:"data"`
	EventType   string          `json:"eventType"`
	EventTime   string          `json:"eventTime"`
	DataVersion string          `json:"dataVersion"`
}

// eventGridTrigger publishes a structured event to the declared topic host using the
// declared topic key. 5xx responses from the event bus are retried.
func (c *Client) eventGridTrigger(trigger *model.Trigger, payload []byte) error {

	if trigger.Topic == "" || trigger.TopicKey == "" {
		return &model.ClientError{Detail: "event-grid trigger requires both a topic and a topic_key"}
	}

	events := []eventGridEvent{{
		Id:          uuid.New().String(),
		Subject:     "Houston Stage Trigger",
		Data:        payload,
		EventType:   "HoustonStageTrigger",
		EventTime:   time.Now().UTC().Format(time.RFC3339),
		DataVersion: "1",
	}}
	body, err := json.Marshal(events)
	if err != nil {
		return err
	}

	host := trigger.Topic
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	return withRetry(func() error {
		_, _, err := c.request("POST", host+"/api/events", body, requestOptions{
			headers: map[string]string{"aeg-sas-key": trigger.TopicKey},
			timeout: 10 * time.Second,
			retries: c.Retries,
		})
		return err
	})
}
