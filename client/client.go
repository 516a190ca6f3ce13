package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/datasparq-ai/houston-client/model"
)

// Client drives execution of stages within missions belonging to one plan. One instance
// uses one API key to make all requests. The plan is loaded once at construction;
// missions are always fetched fresh because their state is owned by the server.
type Client struct {
	BaseUrl string
	Key     string
	Plan    *model.Plan

	// Auth maps service names to credentials used when triggering them, e.g. a bearer
	// token for services with an authenticated http trigger.
	Auth map[string]string

	// Project is the default cloud project used for pubsub triggers when neither the
	// topic nor the service's trigger definition specifies one.
	Project string

	// Publisher delivers pubsub trigger messages. Nil unless a publisher implementation
	// has been wired in, e.g. by the gcp package.
	Publisher Publisher

	// Retries is the number of times the transport layer retries connection failures and
	// contention responses per request.
	Retries int

	// MaxWaitInvocations caps how many times a stage may re-trigger itself to continue
	// waiting.
	MaxWaitInvocations int

	loadPlanText PlanLoader
}

// Options configures a new Client. Every field is optional except Plan; missing values
// fall back to the environment.
type Options struct {
	// Plan is the name of a saved plan, the path to a plan file, or an inline plan
	// document.
	Plan string

	Key     string
	BaseUrl string

	Auth    map[string]string
	Project string

	Publisher Publisher

	// LoadPlanText overrides how plan file contents are read, e.g. from an object store.
	LoadPlanText PlanLoader

	MaxWaitInvocations int
}

// New creates a Houston client for the given plan.
func New(opt Options) (*Client, error) {

	config := LoadConfig("")

	key := opt.Key
	if key == "" {
		key = config.Key
	}
	baseUrl := opt.BaseUrl
	if baseUrl == "" {
		baseUrl = config.BaseUrl
	}

	// the key may be given as a URI that contains both the base URL and the key
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		splitKey := strings.Split(key, "/key/")
		if len(splitKey) != 2 {
			return nil, &model.ClientError{Detail: "key has an invalid format; expected format: '{base URL}/key/{key ID}'"}
		}
		baseUrl = splitKey[0]
		key = splitKey[1]
	}

	if key == "" {
		return nil, &model.ClientError{Detail: "no API key was found; provide Options.Key or set the HOUSTON_KEY environment variable"}
	}

	if baseUrl == "" {
		baseUrl = "https://callhouston.io/api/v1"
	} else if !(strings.HasPrefix(baseUrl, "http://") || strings.HasPrefix(baseUrl, "https://")) {
		return nil, &model.ClientError{Detail: fmt.Sprintf("base URL '%v' isn't a valid URL; must start with either 'http://' or 'https://'", baseUrl)}
	} else {
		baseUrl = strings.TrimSuffix(baseUrl, "/")
	}

	project := opt.Project
	if project == "" {
		project = config.Project
	}
	maxWaitInvocations := opt.MaxWaitInvocations
	if maxWaitInvocations == 0 {
		maxWaitInvocations = config.MaxWaitInvocations
	}
	loader := opt.LoadPlanText
	if loader == nil {
		loader = LoadPlanText
	}

	c := &Client{
		BaseUrl:            baseUrl,
		Key:                key,
		Auth:               opt.Auth,
		Project:            project,
		Publisher:          opt.Publisher,
		Retries:            3,
		MaxWaitInvocations: maxWaitInvocations,
		loadPlanText:       loader,
	}

	if opt.Plan == "" {
		return nil, &model.ClientError{Detail: "no plan was provided; a client must be created with a plan name, file path, or definition"}
	}

	var err error
	if isPlanDocument(opt.Plan) {
		text := opt.Plan
		if !strings.HasPrefix(strings.TrimSpace(text), "{") && !strings.Contains(text, "\n") {
			// a file path rather than an inline document
			text, err = loader(opt.Plan)
			if err != nil {
				return nil, err
			}
		}
		c.Plan, err = parsePlan(text)
	} else {
		c.Plan, err = c.GetPlan(opt.Plan)
	}
	if err != nil {
		return nil, err
	}
	if c.Plan.Name == "" {
		return nil, &model.PlanValidationError{Detail: "plan is not formatted correctly - must contain a name"}
	}

	return c, nil
}

// GetPlan gets a saved plan from the server by name.
func (c *Client) GetPlan(name string) (*model.Plan, error) {
	status, body, err := c.get("/plans/" + name)
	if status == http.StatusNotFound {
		return nil, &model.PlanNotFound{PlanName: name}
	}
	if err != nil {
		return nil, err
	}
	var plan model.Plan
	if err := parseResponse(body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SavePlan sends the client's plan to the server, validating it locally first.
func (c *Client) SavePlan() error {
	if err := c.Plan.Validate(); err != nil {
		return err
	}
	planJSON, err := json.Marshal(c.Plan)
	if err != nil {
		return err
	}
	_, _, err = c.post("/plans", planJSON)
	return err
}

// DeletePlan removes the client's plan from the server. When a plan is deleted, every
// mission belonging to it is also deleted, even if in progress. If safe is set then a
// plan that is already gone is not an error.
func (c *Client) DeletePlan(safe bool) error {
	_, _, err := c.delete("/plans/"+c.Plan.Name, safe)
	return err
}

// ListPlans returns the names of all saved plans.
func (c *Client) ListPlans() ([]string, error) {
	var plans []string
	_, body, err := c.get("/plans")
	if err != nil {
		return nil, err
	}
	err = parseResponse(body, &plans)
	return plans, err
}

// CreateMission creates a new mission from the client's plan and returns its ID. The
// mission is a shared, server-arbitrated resource from here on: any client in the
// distributed system can operate on it using the ID.
func (c *Client) CreateMission(id string, params map[string]interface{}) (string, error) {
	reqJSON, err := json.Marshal(model.MissionCreateRequest{Plan: c.Plan.Name, Id: id, Params: params})
	if err != nil {
		return "", err
	}
	_, body, err := c.post("/missions", reqJSON)
	if err != nil {
		return "", err
	}
	var created model.MissionCreatedResponse
	if err := parseResponse(body, &created); err != nil {
		return "", err
	}
	if created.Id == "" {
		return "", &model.ServerError{Detail: "create mission operation did not return a mission id, please retry"}
	}
	return created.Id, nil
}

// GetMission reads the current state of a mission. The result is a snapshot; it is
// fetched fresh on every call and never cached, because server state may change between
// reads.
func (c *Client) GetMission(missionId string) (*model.Mission, error) {
	_, body, err := c.get("/missions/" + missionId)
	if err != nil {
		return nil, err
	}
	var mission model.Mission
	if err := parseResponse(body, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// ListActiveMissions returns the IDs of all missions that are currently in progress.
func (c *Client) ListActiveMissions() ([]string, error) {
	var missions []string
	_, body, err := c.get("/missions")
	if err != nil {
		return nil, err
	}
	err = parseResponse(body, &missions)
	return missions, err
}

// ListMissions returns the IDs of all missions belonging to the client's plan.
func (c *Client) ListMissions() ([]string, error) {
	var missions []string
	_, body, err := c.get("/plans/" + c.Plan.Name + "/missions")
	if err != nil {
		return nil, err
	}
	err = parseResponse(body, &missions)
	return missions, err
}

// ListCompleted returns the IDs of recently completed missions.
func (c *Client) ListCompleted() ([]string, error) {
	var missions []string
	_, body, err := c.get("/completed")
	if err != nil {
		return nil, err
	}
	err = parseResponse(body, &missions)
	return missions, err
}

// DeleteMission deletes a mission and returns its final state. If safe is set then a
// mission that is already gone is not an error; server faults still propagate so they
// can't be mistaken for a successful delete.
func (c *Client) DeleteMission(missionId string, safe bool) (*model.Mission, error) {
	mission, err := c.GetMission(missionId)
	if err != nil {
		var clientErr *model.ClientError
		if safe && errors.As(err, &clientErr) {
			return nil, nil
		}
		return nil, err
	}
	_, _, err = c.delete("/missions/"+missionId, safe)
	return mission, err
}
