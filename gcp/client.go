package gcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/datasparq-ai/houston-client/client"
	"github.com/datasparq-ai/houston-client/model"
)

// SecretFunc retrieves a secret by name from a cloud secret store. The secret store
// itself is an external collaborator; only the shape of the call is fixed here.
type SecretFunc func(name, project string) (string, error)

// New creates a Houston client wired for Google Cloud: a Pub/Sub publisher is attached
// so that pubsub triggers work, and if no API key is available in the options or the
// environment it can be fetched from a secret store via getSecret (which may be nil).
func New(ctx context.Context, opt client.Options, getSecret SecretFunc) (*client.Client, error) {

	if opt.Publisher == nil {
		publisher, err := NewPublisher(ctx)
		if err != nil {
			return nil, err
		}
		opt.Publisher = publisher
	}

	if opt.Key == "" && os.Getenv("HOUSTON_KEY") == "" && getSecret != nil {
		secretName := os.Getenv("HOUSTON_KEY_SECRET_NAME")
		if secretName == "" {
			secretName = "houston-key"
		}
		key, err := getSecret(secretName, opt.Project)
		if err != nil {
			return nil, &model.ClientError{Detail: "Houston API key could not be found in the 'HOUSTON_KEY' " +
				"environment variable and could not be loaded from the secret store: " + err.Error()}
		}
		opt.Key = key
	}

	return client.New(opt)
}

// ExtractEvent decodes a Pub/Sub message payload into an Event. The payload may be raw
// JSON, or base64 encoded JSON as delivered to push endpoints and Cloud Function
// triggers.
func ExtractEvent(data []byte) (model.Event, error) {
	var event model.Event
	if err := json.Unmarshal(data, &event); err == nil {
		return event, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return event, &model.ClientError{Detail: "event data is neither JSON nor base64 encoded JSON"}
	}
	if err := json.Unmarshal(decoded, &event); err != nil {
		return event, &model.ClientError{Detail: "event data could not be parsed: " + err.Error()}
	}
	return event, nil
}
