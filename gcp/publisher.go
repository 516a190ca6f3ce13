// Package gcp integrates the Houston client with Google Cloud: a Pub/Sub publisher for
// pubsub triggers and helpers for services running as Cloud Functions.
package gcp

import (
	"context"

	"cloud.google.com/go/pubsub"
)

// Publisher delivers trigger messages via Google Cloud Pub/Sub. It satisfies
// client.Publisher.
type Publisher struct {
	client *pubsub.Client
}

// NewPublisher creates a Pub/Sub publisher using application default credentials.
func NewPublisher(ctx context.Context) (*Publisher, error) {
	c, err := pubsub.NewClient(ctx, pubsub.DetectProjectID)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: c}, nil
}

// Publish sends a message and blocks until the server acknowledges it - the Pub/Sub
// client library does not expose a true fire-and-forget primitive.
func (p *Publisher) Publish(ctx context.Context, project, topic string, data []byte) error {
	t := p.client.TopicInProject(topic, project)
	defer t.Stop()
	result := t.Publish(ctx, &pubsub.Message{Data: data})
	_, err := result.Get(ctx)
	return err
}

// Close releases the underlying Pub/Sub client's resources.
func (p *Publisher) Close() error {
	return p.client.Close()
}
