package client

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/datasparq-ai/houston-client/model"
)

// maxRetries is the number of times a whole operation is retried by withRetry, on top of
// the transport layer's own per-request retries.
const maxRetries = 3

// isTransient reports whether an error belongs to one of the retryable categories.
// Client and configuration errors are excluded: retrying cannot fix a bad request or a
// missing configuration.
func isTransient(err error) bool {
	var busy *model.ServerBusy
	var server *model.ServerError
	var unreachable *model.ServerUnreachable
	if errors.As(err, &busy) || errors.As(err, &server) || errors.As(err, &unreachable) {
		return true
	}
	// environment flakiness, e.g. a dropped connection inside a wait callback
	var netErr net.Error
	var sysErr *os.SyscallError
	return errors.As(err, &netErr) || errors.As(err, &sysErr)
}

// withRetry runs an operation and retries transient failures up to maxRetries times with
// capped exponential backoff. Any other failure propagates immediately.
func withRetry(op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(policy, maxRetries))
}
