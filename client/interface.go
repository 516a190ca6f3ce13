package client

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/datasparq-ai/houston-client/model"
)

// statusDagLocked is the server's code for a rejected concurrent write to the same DAG.
// Like 429 it represents transient contention and is retried.
const statusDagLocked = 572

// fireAndForgetTimeout is deliberately short: the caller only needs the request to have
// been sent, so a publisher never blocks waiting for a downstream consumer.
const fireAndForgetTimeout = time.Second

type requestOptions struct {
	headers map[string]string
	timeout time.Duration

	// safe means 4xx responses return (status, nil) instead of an error, e.g. for
	// idempotent deletes where "already gone" is not an error
	safe bool

	// fireAndForget sends with a very short timeout and treats a read timeout as success
	fireAndForget bool

	// retries remaining for connection failures and contention responses
	retries int
}

// request makes a request to any URL and handles retries and error responses. All
// network calls made by the client go through here.
//
// A connection-level failure is retried with a small random jitter sleep, then fails
// with ServerUnreachable. A 429 or 572 response represents transient contention on the
// shared DAG state and is retried identically, then fails with ServerBusy. Any other
// 4xx is a ClientError unless opt.safe is set. Any 5xx is a ServerError.
func (c *Client) request(method, url string, body []byte, opt requestOptions) (int, []byte, error) {

	timeout := opt.timeout
	if opt.fireAndForget {
		timeout = fireAndForgetTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	var resp *http.Response

	for {
		req, err := http.NewRequest(method, url, bytes.NewBuffer(body))
		if err != nil {
			return 0, nil, &model.ClientError{Detail: "could not create request to url " + url + ": " + err.Error()}
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range opt.headers {
			req.Header.Set(k, v)
		}

		resp, err = httpClient.Do(req)
		if err != nil {
			if opt.fireAndForget && isTimeout(err) && !isDialFailure(err) {
				// the request was sent; the caller doesn't need the response. A timeout
				// during dial means nothing was sent, so it falls through to retry
				return http.StatusOK, nil, nil
			}
			if opt.retries > 0 {
				opt.retries--
				jitterSleep()
				continue
			}
			return 0, nil, &model.ServerUnreachable{URL: url, Reason: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == statusDagLocked {
			resp.Body.Close()
			if opt.retries > 0 {
				opt.retries--
				jitterSleep()
				continue
			}
			return resp.StatusCode, nil, &model.ServerBusy{
				Detail: "received too many " + resp.Status + " responses from " + url + ", please reduce the number of requests"}
		}

		break
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		responseBody = nil
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if opt.safe {
			return resp.StatusCode, nil, nil
		}
		return resp.StatusCode, nil, &model.ClientError{Detail: extractErrorMessage(resp.StatusCode, url, responseBody)}
	case resp.StatusCode >= 500:
		return resp.StatusCode, nil, &model.ServerError{Detail: extractErrorMessage(resp.StatusCode, url, responseBody)}
	}

	return resp.StatusCode, responseBody, nil
}

func (c *Client) post(path string, body []byte) (int, []byte, error) {
	return c.request("POST", c.BaseUrl+path, body, c.apiOptions(false))
}
func (c *Client) get(path string) (int, []byte, error) {
	return c.request("GET", c.BaseUrl+path, nil, c.apiOptions(false))
}
func (c *Client) delete(path string, safe bool) (int, []byte, error) {
	return c.request("DELETE", c.BaseUrl+path, nil, c.apiOptions(safe))
}

// apiOptions are the request options used for every call to the Houston API itself.
// Auth is a static header carrying the access key.
func (c *Client) apiOptions(safe bool) requestOptions {
	return requestOptions{
		headers: map[string]string{"x-access-key": c.Key},
		safe:    safe,
		retries: c.Retries,
	}
}

// jitterSleep waits for a short random amount of time, to avoid tight retry loops on
// shared resources.
func jitterSleep() {
	time.Sleep(50*time.Millisecond + time.Duration(rand.Int63n(int64(950*time.Millisecond))))
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// isDialFailure reports whether the request never left the client because the connection
// itself could not be established.
func isDialFailure(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
