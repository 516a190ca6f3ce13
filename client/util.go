package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/datasparq-ai/houston-client/model"
)

// extractErrorMessage finds the error message in an API error response. The API has used
// several response body shapes over time; each is attempted in order against a generic
// structure, falling through to the next shape.
func extractErrorMessage(statusCode int, url string, body []byte) string {

	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Type    string `json:"type"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Msg != "":
			return payload.Msg
		case payload.Message != "" && payload.Type != "":
			return payload.Type + ": " + payload.Message
		case payload.Error != "" && payload.Message != "":
			return payload.Error + ". " + payload.Message
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}

	if statusCode == http.StatusNotFound {
		return fmt.Sprintf("resource not found at %v", url)
	}
	return ""
}

// parseResponse unmarshals a successful API response into the given type.
func parseResponse(body []byte, parsedResponse interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, parsedResponse); err != nil {
		return &model.ClientError{Detail: fmt.Sprintf("response from houston API was wrong format: %v", err)}
	}
	return nil
}
