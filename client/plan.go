package client

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datasparq-ai/houston-client/model"
)

// PlanLoader loads the raw text of a plan document given a path. The default loader
// reads from the local filesystem; callers can inject one that reads from an object
// store instead.
type PlanLoader func(path string) (string, error)

// LoadPlanText is the default PlanLoader.
func LoadPlanText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &model.PlanNotFound{PlanName: path}
		}
		return "", err
	}
	return string(data), nil
}

var planPlaceholder = regexp.MustCompile(`\$\{[_a-zA-Z][_a-zA-Z0-9]*\}`)

// substituteEnv replaces '${VAR}' placeholders in raw plan text with the corresponding
// environment variable values. Placeholders with no matching variable are left
// untouched. Only the braced form is substituted so that plans can safely contain '$'.
func substituteEnv(text string) string {
	return planPlaceholder.ReplaceAllStringFunc(text, func(placeholder string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(placeholder, "${"), "}")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return placeholder
	})
}

// parsePlan parses a plan document. Plans can be JSON or YAML; YAML is a superset of
// JSON so a single decoder handles both.
func parsePlan(text string) (*model.Plan, error) {
	var plan model.Plan
	if err := yaml.Unmarshal([]byte(substituteEnv(text)), &plan); err != nil {
		return nil, &model.PlanValidationError{Detail: "could not parse plan document: " + err.Error()}
	}
	return &plan, nil
}

// isPlanDocument reports whether the string is an inline plan definition or a path to a
// plan file, rather than the name of a plan saved on the server.
func isPlanDocument(plan string) bool {
	trimmed := strings.TrimSpace(plan)
	return strings.HasPrefix(trimmed, "{") ||
		strings.Contains(trimmed, "\n") ||
		strings.HasSuffix(trimmed, ".json") ||
		strings.HasSuffix(trimmed, ".yaml") ||
		strings.HasSuffix(trimmed, ".yml")
}
