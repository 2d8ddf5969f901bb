package intctl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/dataconnect/internal/client"
)

// APIKeyEnv is read when a definition file carries no api_key.
const APIKeyEnv = "DATACONNECT_API_KEY"

const defaultAPIURL = "http://localhost:8090"

func loadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func newClient(apiURL, apiKey string) (*client.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set api_key in config or %s env var", APIKeyEnv)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return client.NewClient(apiURL, apiKey), nil
}
