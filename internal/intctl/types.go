package intctl

// SeedConfig is the YAML definition read by "intctl seed".
type SeedConfig struct {
	APIURL       string           `yaml:"api_url"`
	APIKey       string           `yaml:"api_key"`
	Integrations []IntegrationDef `yaml:"integrations"`
}

// IntegrationDef declares one integration. Exactly one of Company, Client
// and Group names the owner.
type IntegrationDef struct {
	Name         string            `yaml:"name"`
	PlatformKind string            `yaml:"platform_kind"`
	Company      string            `yaml:"company"`
	Client       string            `yaml:"client"`
	Group        string            `yaml:"group"`
	Allowlist    []string          `yaml:"allowlisted_companies"`
	Config       map[string]string `yaml:"config"`
	Inactive     bool              `yaml:"inactive"`
	// Test runs a connection test right after creation.
	Test bool `yaml:"test"`
}

// WatchConfig is the YAML definition read by "intctl runs".
type WatchConfig struct {
	APIURL        string   `yaml:"api_url"`
	APIKey        string   `yaml:"api_key"`
	IntegrationID string   `yaml:"integration_id"`
	Workflows     []string `yaml:"workflows"`
	PageSize      int      `yaml:"page_size"`
}
