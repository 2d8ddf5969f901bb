package request

import "github.com/edvin/dataconnect/internal/model"

// CreateIntegration holds the request body for creating an integration.
type CreateIntegration struct {
	Name      string                `json:"name" validate:"required,min=1,max=255"`
	Kind      string                `json:"platform_kind" validate:"required,platform_kind"`
	Ownership model.OwnershipRecord `json:"ownership"`
	Config    map[string]string     `json:"config" validate:"omitempty,dive,keys,config_key,endkeys"`
	IsActive  *bool                 `json:"is_active"`
}

// UpdateIntegrationConfig replaces the configuration map of an integration.
type UpdateIntegrationConfig struct {
	Config map[string]string `json:"config" validate:"required,dive,keys,config_key,endkeys"`
}

// SetIntegrationActive enables or disables an integration.
type SetIntegrationActive struct {
	Active *bool `json:"active" validate:"required"`
}

// ExecuteQuery holds a card query and its optional data-source filter.
type ExecuteQuery struct {
	Query  string                  `json:"query" validate:"required,max=8192"`
	Filter *model.DataSourceFilter `json:"filter" validate:"omitempty"`
}
