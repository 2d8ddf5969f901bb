package request

// CreateAPIKey holds the request body for issuing an API key. The scope
// fields become the principal of every request made with the key.
type CreateAPIKey struct {
	Name          string   `json:"name" validate:"required,min=1,max=255"`
	CompanyID     string   `json:"company_id" validate:"omitempty,max=255"`
	ClientID      string   `json:"client_id" validate:"omitempty,max=255"`
	GroupIDs      []string `json:"group_ids" validate:"omitempty,dive,required"`
	PlatformAdmin bool     `json:"platform_admin"`
}
