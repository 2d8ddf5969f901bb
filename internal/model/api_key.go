package model

import "time"

// APIKey authenticates callers of the integration API. The scope fields
// become the caller's principal.
type APIKey struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix,omitempty"`
	CompanyID     *string    `json:"company_id,omitempty"`
	ClientID      *string    `json:"client_id,omitempty"`
	GroupIDs      []string   `json:"group_ids"`
	PlatformAdmin bool       `json:"platform_admin"`
	CreatedAt     time.Time  `json:"created_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}
