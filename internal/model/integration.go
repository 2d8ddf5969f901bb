package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PlatformKind identifies the external system an integration talks to.
type PlatformKind string

const (
	KindWorkflowOrchestrator PlatformKind = "workflow_orchestrator"
	KindLakehouse            PlatformKind = "lakehouse"
	KindWarehouse            PlatformKind = "warehouse"
	KindCloudPipeline        PlatformKind = "cloud_pipeline"
)

// AllPlatformKinds is the canonical list of platform kinds.
var AllPlatformKinds = []PlatformKind{
	KindWorkflowOrchestrator,
	KindLakehouse,
	KindWarehouse,
	KindCloudPipeline,
}

func (k PlatformKind) String() string { return string(k) }

// Valid reports whether k is one of the known kinds.
func (k PlatformKind) Valid() bool {
	for _, known := range AllPlatformKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Owner type tags used in storage and JSON.
const (
	OwnerTypeCompany = "company"
	OwnerTypeClient  = "client"
	OwnerTypeGroup   = "group"
)

var ErrInvalidOwnership = errors.New("invalid ownership")

// Ownership is the tenant level an integration belongs to. It is one of
// CompanyOwned, ClientOwned or GroupOwned.
type Ownership interface {
	OwnerType() string
	ownership()
}

type CompanyOwned struct {
	CompanyID string
}

// ClientOwned integrations belong to a client and are shared with the
// companies in the allowlist.
type ClientOwned struct {
	ClientID              string
	AllowlistedCompanyIDs []string
}

type GroupOwned struct {
	GroupID string
}

func (CompanyOwned) OwnerType() string { return OwnerTypeCompany }
func (ClientOwned) OwnerType() string  { return OwnerTypeClient }
func (GroupOwned) OwnerType() string   { return OwnerTypeGroup }

func (CompanyOwned) ownership() {}
func (ClientOwned) ownership()  {}
func (GroupOwned) ownership()   {}

// Allowlists reports whether companyID is in the client allowlist.
func (o ClientOwned) Allowlists(companyID string) bool {
	for _, id := range o.AllowlistedCompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

// OwnershipRecord is the flat storage/JSON form of an Ownership.
type OwnershipRecord struct {
	Type                  string   `json:"type" validate:"required,oneof=company client group"`
	CompanyID             *string  `json:"company_id,omitempty"`
	ClientID              *string  `json:"client_id,omitempty"`
	GroupID               *string  `json:"group_id,omitempty"`
	AllowlistedCompanyIDs []string `json:"allowlisted_company_ids,omitempty"`
}

// Ownership converts the record into its variant. The record must name
// exactly the fields of its type.
func (r OwnershipRecord) Ownership() (Ownership, error) {
	set := func(s *string) bool { return s != nil && *s != "" }

	switch r.Type {
	case OwnerTypeCompany:
		if !set(r.CompanyID) || set(r.ClientID) || set(r.GroupID) || len(r.AllowlistedCompanyIDs) > 0 {
			return nil, fmt.Errorf("%w: company ownership needs only company_id", ErrInvalidOwnership)
		}
		return CompanyOwned{CompanyID: *r.CompanyID}, nil
	case OwnerTypeClient:
		if !set(r.ClientID) || set(r.CompanyID) || set(r.GroupID) {
			return nil, fmt.Errorf("%w: client ownership needs only client_id and an allowlist", ErrInvalidOwnership)
		}
		allow := make([]string, 0, len(r.AllowlistedCompanyIDs))
		allow = append(allow, r.AllowlistedCompanyIDs...)
		return ClientOwned{ClientID: *r.ClientID, AllowlistedCompanyIDs: allow}, nil
	case OwnerTypeGroup:
		if !set(r.GroupID) || set(r.CompanyID) || set(r.ClientID) || len(r.AllowlistedCompanyIDs) > 0 {
			return nil, fmt.Errorf("%w: group ownership needs only group_id", ErrInvalidOwnership)
		}
		return GroupOwned{GroupID: *r.GroupID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown owner type %q", ErrInvalidOwnership, r.Type)
	}
}

// RecordOf flattens an Ownership for storage.
func RecordOf(o Ownership) OwnershipRecord {
	switch v := o.(type) {
	case CompanyOwned:
		return OwnershipRecord{Type: OwnerTypeCompany, CompanyID: &v.CompanyID}
	case ClientOwned:
		return OwnershipRecord{Type: OwnerTypeClient, ClientID: &v.ClientID, AllowlistedCompanyIDs: v.AllowlistedCompanyIDs}
	case GroupOwned:
		return OwnershipRecord{Type: OwnerTypeGroup, GroupID: &v.GroupID}
	default:
		return OwnershipRecord{}
	}
}

// Integration is a configured connection to an external platform.
type Integration struct {
	ID             string
	Name           string
	Kind           PlatformKind
	Ownership      Ownership
	Config         map[string]string
	IsActive       bool
	IsDeleted      bool
	LastCheckedAt  *time.Time
	LastCheckOK    *bool
	LastCheckError *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type integrationJSON struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Kind           PlatformKind    `json:"platform_kind"`
	Ownership      OwnershipRecord `json:"ownership"`
	IsActive       bool            `json:"is_active"`
	IsDeleted      bool            `json:"is_deleted"`
	LastCheckedAt  *time.Time      `json:"last_checked_at,omitempty"`
	LastCheckOK    *bool           `json:"last_check_ok,omitempty"`
	LastCheckError *string         `json:"last_check_error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MarshalJSON flattens the ownership variant. Config is never serialized
// since it carries credentials.
func (i Integration) MarshalJSON() ([]byte, error) {
	return json.Marshal(integrationJSON{
		ID:             i.ID,
		Name:           i.Name,
		Kind:           i.Kind,
		Ownership:      RecordOf(i.Ownership),
		IsActive:       i.IsActive,
		IsDeleted:      i.IsDeleted,
		LastCheckedAt:  i.LastCheckedAt,
		LastCheckOK:    i.LastCheckOK,
		LastCheckError: i.LastCheckError,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	})
}

func (i *Integration) UnmarshalJSON(data []byte) error {
	var raw integrationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o, err := raw.Ownership.Ownership()
	if err != nil {
		return err
	}
	*i = Integration{
		ID:             raw.ID,
		Name:           raw.Name,
		Kind:           raw.Kind,
		Ownership:      o,
		IsActive:       raw.IsActive,
		IsDeleted:      raw.IsDeleted,
		LastCheckedAt:  raw.LastCheckedAt,
		LastCheckOK:    raw.LastCheckOK,
		LastCheckError: raw.LastCheckError,
		CreatedAt:      raw.CreatedAt,
		UpdatedAt:      raw.UpdatedAt,
	}
	return nil
}
