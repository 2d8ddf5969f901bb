// Package access decides which callers may use an integration.
package access

import (
	"context"
	"slices"
	"sort"

	"github.com/edvin/dataconnect/internal/model"
)

// Principal is the tenant context of a caller.
type Principal struct {
	CompanyID       string   `json:"company_id,omitempty"`
	ClientID        string   `json:"client_id,omitempty"`
	GroupIDs        []string `json:"group_ids,omitempty"`
	IsPlatformAdmin bool     `json:"platform_admin"`
}

// GroupMembership decides whether a principal belongs to a group.
type GroupMembership interface {
	IsMember(ctx context.Context, p Principal, groupID string) bool
}

// StaticGroups trusts the group ids carried by the principal.
type StaticGroups struct{}

func (StaticGroups) IsMember(_ context.Context, p Principal, groupID string) bool {
	return slices.Contains(p.GroupIDs, groupID)
}

type Resolver struct {
	Groups GroupMembership
}

func NewResolver(groups GroupMembership) *Resolver {
	return &Resolver{Groups: groups}
}

// Allowed applies the ownership rules in order. The first matching rule
// decides.
func (r *Resolver) Allowed(ctx context.Context, p Principal, in *model.Integration) bool {
	if in == nil || in.Ownership == nil {
		return false
	}

	if p.IsPlatformAdmin && p.ClientID == "" {
		return true
	}

	if p.ClientID != "" {
		owned, ok := in.Ownership.(model.ClientOwned)
		return ok && owned.ClientID == p.ClientID
	}

	if group, ok := in.Ownership.(model.GroupOwned); ok {
		if r == nil || r.Groups == nil {
			return false
		}
		return r.Groups.IsMember(ctx, p, group.GroupID)
	}

	if p.CompanyID != "" {
		return AvailableTo(p.CompanyID, in.Ownership)
	}

	return false
}

// AvailableTo reports whether a company owns or inherits an integration.
func AvailableTo(companyID string, o model.Ownership) bool {
	switch v := o.(type) {
	case model.CompanyOwned:
		return v.CompanyID == companyID
	case model.ClientOwned:
		return v.Allowlists(companyID)
	default:
		return false
	}
}

// AvailableForCompany returns the integrations a company owns plus those
// shared with it by a client, without soft-deleted rows or duplicates,
// sorted by name.
func AvailableForCompany(companyID string, candidates []model.Integration) []model.Integration {
	seen := make(map[string]bool, len(candidates))
	out := make([]model.Integration, 0, len(candidates))
	for _, in := range candidates {
		if in.IsDeleted || seen[in.ID] || !AvailableTo(companyID, in.Ownership) {
			continue
		}
		seen[in.ID] = true
		out = append(out, in)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
