package intctl

import (
	"context"
	"fmt"
	"io"

	"github.com/edvin/dataconnect/internal/api/request"
	"github.com/edvin/dataconnect/internal/client"
	"github.com/edvin/dataconnect/internal/model"
)

// Seed creates the integrations of a seed definition through the API.
// Integrations that already exist with the same name and owner are skipped,
// so a seed file can be applied repeatedly.
func Seed(ctx context.Context, configPath string, out io.Writer) error {
	var cfg SeedConfig
	if err := loadYAML(configPath, &cfg); err != nil {
		return err
	}
	c, err := newClient(cfg.APIURL, cfg.APIKey)
	if err != nil {
		return err
	}
	return seed(ctx, c, cfg.Integrations, out)
}

func seed(ctx context.Context, c *client.Client, defs []IntegrationDef, out io.Writer) error {
	existing, err := c.ListIntegrations(ctx, "")
	if err != nil {
		return fmt.Errorf("list integrations: %w", err)
	}
	known := make(map[string]string, len(existing))
	for _, in := range existing {
		known[seedKey(in.Name, model.RecordOf(in.Ownership))] = in.ID
	}

	for _, d := range defs {
		rec, err := d.ownership()
		if err != nil {
			return fmt.Errorf("integration %q: %w", d.Name, err)
		}
		if id, ok := known[seedKey(d.Name, rec)]; ok {
			fmt.Fprintf(out, "Integration %q: exists (%s, skipping)\n", d.Name, id)
			continue
		}

		fmt.Fprintf(out, "Creating integration %q...\n", d.Name)
		active := !d.Inactive
		in, err := c.CreateIntegration(ctx, request.CreateIntegration{
			Name:      d.Name,
			Kind:      d.PlatformKind,
			Ownership: rec,
			Config:    d.Config,
			IsActive:  &active,
		})
		if err != nil {
			return fmt.Errorf("create integration %q: %w", d.Name, err)
		}
		known[seedKey(d.Name, rec)] = in.ID
		fmt.Fprintf(out, "  Integration %q: %s created\n", d.Name, in.ID)

		if d.Test {
			res, err := c.TestConnection(ctx, in.ID)
			if err != nil {
				return fmt.Errorf("test integration %q: %w", d.Name, err)
			}
			if res.Success {
				fmt.Fprintf(out, "  Connection test: ok\n")
			} else {
				fmt.Fprintf(out, "  Connection test: FAILED: %s\n", res.ErrorMessage)
			}
		}
	}
	return nil
}

func (d IntegrationDef) ownership() (model.OwnershipRecord, error) {
	var rec model.OwnershipRecord
	owners := 0
	if d.Company != "" {
		rec = model.OwnershipRecord{Type: model.OwnerTypeCompany, CompanyID: &d.Company}
		owners++
	}
	if d.Client != "" {
		rec = model.OwnershipRecord{Type: model.OwnerTypeClient, ClientID: &d.Client, AllowlistedCompanyIDs: d.Allowlist}
		owners++
	}
	if d.Group != "" {
		rec = model.OwnershipRecord{Type: model.OwnerTypeGroup, GroupID: &d.Group}
		owners++
	}
	if owners != 1 {
		return model.OwnershipRecord{}, fmt.Errorf("exactly one of company, client or group is required")
	}
	if len(d.Allowlist) > 0 && d.Client == "" {
		return model.OwnershipRecord{}, fmt.Errorf("allowlisted_companies requires a client owner")
	}
	return rec, nil
}

func seedKey(name string, rec model.OwnershipRecord) string {
	owner := ""
	for _, id := range []*string{rec.CompanyID, rec.ClientID, rec.GroupID} {
		if id != nil {
			owner = *id
		}
	}
	return rec.Type + "/" + owner + "/" + name
}
