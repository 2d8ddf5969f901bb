package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/model"
	"github.com/edvin/dataconnect/internal/platform"
)

const integrationColumns = `id, name, platform_kind, owner_type, company_id, client_id, group_id,
	allowlisted_company_ids, config, is_active, is_deleted,
	last_checked_at, last_check_ok, last_check_error, created_at, updated_at`

// IntegrationService manages integration records in the core database.
type IntegrationService struct {
	db DB
}

// NewIntegrationService creates a new IntegrationService.
func NewIntegrationService(db DB) *IntegrationService {
	return &IntegrationService{db: db}
}

// Create validates and inserts a new integration. ID and timestamps are set
// when empty.
func (s *IntegrationService) Create(ctx context.Context, in *model.Integration) error {
	if !in.Kind.Valid() {
		return fmt.Errorf("create integration: unknown platform kind %q", in.Kind)
	}
	if in.Ownership == nil {
		return fmt.Errorf("create integration: %w: ownership is required", model.ErrInvalidOwnership)
	}
	rec := model.RecordOf(in.Ownership)
	if _, err := rec.Ownership(); err != nil {
		return fmt.Errorf("create integration: %w", err)
	}

	if in.ID == "" {
		in.ID = platform.NewID()
	}
	now := time.Now().UTC()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	if in.Config == nil {
		in.Config = map[string]string{}
	}

	cfg, err := json.Marshal(in.Config)
	if err != nil {
		return fmt.Errorf("encode integration config: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO integrations (id, name, platform_kind, owner_type, company_id, client_id, group_id,
		 allowlisted_company_ids, config, is_active, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11, $12)`,
		in.ID, in.Name, string(in.Kind), rec.Type, rec.CompanyID, rec.ClientID, rec.GroupID,
		allowlist(rec.AllowlistedCompanyIDs), cfg, in.IsActive, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert integration: %w", err)
	}
	return nil
}

// GetByID returns a live integration. Missing and soft-deleted rows both
// yield ErrNotFound.
func (s *IntegrationService) GetByID(ctx context.Context, id string) (*model.Integration, error) {
	in, err := scanIntegration(s.db.QueryRow(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get integration %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get integration %s: %w", id, err)
	}
	if in.IsDeleted {
		return nil, fmt.Errorf("get integration %s: %w", id, ErrNotFound)
	}
	return in, nil
}

// UpdateConfig replaces the configuration map.
func (s *IntegrationService) UpdateConfig(ctx context.Context, id string, cfg map[string]string) error {
	if cfg == nil {
		cfg = map[string]string{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode integration config: %w", err)
	}
	return s.update(ctx, "update config of", id,
		`UPDATE integrations SET config = $1, updated_at = now() WHERE id = $2 AND NOT is_deleted`, raw, id)
}

// SetActive enables or disables an integration.
func (s *IntegrationService) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(ctx, "set active on", id,
		`UPDATE integrations SET is_active = $1, updated_at = now() WHERE id = $2 AND NOT is_deleted`, active, id)
}

// SoftDelete flags an integration as deleted. Rows are never removed.
func (s *IntegrationService) SoftDelete(ctx context.Context, id string) error {
	return s.update(ctx, "delete", id,
		`UPDATE integrations SET is_deleted = true, is_active = false, updated_at = now() WHERE id = $1 AND NOT is_deleted`, id)
}

// RecordHealth stores the outcome of a scheduled connection check.
func (s *IntegrationService) RecordHealth(ctx context.Context, id string, ok bool, message string, checkedAt time.Time) error {
	var errMsg *string
	if !ok {
		errMsg = &message
	}
	return s.update(ctx, "record health of", id,
		`UPDATE integrations SET last_checked_at = $1, last_check_ok = $2, last_check_error = $3 WHERE id = $4 AND NOT is_deleted`,
		checkedAt, ok, errMsg, id)
}

func (s *IntegrationService) update(ctx context.Context, verb, id, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s integration %s: %w", verb, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s integration %s: %w", verb, id, ErrNotFound)
	}
	return nil
}

// ListAvailable returns the integrations a company owns or inherits through
// a client allowlist, sorted by name.
func (s *IntegrationService) ListAvailable(ctx context.Context, companyID string) ([]model.Integration, error) {
	list, err := s.list(ctx,
		`SELECT `+integrationColumns+` FROM integrations
		 WHERE NOT is_deleted
		   AND ((owner_type = 'company' AND company_id = $1)
		     OR (owner_type = 'client' AND $1 = ANY(allowlisted_company_ids)))
		 ORDER BY name, id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list integrations for company %s: %w", companyID, err)
	}
	return access.AvailableForCompany(companyID, list), nil
}

// ListAll returns every live integration. Used for platform admins.
func (s *IntegrationService) ListAll(ctx context.Context) ([]model.Integration, error) {
	list, err := s.list(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE NOT is_deleted ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	return list, nil
}

// ListActive returns live, active integrations.
func (s *IntegrationService) ListActive(ctx context.Context) ([]model.Integration, error) {
	list, err := s.list(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE is_active AND NOT is_deleted ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active integrations: %w", err)
	}
	return list, nil
}

func (s *IntegrationService) list(ctx context.Context, sql string, args ...any) ([]model.Integration, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		out = append(out, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", err)
	}
	return out, nil
}

func scanIntegration(row pgx.Row) (*model.Integration, error) {
	var (
		in   model.Integration
		kind string
		rec  model.OwnershipRecord
		cfg  []byte
	)
	err := row.Scan(&in.ID, &in.Name, &kind, &rec.Type, &rec.CompanyID, &rec.ClientID, &rec.GroupID,
		&rec.AllowlistedCompanyIDs, &cfg, &in.IsActive, &in.IsDeleted,
		&in.LastCheckedAt, &in.LastCheckOK, &in.LastCheckError, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}

	in.Kind = model.PlatformKind(kind)
	if in.Ownership, err = rec.Ownership(); err != nil {
		return nil, fmt.Errorf("integration %s: %w", in.ID, err)
	}
	in.Config = map[string]string{}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &in.Config); err != nil {
			return nil, fmt.Errorf("decode config of integration %s: %w", in.ID, err)
		}
	}
	return &in, nil
}

func allowlist(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
