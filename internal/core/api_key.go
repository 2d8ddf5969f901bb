package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/model"
	"github.com/edvin/dataconnect/internal/platform"
)

// ErrInvalidAPIKey is returned for unknown or revoked keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

const apiKeyPrefix = "dck_"

const apiKeyColumns = `id, name, key_prefix, company_id, client_id, group_ids, platform_admin, created_at, revoked_at`

// APIKeyService manages API keys and resolves them to principals.
type APIKeyService struct {
	db DB
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(db DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// Create generates a new key scoped to p, stores its hash, and returns the
// raw key. The raw key is only available here.
func (s *APIKeyService) Create(ctx context.Context, name string, p access.Principal) (*model.APIKey, string, error) {
	rawKey, err := platform.NewSecret(apiKeyPrefix, 32)
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}

	key, err := s.CreateWithRawKey(ctx, name, rawKey, p)
	if err != nil {
		return nil, "", err
	}
	return key, rawKey, nil
}

// CreateWithRawKey stores a caller-provided key. Used for well-known
// development keys.
func (s *APIKeyService) CreateWithRawKey(ctx context.Context, name, rawKey string, p access.Principal) (*model.APIKey, error) {
	if len(rawKey) < 12 {
		return nil, fmt.Errorf("create api key: key too short")
	}
	key := &model.APIKey{
		ID:            platform.NewID(),
		Name:          name,
		KeyHash:       HashAPIKey(rawKey),
		KeyPrefix:     rawKey[:12],
		CompanyID:     optional(p.CompanyID),
		ClientID:      optional(p.ClientID),
		GroupIDs:      p.GroupIDs,
		PlatformAdmin: p.IsPlatformAdmin,
	}
	if key.GroupIDs == nil {
		key.GroupIDs = []string{}
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, company_id, client_id, group_ids, platform_admin, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now()) RETURNING created_at`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CompanyID, key.ClientID, key.GroupIDs, key.PlatformAdmin,
	).Scan(&key.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	return key, nil
}

// Authenticate resolves a raw key to the principal it was issued for.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*access.Principal, error) {
	var (
		companyID, clientID *string
		p                   access.Principal
	)
	err := s.db.QueryRow(ctx,
		`SELECT company_id, client_id, group_ids, platform_admin FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		HashAPIKey(rawKey),
	).Scan(&companyID, &clientID, &p.GroupIDs, &p.IsPlatformAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("authenticate api key: %w", err)
	}
	if companyID != nil {
		p.CompanyID = *companyID
	}
	if clientID != nil {
		p.ClientID = *clientID
	}
	return &p, nil
}

// GetByID retrieves an API key by its ID.
func (s *APIKeyService) GetByID(ctx context.Context, id string) (*model.APIKey, error) {
	var k model.APIKey
	err := s.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id,
	).Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.CompanyID, &k.ClientID, &k.GroupIDs, &k.PlatformAdmin, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get api key %s: %w", id, ErrInvalidAPIKey)
		}
		return nil, fmt.Errorf("get api key %s: %w", id, err)
	}
	return &k, nil
}

// List returns all keys, newest first.
func (s *APIKeyService) List(ctx context.Context) ([]model.APIKey, error) {
	rows, err := s.db.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.CompanyID, &k.ClientID, &k.GroupIDs, &k.PlatformAdmin, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

// Revoke marks a key as revoked. Revoked keys stop authenticating at once.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s not found or already revoked", id)
	}
	return nil
}

// HashAPIKey returns the stored form of a raw key.
func HashAPIKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(hash[:])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
