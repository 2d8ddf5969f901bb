package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snowflakedb/gosnowflake"

	"github.com/edvin/dataconnect/internal/model"
)

const snowflakeDefaultMaxResults = 500

// Snowflake runs SQL against a Snowflake account. Warehouse rows are never
// resource-filtered, only row-capped.
type Snowflake struct {
	logger zerolog.Logger
	open   SQLOpener
}

func NewSnowflake(logger zerolog.Logger) *Snowflake {
	return &Snowflake{logger: logger, open: openSnowflake}
}

// WithOpener replaces the SQL opener. Used by tests.
func (s *Snowflake) WithOpener(open SQLOpener) *Snowflake {
	s.open = open
	return s
}

func (s *Snowflake) Kind() model.PlatformKind { return model.KindWarehouse }

func (s *Snowflake) validate(cfg Config) error {
	if err := cfg.Require("account", "user"); err != nil {
		return err
	}
	switch snowflakeAuthMode(cfg) {
	case "password":
		return cfg.Require("password")
	case "oauth":
		return cfg.Require("token")
	default:
		return fmt.Errorf("%w: unsupported auth_mode %q", ErrInvalidConfiguration, cfg.Get("auth_mode"))
	}
}

func snowflakeAuthMode(cfg Config) string {
	if m := cfg.Get("auth_mode"); m != "" {
		return m
	}
	return "password"
}

// snowflakeConfig maps the integration config onto a driver config.
func snowflakeConfig(cfg Config) *gosnowflake.Config {
	sf := &gosnowflake.Config{
		Account:      cfg.Get("account"),
		User:         cfg.Get("user"),
		Warehouse:    cfg.Get("warehouse"),
		Database:     cfg.Get("database"),
		Schema:       cfg.Get("schema"),
		Role:         cfg.Get("role"),
		Application:  "dataconnect",
		LoginTimeout: time.Duration(cfg.Int("timeout_seconds", 30)) * time.Second,
	}
	if snowflakeAuthMode(cfg) == "oauth" {
		sf.Authenticator = gosnowflake.AuthTypeOAuth
		sf.Token = cfg.Get("token")
	} else {
		sf.Authenticator = gosnowflake.AuthTypeSnowflake
		sf.Password = cfg.Get("password")
	}
	return sf
}

func openSnowflake(cfg Config) (*sql.DB, error) {
	dsn, err := gosnowflake.DSN(snowflakeConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("build snowflake dsn: %w", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake: %w", err)
	}
	db.SetMaxOpenConns(2)
	return db, nil
}

func (s *Snowflake) TestConnection(ctx context.Context, cfg Config) model.ConnectionResult {
	if err := s.validate(cfg); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}
	db, err := s.open(cfg)
	if err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: fmt.Sprintf("ping snowflake: %v", err)}
	}
	return model.ConnectionResult{Success: true}
}

func (s *Snowflake) ListDatabases(ctx context.Context, cfg Config) ([]string, error) {
	if err := s.validate(cfg); err != nil {
		return nil, err
	}
	db, err := s.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	limit := cfg.Int(KeyMaxResults, snowflakeDefaultMaxResults)
	stmt := "SHOW DATABASES"
	if search := cfg.Get(KeySearchPattern); search != "" {
		stmt += " LIKE '%" + escapeLiteral(search) + "%'"
	}
	stmt += fmt.Sprintf(" LIMIT %d", limit)

	names, err := queryNames(ctx, db, stmt, "name", limit)
	if err != nil {
		return nil, fmt.Errorf("list snowflake databases: %w", err)
	}
	return names, nil
}

func (s *Snowflake) ListTables(ctx context.Context, database string, cfg Config) ([]string, error) {
	if err := s.validate(cfg); err != nil {
		return nil, err
	}
	db, err := s.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	limit := cfg.Int(KeyMaxResults, snowflakeDefaultMaxResults)
	stmt := "SHOW TABLES"
	if search := cfg.Get(KeySearchPattern); search != "" {
		stmt += " LIKE '%" + escapeLiteral(search) + "%'"
	}
	stmt += " IN DATABASE " + quoteIdent(database, '"')
	stmt += fmt.Sprintf(" LIMIT %d", limit)

	names, err := queryNames(ctx, db, stmt, "name", limit)
	if err != nil {
		return nil, fmt.Errorf("list snowflake tables in %s: %w", database, err)
	}
	return names, nil
}

func (s *Snowflake) ExecuteQuery(ctx context.Context, query string, cfg Config) model.QueryResult {
	start := time.Now()
	if err := s.validate(cfg); err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}
	db, err := s.open(cfg)
	if err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}
	defer db.Close()

	result := runSQL(ctx, db, query, cfg)
	if !result.Success {
		s.logger.Warn().Str("error", result.ErrorMessage).Msg("snowflake query failed")
	}
	return result
}
