package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	auditBufferSize = 1024
	redacted        = "[REDACTED]"
)

// AuditStore is the subset of pgxpool.Pool used by the audit writer.
type AuditStore interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AuditLogger records every state-changing or remote-touching API call
// (POST, PUT, DELETE) in audit_logs. Writes happen on a single background
// goroutine; entries are dropped rather than blocking a request when the
// buffer is full.
type AuditLogger struct {
	store  AuditStore
	logger zerolog.Logger
	queue  chan auditRecord
	done   chan struct{}
}

type auditRecord struct {
	principal     json.RawMessage
	method        string
	route         string
	path          string
	integrationID *string
	status        int
	body          json.RawMessage
}

func NewAuditLogger(store AuditStore, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		store:  store,
		logger: logger,
		queue:  make(chan auditRecord, auditBufferSize),
		done:   make(chan struct{}),
	}
	go al.run()
	return al
}

func (al *AuditLogger) run() {
	defer close(al.done)
	for rec := range al.queue {
		_, err := al.store.Exec(context.Background(),
			`INSERT INTO audit_logs (principal, method, route, path, integration_id, status_code, request_body)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.principal, rec.method, rec.route, rec.path, rec.integrationID, rec.status, rec.body,
		)
		if err != nil {
			al.logger.Error().Err(err).Str("route", rec.route).Msg("failed to write audit log")
		}
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (al *AuditLogger) Close() {
	close(al.queue)
	<-al.done
}

// Middleware must run after Auth so the principal is known.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		sw := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(sw, r)

		rec := auditRecord{
			principal: json.RawMessage("{}"),
			method:    r.Method,
			route:     r.URL.Path,
			path:      r.URL.Path,
			status:    statusOf(sw),
			body:      redactBody(body),
		}
		if p, ok := GetPrincipal(r.Context()); ok {
			rec.principal, _ = json.Marshal(p)
		}
		// Route params are only filled in once the router has matched.
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				rec.route = pattern
			}
			if id := rctx.URLParam("id"); id != "" {
				rec.integrationID = &id
			}
		}

		select {
		case al.queue <- rec:
		default:
			al.logger.Warn().Str("route", rec.route).Msg("audit log buffer full, dropping entry")
		}
	})
}

var credentialKeys = map[string]bool{
	"password": true, "token": true, "secret": true, "api_key": true,
	"secret_access_key": true, "session_token": true, "private_key": true,
}

// redactBody returns body with credentials masked. Every value inside a
// "config" object is masked. Non-JSON bodies are not recorded.
func redactBody(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return json.RawMessage(body)
	}
	for k, v := range data {
		switch {
		case credentialKeys[k]:
			data[k] = redacted
		case k == "config":
			if cfg, ok := v.(map[string]any); ok {
				for ck := range cfg {
					cfg[ck] = redacted
				}
			}
		}
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return out
}
