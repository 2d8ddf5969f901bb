// Package client talks to the integration API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/edvin/dataconnect/internal/api/request"
	"github.com/edvin/dataconnect/internal/model"
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// StatusError is returned for responses with a status of 400 or above.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	r := &Response{
		StatusCode: resp.StatusCode,
		Body:       json.RawMessage(respBody),
	}

	if resp.StatusCode >= 400 {
		return r, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return r, nil
}

// Items extracts the "items" array from a list response.
func (r *Response) Items() (json.RawMessage, error) {
	var list struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(r.Body, &list); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	return list.Items, nil
}

func decode[T any](r *Response, what string) (*T, error) {
	var v T
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", what, err)
	}
	return &v, nil
}

func decodeItems[T any](r *Response, what string) ([]T, error) {
	raw, err := r.Items()
	if err != nil {
		return nil, err
	}
	items := []T{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", what, err)
	}
	return items, nil
}

func integrationPath(id string) string {
	return "/api/v1/integrations/" + url.PathEscape(id)
}

func listingQuery(search string, limit int) string {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListIntegrations lists the integrations available to companyID. An empty
// companyID selects the caller's company.
func (c *Client) ListIntegrations(ctx context.Context, companyID string) ([]model.Integration, error) {
	path := "/api/v1/integrations"
	if companyID != "" {
		path += "?company_id=" + url.QueryEscape(companyID)
	}
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeItems[model.Integration](resp, "integrations")
}

func (c *Client) GetIntegration(ctx context.Context, id string) (*model.Integration, error) {
	resp, err := c.Get(ctx, integrationPath(id))
	if err != nil {
		return nil, err
	}
	return decode[model.Integration](resp, "integration")
}

func (c *Client) CreateIntegration(ctx context.Context, in request.CreateIntegration) (*model.Integration, error) {
	resp, err := c.Post(ctx, "/api/v1/integrations", in)
	if err != nil {
		return nil, err
	}
	return decode[model.Integration](resp, "integration")
}

func (c *Client) UpdateIntegrationConfig(ctx context.Context, id string, cfg map[string]string) error {
	_, err := c.Put(ctx, integrationPath(id)+"/config", request.UpdateIntegrationConfig{Config: cfg})
	return err
}

func (c *Client) SetIntegrationActive(ctx context.Context, id string, active bool) error {
	_, err := c.Put(ctx, integrationPath(id)+"/active", request.SetIntegrationActive{Active: &active})
	return err
}

func (c *Client) DeleteIntegration(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, integrationPath(id))
	return err
}

// TestConnection asks the server to test an integration. A failed test is a
// result with Success=false, not an error.
func (c *Client) TestConnection(ctx context.Context, id string) (*model.ConnectionResult, error) {
	resp, err := c.Post(ctx, integrationPath(id)+"/test", nil)
	if err != nil {
		return nil, err
	}
	return decode[model.ConnectionResult](resp, "connection result")
}

// ExecuteQuery runs a query through the server pipeline.
func (c *Client) ExecuteQuery(ctx context.Context, integrationID, query string, filter *model.DataSourceFilter) (*model.QueryResult, error) {
	resp, err := c.Post(ctx, integrationPath(integrationID)+"/query", request.ExecuteQuery{Query: query, Filter: filter})
	if err != nil {
		return nil, err
	}
	return decode[model.QueryResult](resp, "query result")
}

func (c *Client) ListDatabases(ctx context.Context, id, search string, limit int) ([]string, error) {
	resp, err := c.Get(ctx, integrationPath(id)+"/databases"+listingQuery(search, limit))
	if err != nil {
		return nil, err
	}
	return decodeItems[string](resp, "databases")
}

func (c *Client) ListTables(ctx context.Context, id, database, search string, limit int) ([]string, error) {
	path := integrationPath(id) + "/databases/" + url.PathEscape(database) + "/tables" + listingQuery(search, limit)
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeItems[string](resp, "tables")
}

func (c *Client) PlatformKinds(ctx context.Context) ([]model.PlatformKind, error) {
	resp, err := c.Get(ctx, "/api/v1/platform-kinds")
	if err != nil {
		return nil, err
	}
	return decodeItems[model.PlatformKind](resp, "platform kinds")
}
