// Package api serves the integration REST API under /api/v1. Every API route
// needs an API key passed as a bearer token or in the X-API-Key header.
package api
