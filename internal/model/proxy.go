// Package model defines shared types for the proxy.
package model

import (
	"context"
	"net/http"
)

// BackendRequest is an inbound /api/ request to be forwarded to the backend.
type BackendRequest struct {
	Ctx context.Context
	// URI is the raw request target, path plus query, exactly as the client sent it.
	URI string
}

// BackendResponse is a fully read backend reply.
type BackendResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the backend answered with a 2xx status.
func (r *BackendResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
