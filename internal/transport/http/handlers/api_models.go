package handlers

import "time"

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RouteResponse is the resolved top-level destination the UI shell renders.
type RouteResponse struct {
	Route            string `json:"route"`
	ShowVerifyDialog bool   `json:"show_verify_dialog"`
	PendingResetURL  string `json:"pending_reset_url,omitempty"`
	SignedIn         bool   `json:"signed_in"`
	UserID           string `json:"user_id,omitempty"`
}

// LinkRequest delivers a deep link received while the app is running.
type LinkRequest struct {
	URL string `json:"url" binding:"required"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
