package models

// AuthenticateURLRequest asks the service to fetch and authenticate a remote image
type AuthenticateURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// ServiceInfo describes the service at the root endpoint
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// EchoResponse is returned by the connectivity test endpoint
type EchoResponse struct {
	Status string `json:"status"`
	Method string `json:"method"`
}

// HealthResponse reports liveness and reference readiness
type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	ReferencesLoaded bool   `json:"references_loaded"`
	ReferenceCount   int    `json:"reference_count"`
}
