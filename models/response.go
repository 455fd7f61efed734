package models

// ProductResponse is the response for POST /api/v1/product.
type ProductResponse struct {
	// Success is false only for malformed requests. A page that yielded
	// nothing is still a success with empty Data.
	Success bool `json:"success"`

	Data ProductSignals `json:"data"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cache_status,omitempty"`

	Timing TimingInfo `json:"timing"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// FollowerResponse is the response for POST /api/v1/followers.
type FollowerResponse struct {
	Success     bool                     `json:"success"`
	Data        FollowerExtractionResult `json:"data"`
	CacheStatus string                   `json:"cache_status,omitempty"`
	Timing      TimingInfo               `json:"timing"`
	Error       *ErrorDetail             `json:"error,omitempty"`
}

// SocialBatchResponse is the response for the synchronous batch endpoint.
type SocialBatchResponse struct {
	Success bool                       `json:"success"`
	Results []FollowerExtractionResult `json:"results"`
	Found   int                        `json:"found"`
	Timing  TimingInfo                 `json:"timing"`
	Error   *ErrorDetail               `json:"error,omitempty"`
}

// ErrorResponse is returned when a request is rejected before extraction.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// TimingInfo reports how long the operation took.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string   `json:"status"` // "healthy" or "degraded"
	Uptime    string   `json:"uptime"`
	Platforms []string `json:"platforms"`
	Cache     string   `json:"cache"`
	Version   string   `json:"version"`
}
