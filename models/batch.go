package models

// BatchResponse is the immediate response for POST /api/v1/followers/batch/async.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/followers/batch/:id.
type BatchStatusResponse struct {
	ID        string                     `json:"id"`
	Status    string                     `json:"status"`
	Completed int                        `json:"completed"`
	Found     int                        `json:"found"`
	Total     int                        `json:"total"`
	Results   []FollowerExtractionResult `json:"results,omitempty"`
}

// BatchJob tracks an asynchronous follower batch.
type BatchJob struct {
	ID        string
	Status    string // "processing", "completed"
	Total     int
	Completed int
	Found     int
	Results   []FollowerExtractionResult
	CreatedAt int64 // unix timestamp
}
