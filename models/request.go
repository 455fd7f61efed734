package models

// ProductRequest is the payload for POST /api/v1/product.
type ProductRequest struct {
	// URL is the product page to extract from. Required.
	URL string `json:"url" binding:"required"`

	// MaxAgeMs allows serving a cached result younger than this many
	// milliseconds. 0 disables the cache lookup.
	MaxAgeMs int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`
}

// FollowerRequest is the payload for POST /api/v1/followers.
type FollowerRequest struct {
	// URL is the profile page. Required.
	URL string `json:"url" binding:"required"`

	// Platform is one of instagram, facebook, tiktok, twitter, linkedin,
	// youtube (case-insensitive). Unknown values yield a null count.
	Platform string `json:"platform" binding:"required"`

	MaxAgeMs int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`
}

// SocialBatchRequest is the payload for the follower batch endpoints.
type SocialBatchRequest struct {
	// Profiles is the list of (platform, url) pairs. Entries with an empty
	// field are returned with a null count.
	Profiles []SocialMediaRef `json:"profiles" binding:"required,min=1"`

	// WebhookURL, if set, receives a batch.completed event when an async
	// batch finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}
