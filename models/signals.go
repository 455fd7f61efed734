package models

import "strings"

// ProductSignals holds the fields scraped from a product page. Every field is
// independently optional.
type ProductSignals struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Price           *string `json:"price"` // raw text, currency and locale formatting intact
	Category        *string `json:"category"`
	MetaDescription *string `json:"meta_description"`
	Heading         *string `json:"h1"`
	ProductType     *string `json:"product_type"`
}

// IsEmpty reports whether no field was extracted.
func (p ProductSignals) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil &&
		p.Category == nil && p.MetaDescription == nil && p.Heading == nil &&
		p.ProductType == nil
}

// Platform identifies a supported social network.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	TikTok    Platform = "tiktok"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	YouTube   Platform = "youtube"
)

// Platforms lists the supported platforms in a stable order.
var Platforms = []Platform{Instagram, Facebook, TikTok, Twitter, LinkedIn, YouTube}

// ParsePlatform matches s case-insensitively against the supported set.
// "x" is accepted as Twitter.
func ParsePlatform(s string) (Platform, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "x" {
		return Twitter, true
	}
	for _, p := range Platforms {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// SocialMediaRef is one profile to look up.
type SocialMediaRef struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// FollowerExtractionResult is the outcome for one SocialMediaRef. Followers is
// nil when the fetch failed or nothing matched.
type FollowerExtractionResult struct {
	Platform  string `json:"platform"`
	URL       string `json:"url"`
	Followers *int64 `json:"followers"`
}
