package providers

import (
	"math"
	"sort"
	"time"
)

// TopContentLimit is the number of items kept in Analytics.TopContent.
const TopContentLimit = 5

// Analytics is the normalized, per-provider analytics view. It is derived
// on every request and never persisted.
type Analytics struct {
	Provider         Provider      `json:"provider"`
	Connected        bool          `json:"connected"`
	Username         string        `json:"username,omitempty"`
	Followers        int64         `json:"followers"`
	Impressions      *int64        `json:"impressions,omitempty"`
	Reach            *int64        `json:"reach,omitempty"`
	PostCount        int64         `json:"post_count"`
	TotalEngagements int64         `json:"total_engagements"`
	EngagementRate   float64       `json:"engagement_rate"`
	TopContent       []ContentItem `json:"top_content"`
	Note             string        `json:"note,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// ContentItem is one post, tweet or video.
type ContentItem struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	ImageURL    string    `json:"image_url,omitempty"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	Shares      int64     `json:"shares"`
	Views       int64     `json:"views,omitempty"`
	Engagements int64     `json:"engagements"`
	PublishedAt time.Time `json:"published_at"`
}

// Disconnected is the entry for a provider with no stored credential.
func Disconnected(p Provider) *Analytics {
	return &Analytics{Provider: p, Connected: false}
}

// Failed is the entry for a connected provider whose fetch failed.
func Failed(p Provider, msg string) *Analytics {
	return &Analytics{Provider: p, Connected: true, Error: msg}
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// SumEngagements fills each item's Engagements (likes+comments+shares)
// and returns the total.
func SumEngagements(items []ContentItem) int64 {
	var total int64
	for i := range items {
		items[i].Engagements = items[i].Likes + items[i].Comments + items[i].Shares
		total += items[i].Engagements
	}
	return total
}

// TopContent returns up to n items with the highest Engagements, descending.
// Ties keep their original order. The input slice is not modified.
func TopContent(items []ContentItem, n int) []ContentItem {
	sorted := make([]ContentItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Engagements > sorted[j].Engagements
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// EngagementRate is (total / items) / followers * 100, rounded to two
// decimals. Zero items or zero followers yield 0.
func EngagementRate(total int64, items int, followers int64) float64 {
	if items <= 0 || followers <= 0 {
		return 0
	}
	return round2(float64(total) / float64(items) / float64(followers) * 100)
}

// ViewRate is total / views * 100 for view-based networks. Zero views yield 0.
func ViewRate(total, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return round2(float64(total) / float64(views) * 100)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700", // Graph API
	"2006-01-02T15:04:05.000Z",
}

// ParseTime parses the timestamp formats returned by provider APIs.
// Unparseable input yields the zero time.
func ParseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
