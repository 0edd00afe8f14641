package bookmark

import (
	"net/url"
	"strings"
	"time"
)

const relevanceSort = "sortBy=relevance"

// Bookmark is a saved search. Alerts re-run URL on a schedule.
type Bookmark struct {
	ID        string
	UserID    string
	UserEmail string
	UserName  string
	URL       string
	Name      string
	IsAlertOn bool
	CreatedAt time.Time
}

// RelevanceSorted reports whether the saved search is sorted by AI
// relevance. Those rankings are user specific and never alerted on.
func (b Bookmark) RelevanceSorted() bool {
	if strings.Contains(b.URL, relevanceSort) {
		return true
	}
	u, err := url.Parse(b.URL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Query().Get("sortBy"), "relevance")
}

func (b Bookmark) AlertEligible() bool {
	return b.IsAlertOn && !b.RelevanceSorted()
}

// AlertEligible keeps the bookmarks a job alert run should process.
func AlertEligible(bookmarks []Bookmark) []Bookmark {
	out := make([]Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.AlertEligible() {
			out = append(out, b)
		}
	}
	return out
}

// DisplayName falls back to the search query when the bookmark is unnamed.
func (b Bookmark) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	u, err := url.Parse(b.URL)
	if err == nil {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}
	return "your saved search"
}
