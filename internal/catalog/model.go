// Package catalog provides the discovery catalog for verified NGOs:
// filtered search plus ranked browse sections with category-match
// prioritization.
package catalog

import (
	"strings"
	"time"
)

// Default page sizes per mode.
const (
	DefaultBrowseLimit = 10
	DefaultSearchLimit = 20
)

// Section type constants.
const (
	SectionSearch     = "search"
	SectionTopRated   = "topRated"
	SectionNewest     = "newest"
	SectionTopFavored = "topFavored"
	SectionOldest     = "oldest"
)

// Filter is the input value object for a catalog request.
// A non-blank SearchTerm selects search mode; otherwise browse mode.
type Filter struct {
	// SearchTerm matches NGO names and category names (substring).
	SearchTerm string
	// CategoryIDs restricts eligibility and, in browse mode, boosts
	// NGOs whose profiles overlap the requested categories.
	CategoryIDs []int64
	// Limit is the page size. Zero means the mode default.
	Limit int
	// Offset is the page start. Must be non-negative.
	Offset int
}

// SearchMode reports whether the filter selects search mode.
func (f Filter) SearchMode() bool {
	return strings.TrimSpace(f.SearchTerm) != ""
}

// HasCategoryFilter reports whether a category filter is active.
func (f Filter) HasCategoryFilter() bool {
	return len(f.CategoryIDs) > 0
}

// Category is an id/name pair attached to a catalog item.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is the external projection of an NGO in the catalog.
// The internal match count never appears in this shape.
type Item struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	AvatarURL  *string    `json:"avatarUrl"`
	Categories []Category `json:"categories"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Section is one titled, ordered slice of the catalog.
type Section struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	Items []Item `json:"items"`
}

// Result is the outcome of a catalog request. In search mode Sections
// holds exactly one section; in browse mode exactly four.
type Result struct {
	Sections   []Section
	SearchMode bool
}
