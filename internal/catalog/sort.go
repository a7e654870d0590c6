package catalog

import (
	"sort"
	"time"
)

// keyValue is an extracted section sort-key value. An NGO that has never
// been rated has no average rating, so present is false for that key.
type keyValue struct {
	num     float64
	t       time.Time
	isTime  bool
	present bool
}

// fieldValue extracts the sort-key value for the given field.
func fieldValue(c Candidate, field SortField) keyValue {
	switch field {
	case SortByAverageRating:
		if c.AverageRating == nil {
			return keyValue{}
		}
		return keyValue{num: *c.AverageRating, present: true}
	case SortByRatingCount:
		return keyValue{num: float64(c.RatingCount), present: true}
	case SortByCreatedAt:
		return keyValue{t: c.CreatedAt, isTime: true, present: true}
	}
	return keyValue{}
}

// compareField compares two sort-key values under the given direction.
// Returns a negative number if a sorts before b, positive if after, zero
// if equal.
//
// A missing value is the weakest value regardless of direction: it sorts
// after all present values under desc and before them under asc.
// Time values compare by instant.
func compareField(a, b keyValue, dir Direction) int {
	if !a.present && !b.present {
		return 0
	}
	if !a.present {
		if dir == Desc {
			return 1
		}
		return -1
	}
	if !b.present {
		if dir == Desc {
			return -1
		}
		return 1
	}

	var cmp int
	if a.isTime {
		switch {
		case a.t.Before(b.t):
			cmp = -1
		case a.t.After(b.t):
			cmp = 1
		}
	} else {
		switch {
		case a.num < b.num:
			cmp = -1
		case a.num > b.num:
			cmp = 1
		}
	}
	if dir == Desc {
		cmp = -cmp
	}
	return cmp
}

// rankedItem pairs a candidate with its category match count for the
// in-memory re-rank. The match count is never exposed to callers.
type rankedItem struct {
	Candidate
	matchCount int
}

// overlapCount counts how many of the candidate's categories appear in
// the requested id set. Zero when no filter is supplied.
func overlapCount(categories []Category, ids []int64) int {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for _, c := range categories {
		if _, ok := want[c.ID]; ok {
			n++
		}
	}
	return n
}

// sortRanked orders items with the three-key comparator:
//  1. match count, descending (strictly dominant)
//  2. the section's sort field in its configured direction
//  3. id, ascending (absolute tie-break)
//
// The comparator is a total order, so the output is deterministic for
// identical inputs regardless of the incoming order.
func sortRanked(items []rankedItem, field SortField, dir Direction) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.matchCount != b.matchCount {
			return a.matchCount > b.matchCount
		}
		if cmp := compareField(fieldValue(a.Candidate, field), fieldValue(b.Candidate, field), dir); cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
}
