package catalog

import (
	"testing"
	"time"
)

func fptr(v float64) *float64 {
	return &v
}

// TestSortRanked_MatchCountDominates verifies that any difference in
// match count decides the order regardless of the natural field values.
func TestSortRanked_MatchCountDominates(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []rankedItem{
		{Candidate: Candidate{ID: 1, AverageRating: fptr(5.0), CreatedAt: base}, matchCount: 0},
		{Candidate: Candidate{ID: 2, AverageRating: fptr(1.0), CreatedAt: base}, matchCount: 2},
		{Candidate: Candidate{ID: 3, AverageRating: fptr(3.0), CreatedAt: base}, matchCount: 1},
	}

	sortRanked(items, SortByAverageRating, Desc)

	wantOrder := []int64{2, 3, 1}
	for i, want := range wantOrder {
		if items[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, items[i].ID)
		}
	}
}

// TestSortRanked_IDTieBreak verifies that equal match counts and equal
// natural-field values fall back to id ascending.
func TestSortRanked_IDTieBreak(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []rankedItem{
		{Candidate: Candidate{ID: 9, AverageRating: fptr(4.0), CreatedAt: base}, matchCount: 1},
		{Candidate: Candidate{ID: 2, AverageRating: fptr(4.0), CreatedAt: base}, matchCount: 1},
		{Candidate: Candidate{ID: 5, AverageRating: fptr(4.0), CreatedAt: base}, matchCount: 1},
	}

	sortRanked(items, SortByAverageRating, Desc)

	wantOrder := []int64{2, 5, 9}
	for i, want := range wantOrder {
		if items[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, items[i].ID)
		}
	}
}

// TestCompareField_NullOrdering verifies that a missing value is always
// the weakest: after all present values under desc, before them under asc.
func TestCompareField_NullOrdering(t *testing.T) {
	present := keyValue{num: 4.5, present: true}
	missing := keyValue{}

	tests := []struct {
		name string
		a, b keyValue
		dir  Direction
		want int // sign only
	}{
		{"missing after present under desc", missing, present, Desc, 1},
		{"present before missing under desc", present, missing, Desc, -1},
		{"missing before present under asc", missing, present, Asc, -1},
		{"present after missing under asc", present, missing, Asc, 1},
		{"both missing equal under desc", missing, missing, Desc, 0},
		{"both missing equal under asc", missing, missing, Asc, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareField(tt.a, tt.b, tt.dir)
			if sign(got) != tt.want {
				t.Errorf("compareField() = %d, expected sign %d", got, tt.want)
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// TestSortRanked_Idempotent verifies that re-sorting an already sorted
// list yields the same list.
func TestSortRanked_Idempotent(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []rankedItem{
		{Candidate: Candidate{ID: 4, AverageRating: fptr(2.0), CreatedAt: base}, matchCount: 1},
		{Candidate: Candidate{ID: 1, AverageRating: nil, CreatedAt: base.Add(time.Hour)}, matchCount: 0},
		{Candidate: Candidate{ID: 7, AverageRating: fptr(2.0), CreatedAt: base}, matchCount: 1},
		{Candidate: Candidate{ID: 3, AverageRating: fptr(5.0), CreatedAt: base}, matchCount: 2},
	}

	sortRanked(items, SortByAverageRating, Desc)
	first := make([]int64, len(items))
	for i, it := range items {
		first[i] = it.ID
	}

	sortRanked(items, SortByAverageRating, Desc)
	for i, it := range items {
		if it.ID != first[i] {
			t.Errorf("position %d changed on re-sort: %d -> %d", i, first[i], it.ID)
		}
	}
}

// TestCompareField_TimeComparesByInstant verifies that date keys compare
// by instant, not by representation.
func TestCompareField_TimeComparesByInstant(t *testing.T) {
	utc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	saoPaulo := utc.In(time.FixedZone("BRT", -3*60*60))

	a := keyValue{t: utc, isTime: true, present: true}
	b := keyValue{t: saoPaulo, isTime: true, present: true}
	if got := compareField(a, b, Asc); got != 0 {
		t.Errorf("same instant in different zones compared as %d, expected 0", got)
	}

	later := keyValue{t: utc.Add(time.Second), isTime: true, present: true}
	if got := compareField(a, later, Desc); got <= 0 {
		t.Errorf("earlier instant under desc compared as %d, expected > 0", got)
	}
}

// TestOverlapCount verifies the match-count invariant: the overlap of
// the item's categories and the requested set, zero without a filter.
func TestOverlapCount(t *testing.T) {
	categories := []Category{{ID: 1, Name: "Saúde"}, {ID: 5, Name: "Educação"}, {ID: 8, Name: "Animais"}}

	tests := []struct {
		name string
		ids  []int64
		want int
	}{
		{"no filter", nil, 0},
		{"no overlap", []int64{2, 3}, 0},
		{"partial overlap", []int64{1, 3}, 1},
		{"full overlap", []int64{1, 5, 8}, 3},
		{"filter larger than categories", []int64{1, 5, 8, 9, 10}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlapCount(categories, tt.ids); got != tt.want {
				t.Errorf("overlapCount() = %d, expected %d", got, tt.want)
			}
		})
	}
}
