package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingRepo wraps a repository and records every query it receives.
type recordingRepo struct {
	inner   Repository
	mu      sync.Mutex
	queries []Query
}

func (r *recordingRepo) ListVerified(ctx context.Context, q Query) ([]Candidate, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return r.inner.ListVerified(ctx, q)
}

func (r *recordingRepo) recorded() []Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Query, len(r.queries))
	copy(out, r.queries)
	return out
}

// failingRepo fails every query with a fixed error.
type failingRepo struct {
	err error
}

func (r *failingRepo) ListVerified(context.Context, Query) ([]Candidate, error) {
	return nil, r.err
}

func seedCandidates() []Candidate {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	saude := Category{ID: 1, Name: "Saúde"}
	educacao := Category{ID: 5, Name: "Educação"}
	animais := Category{ID: 8, Name: "Animais"}

	return []Candidate{
		{ID: 3, Name: "Instituto Viver Bem", Categories: []Category{saude}, AverageRating: fptr(4.0), RatingCount: 12, CreatedAt: base.AddDate(0, 1, 0)},
		{ID: 7, Name: "Casa da Esperança", Categories: []Category{saude, educacao}, AverageRating: fptr(3.0), RatingCount: 30, CreatedAt: base.AddDate(0, 2, 0)},
		{ID: 9, Name: "SOS Animais", Categories: []Category{animais}, AverageRating: fptr(5.0), RatingCount: 8, CreatedAt: base.AddDate(0, 3, 0)},
		{ID: 11, Name: "Fundação Semear", Categories: []Category{educacao}, AverageRating: nil, RatingCount: 0, CreatedAt: base.AddDate(0, 4, 0)},
		{ID: 14, Name: "Rede Solidária da Saúde", Categories: []Category{saude, animais}, AverageRating: fptr(4.5), RatingCount: 20, CreatedAt: base.AddDate(0, 5, 0)},
	}
}

// TestGetCatalog_BrowseSections verifies that browse mode returns the
// four fixed sections in order with their titles and types.
func TestGetCatalog_BrowseSections(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))

	result, err := engine.GetCatalog(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if result.SearchMode {
		t.Error("expected browse mode")
	}
	if len(result.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(result.Sections))
	}

	wantTypes := []string{SectionTopRated, SectionNewest, SectionTopFavored, SectionOldest}
	wantTitles := []string{"Melhor Avaliadas", "Mais Recentes", "Mais Favoritas", "Mais Antigas"}
	for i, section := range result.Sections {
		if section.Type != wantTypes[i] {
			t.Errorf("section %d: expected type %q, got %q", i, wantTypes[i], section.Type)
		}
		if section.Title != wantTitles[i] {
			t.Errorf("section %d: expected title %q, got %q", i, wantTitles[i], section.Title)
		}
	}
}

// TestGetCatalog_CategoryPriorityScenario is the worked ranking example:
// with categories [1,5] and limit 2, the NGO matching both categories
// ranks first and the unmatched NGO with the best raw rating is excluded.
func TestGetCatalog_CategoryPriorityScenario(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewInMemoryRepository([]Candidate{
		{ID: 3, Name: "A", Categories: []Category{{ID: 1, Name: "Saúde"}}, AverageRating: fptr(4.0), CreatedAt: base},
		{ID: 7, Name: "B", Categories: []Category{{ID: 1, Name: "Saúde"}, {ID: 5, Name: "Educação"}}, AverageRating: fptr(3.0), CreatedAt: base},
		{ID: 9, Name: "C", Categories: nil, AverageRating: fptr(5.0), CreatedAt: base},
	})
	engine := NewEngine(repo)

	result, err := engine.GetCatalog(context.Background(), Filter{CategoryIDs: []int64{1, 5}, Limit: 2})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}

	topRated := result.Sections[0]
	if len(topRated.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(topRated.Items))
	}
	if topRated.Items[0].ID != 7 {
		t.Errorf("expected id 7 first (two category matches), got %d", topRated.Items[0].ID)
	}
	if topRated.Items[1].ID != 3 {
		t.Errorf("expected id 3 second (one category match), got %d", topRated.Items[1].ID)
	}
}

// TestGetCatalog_SearchMode verifies the single-section search response:
// fixed title, rating-descending order, id tie-break, and no internal
// match count leaking into the JSON shape.
func TestGetCatalog_SearchMode(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))

	result, err := engine.GetCatalog(context.Background(), Filter{SearchTerm: "saude"})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if !result.SearchMode {
		t.Error("expected search mode")
	}
	if len(result.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(result.Sections))
	}

	section := result.Sections[0]
	if section.Title != `Resultados para "saude"` {
		t.Errorf("unexpected title %q", section.Title)
	}
	if section.Type != SectionSearch {
		t.Errorf("expected type %q, got %q", SectionSearch, section.Type)
	}

	data, err := json.Marshal(section)
	if err != nil {
		t.Fatalf("failed to marshal section: %v", err)
	}
	if strings.Contains(string(data), "matchCount") {
		t.Error("matchCount must not appear in the response shape")
	}
}

// TestGetCatalog_SearchOrdering verifies search results order by average
// rating descending with id ascending as tie-break.
func TestGetCatalog_SearchOrdering(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))

	// "a" matches every seeded name except "Instituto Viver Bem".
	result, err := engine.GetCatalog(context.Background(), Filter{SearchTerm: "a"})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}

	items := result.Sections[0].Items
	wantOrder := []int64{9, 14, 7, 11} // 5.0, 4.5, 3.0, unrated last
	if len(items) != len(wantOrder) {
		t.Fatalf("expected %d items, got %d", len(wantOrder), len(items))
	}
	for i, want := range wantOrder {
		if items[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, items[i].ID)
		}
	}
}

// TestGetCatalog_SearchMode_CategoryHardFilter verifies that in search
// mode a category filter restricts results instead of boosting them.
func TestGetCatalog_SearchMode_CategoryHardFilter(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))

	result, err := engine.GetCatalog(context.Background(), Filter{
		SearchTerm:  "a", // matches every seeded name
		CategoryIDs: []int64{8},
	})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}

	for _, item := range result.Sections[0].Items {
		found := false
		for _, c := range item.Categories {
			if c.ID == 8 {
				found = true
			}
		}
		if !found {
			t.Errorf("item %d lacks category 8; search-mode category filter must be a hard restriction", item.ID)
		}
	}
}

// TestGetCatalog_PaginationConsistency verifies that page slices agree
// with the fully sorted list for the same filter and data snapshot.
func TestGetCatalog_PaginationConsistency(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))
	filter := Filter{CategoryIDs: []int64{1, 5}}

	full, err := engine.GetCatalog(context.Background(), Filter{CategoryIDs: filter.CategoryIDs, Limit: 100})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	fullItems := full.Sections[0].Items

	var paged []Item
	for offset := 0; ; offset += 2 {
		page, err := engine.GetCatalog(context.Background(), Filter{CategoryIDs: filter.CategoryIDs, Limit: 2, Offset: offset})
		if err != nil {
			t.Fatalf("GetCatalog failed at offset %d: %v", offset, err)
		}
		items := page.Sections[0].Items
		if len(items) == 0 {
			break
		}
		paged = append(paged, items...)
	}

	if len(paged) != len(fullItems) {
		t.Fatalf("paged items %d != full items %d", len(paged), len(fullItems))
	}
	for i := range fullItems {
		if paged[i].ID != fullItems[i].ID {
			t.Errorf("position %d: paged id %d != full id %d", i, paged[i].ID, fullItems[i].ID)
		}
	}
}

// TestGetCatalog_SectionIndependence verifies that the four sections
// rank the same eligible set independently.
func TestGetCatalog_SectionIndependence(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))

	result, err := engine.GetCatalog(context.Background(), Filter{Limit: 100})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}

	memberships := make([]map[int64]bool, len(result.Sections))
	for i, section := range result.Sections {
		memberships[i] = make(map[int64]bool)
		for _, item := range section.Items {
			memberships[i][item.ID] = true
		}
	}
	for i := 1; i < len(memberships); i++ {
		if len(memberships[i]) != len(memberships[0]) {
			t.Errorf("section %d has %d items, section 0 has %d; eligible sets must match", i, len(memberships[i]), len(memberships[0]))
		}
	}

	newest := result.Sections[1].Items
	oldest := result.Sections[3].Items
	if len(newest) > 1 {
		if newest[0].ID != oldest[len(oldest)-1].ID {
			t.Error("newest-first and oldest-first orderings disagree on the extremes")
		}
	}
}

// TestGetCatalog_ErrorPropagation verifies the all-or-nothing join: a
// failing section query fails the whole browse call with the data-layer
// error unchanged.
func TestGetCatalog_ErrorPropagation(t *testing.T) {
	wantErr := errors.New("connection refused")
	engine := NewEngine(&failingRepo{err: wantErr})

	result, err := engine.GetCatalog(context.Background(), Filter{})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected data-layer error to propagate, got %v", err)
	}
	if result != nil {
		t.Error("expected no partial result on failure")
	}
}

// TestGetCatalog_OverFetchQuery verifies the over-fetch heuristic:
// max(limit*5, 50) rows with no database-side offset when a category
// filter is active, and exactly limit rows with the real offset when not.
func TestGetCatalog_OverFetchQuery(t *testing.T) {
	repo := &recordingRepo{inner: NewInMemoryRepository(seedCandidates())}
	engine := NewEngine(repo)

	_, err := engine.GetCatalog(context.Background(), Filter{CategoryIDs: []int64{1}, Limit: 3, Offset: 6})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	for _, q := range repo.recorded() {
		if q.Limit != 50 {
			t.Errorf("filtered section requested %d rows, expected max(3*5, 50) = 50", q.Limit)
		}
		if q.Offset != 0 {
			t.Errorf("filtered section used database offset %d, expected 0", q.Offset)
		}
	}

	repo2 := &recordingRepo{inner: NewInMemoryRepository(seedCandidates())}
	engine2 := NewEngine(repo2)
	_, err = engine2.GetCatalog(context.Background(), Filter{Limit: 3, Offset: 6})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	for _, q := range repo2.recorded() {
		if q.Limit != 3 {
			t.Errorf("unfiltered section requested %d rows, expected 3", q.Limit)
		}
		if q.Offset != 6 {
			t.Errorf("unfiltered section used offset %d, expected 6", q.Offset)
		}
	}

	// A larger page crosses the floor: limit 20 -> 100 rows.
	repo3 := &recordingRepo{inner: NewInMemoryRepository(seedCandidates())}
	engine3 := NewEngine(repo3)
	_, err = engine3.GetCatalog(context.Background(), Filter{CategoryIDs: []int64{1}, Limit: 20})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	for _, q := range repo3.recorded() {
		if q.Limit != 100 {
			t.Errorf("filtered section requested %d rows, expected 20*5 = 100", q.Limit)
		}
	}
}

// TestGetCatalog_DefaultLimits verifies the per-mode page size defaults.
func TestGetCatalog_DefaultLimits(t *testing.T) {
	repo := &recordingRepo{inner: NewInMemoryRepository(seedCandidates())}
	engine := NewEngine(repo)

	if _, err := engine.GetCatalog(context.Background(), Filter{}); err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	for _, q := range repo.recorded() {
		if q.Limit != DefaultBrowseLimit {
			t.Errorf("browse query limit = %d, expected default %d", q.Limit, DefaultBrowseLimit)
		}
	}

	repo2 := &recordingRepo{inner: NewInMemoryRepository(seedCandidates())}
	engine2 := NewEngine(repo2)
	if _, err := engine2.GetCatalog(context.Background(), Filter{SearchTerm: "esperança"}); err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	queries := repo2.recorded()
	if len(queries) != 1 {
		t.Fatalf("search mode issued %d queries, expected 1", len(queries))
	}
	if queries[0].Limit != DefaultSearchLimit {
		t.Errorf("search query limit = %d, expected default %d", queries[0].Limit, DefaultSearchLimit)
	}
}

// TestGetCatalog_UnratedSortsLast verifies that an NGO with no ratings
// sorts after all rated NGOs in the rating-descending section.
func TestGetCatalog_UnratedSortsLast(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(seedCandidates()))

	result, err := engine.GetCatalog(context.Background(), Filter{CategoryIDs: []int64{1, 5, 8}, Limit: 100})
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}

	topRated := result.Sections[0].Items
	// id 11 is the only unrated seeded NGO; with a single category match
	// it must come after all single-match rated NGOs.
	for i, item := range topRated {
		if item.ID != 11 {
			continue
		}
		for j := i + 1; j < len(topRated); j++ {
			t.Errorf("unrated NGO 11 at %d appears before NGO %d", i, topRated[j].ID)
		}
	}
}
