package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Over-fetch tuning for category-filtered browse sections. When a
// category filter is active the database ordering alone cannot produce
// the final ranking (match count dominates), so the engine fetches
// max(limit*OverFetchMultiplier, OverFetchFloor) candidates with no
// database-side offset and re-ranks in memory. Beyond this bound a
// match-prioritized page may return fewer than limit items even if more
// eligible candidates exist.
const (
	DefaultOverFetchMultiplier = 5
	DefaultOverFetchFloor      = 50
)

// sectionSpec fixes the title, type, and natural ordering of one browse
// section.
type sectionSpec struct {
	title     string
	typ       string
	field     SortField
	direction Direction
}

// browseSections are the four fixed browse-mode sections, in response
// order.
var browseSections = [4]sectionSpec{
	{title: "Melhor Avaliadas", typ: SectionTopRated, field: SortByAverageRating, direction: Desc},
	{title: "Mais Recentes", typ: SectionNewest, field: SortByCreatedAt, direction: Desc},
	{title: "Mais Favoritas", typ: SectionTopFavored, field: SortByRatingCount, direction: Desc},
	{title: "Mais Antigas", typ: SectionOldest, field: SortByCreatedAt, direction: Asc},
}

// EngineConfig holds tunables for the ranking engine.
type EngineConfig struct {
	// OverFetchMultiplier scales the page size when over-fetching for a
	// category-filtered section. Defaults to DefaultOverFetchMultiplier.
	OverFetchMultiplier int
	// OverFetchFloor is the minimum over-fetch size. Defaults to
	// DefaultOverFetchFloor.
	OverFetchFloor int
}

// Engine produces ordered, paginated catalog sections from the
// repository. It is read-only and holds no per-request state; a single
// Engine is shared across requests.
type Engine struct {
	repo    Repository
	config  EngineConfig
	metrics *Metrics
}

// NewEngine creates an Engine with default tuning.
func NewEngine(repo Repository) *Engine {
	return NewEngineWithConfig(repo, EngineConfig{})
}

// NewEngineWithConfig creates an Engine with explicit tuning. Zero
// config values fall back to the defaults.
func NewEngineWithConfig(repo Repository, config EngineConfig) *Engine {
	if config.OverFetchMultiplier <= 0 {
		config.OverFetchMultiplier = DefaultOverFetchMultiplier
	}
	if config.OverFetchFloor <= 0 {
		config.OverFetchFloor = DefaultOverFetchFloor
	}
	return &Engine{repo: repo, config: config}
}

// SetMetrics attaches Prometheus metrics. Optional; a nil receiver field
// disables recording.
func (e *Engine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// GetCatalog returns the catalog for the given filter. A non-blank
// search term selects search mode (one section); otherwise browse mode
// (four sections computed concurrently).
//
// Data-layer failures propagate unchanged: no retries, no partial
// results.
func (e *Engine) GetCatalog(ctx context.Context, f Filter) (*Result, error) {
	if f.SearchMode() {
		section, err := e.search(ctx, f)
		if err != nil {
			return nil, err
		}
		return &Result{Sections: []Section{section}, SearchMode: true}, nil
	}
	sections, err := e.browse(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Result{Sections: sections}, nil
}

// search runs search mode: a single section of verified NGOs whose name
// or category name contains the term. A category filter, if present, is
// a hard restriction here, not a ranking boost. Pagination happens at
// the data layer and ordering is average rating desc, id asc.
func (e *Engine) search(ctx context.Context, f Filter) (Section, error) {
	term := strings.TrimSpace(f.SearchTerm)
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	candidates, err := e.repo.ListVerified(ctx, Query{
		SearchTerm:  term,
		CategoryIDs: f.CategoryIDs,
		OrderBy:     SortByAverageRating,
		Direction:   Desc,
		Limit:       limit,
		Offset:      f.Offset,
	})
	if err != nil {
		return Section{}, err
	}

	return Section{
		Title: fmt.Sprintf("Resultados para %q", f.SearchTerm),
		Type:  SectionSearch,
		Items: toItems(candidates),
	}, nil
}

// browse runs browse mode: the four fixed sections, fetched
// concurrently. The join is all-or-nothing: if any section fails the
// whole call fails and no partial result is returned.
func (e *Engine) browse(ctx context.Context, f Filter) ([]Section, error) {
	var (
		wg       sync.WaitGroup
		sections [len(browseSections)]Section
		errs     [len(browseSections)]error
	)

	for i, spec := range browseSections {
		wg.Add(1)
		go func(i int, spec sectionSpec) {
			defer wg.Done()
			sections[i], errs[i] = e.section(ctx, f, spec)
		}(i, spec)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return sections[:], nil
}

// section computes one browse section.
//
// Without a category filter the data-layer ordering (natural field plus
// id ascending) is trusted as-is and pagination happens in the query.
// With a category filter the engine over-fetches, re-ranks in memory
// with the three-key comparator, and slices the page out of the sorted
// result.
func (e *Engine) section(ctx context.Context, f Filter, spec sectionSpec) (Section, error) {
	start := time.Now()
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultBrowseLimit
	}

	filtered := f.HasCategoryFilter()
	fetchLimit := limit
	fetchOffset := f.Offset
	if filtered {
		fetchLimit = max(limit*e.config.OverFetchMultiplier, e.config.OverFetchFloor)
		fetchOffset = 0
		if e.metrics != nil {
			e.metrics.RecordOverFetch(spec.typ)
		}
	}

	candidates, err := e.repo.ListVerified(ctx, Query{
		CategoryIDs: f.CategoryIDs,
		OrderBy:     spec.field,
		Direction:   spec.direction,
		Limit:       fetchLimit,
		Offset:      fetchOffset,
	})
	if err != nil {
		return Section{}, err
	}

	items := make([]rankedItem, len(candidates))
	for i, c := range candidates {
		items[i] = rankedItem{Candidate: c, matchCount: overlapCount(c.Categories, f.CategoryIDs)}
	}

	if filtered {
		sortRanked(items, spec.field, spec.direction)
		items = page(items, f.Offset, limit)
	}

	section := Section{
		Title: spec.title,
		Type:  spec.typ,
		Items: make([]Item, len(items)),
	}
	for i, it := range items {
		section.Items[i] = toItem(it.Candidate)
	}

	if e.metrics != nil {
		e.metrics.ObserveSectionDuration(spec.typ, time.Since(start).Seconds())
	}
	return section, nil
}

// page slices [offset, offset+limit) out of the sorted items, clamped to
// the available range.
func page(items []rankedItem, offset, limit int) []rankedItem {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

// toItem strips a candidate down to the external item shape.
func toItem(c Candidate) Item {
	categories := make([]Category, len(c.Categories))
	copy(categories, c.Categories)
	return Item{
		ID:         c.ID,
		Name:       c.Name,
		AvatarURL:  c.AvatarURL,
		Categories: categories,
		CreatedAt:  c.CreatedAt,
	}
}

func toItems(candidates []Candidate) []Item {
	items := make([]Item, len(candidates))
	for i, c := range candidates {
		items[i] = toItem(c)
	}
	return items
}
