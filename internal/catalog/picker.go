package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MaxCategories caps how many categories one listing may carry.
const MaxCategories = 3

// DebounceDelay is how long the picker waits for the search input to
// settle before hitting the backend.
const DebounceDelay = 300 * time.Millisecond

// CategorySearcher is the backend slice the picker queries.
type CategorySearcher interface {
	ListCategoriesByName(ctx context.Context, name string) ([]Category, error)
}

// Picker manages a listing's category selection: debounced free-text
// search against the backend, at most MaxCategories attached, duplicates
// rejected.
type Picker struct {
	searcher CategorySearcher
	delay    time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	selected []Category

	// onResults receives the outcome of each executed (settled) search.
	onResults func(results []Category, err error)
}

func NewPicker(searcher CategorySearcher, onResults func([]Category, error)) *Picker {
	return &Picker{
		searcher:  searcher,
		delay:     DebounceDelay,
		onResults: onResults,
	}
}

// Input registers a keystroke's worth of search text. The backend query
// fires only after the input has been quiet for the debounce window;
// earlier pending queries are dropped.
func (p *Picker) Input(ctx context.Context, term string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	trimmed := strings.TrimSpace(term)
	p.timer = time.AfterFunc(p.delay, func() {
		results, err := p.searcher.ListCategoriesByName(ctx, trimmed)
		if p.onResults != nil {
			p.onResults(results, err)
		}
	})
}

// Search queries the backend immediately, bypassing the debounce. Used by
// the HTTP surface, where the client owns keystroke timing.
func (p *Picker) Search(ctx context.Context, term string) ([]Category, error) {
	return p.searcher.ListCategoriesByName(ctx, strings.TrimSpace(term))
}

// Select attaches a category. Duplicates and selections beyond
// MaxCategories are no-ops, reported by the return value.
func (p *Picker) Select(category Category) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.selected) >= MaxCategories {
		return false
	}
	for _, existing := range p.selected {
		if existing.ID == category.ID {
			return false
		}
	}
	p.selected = append(p.selected, category)
	return true
}

func (p *Picker) Remove(categoryID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.selected {
		if existing.ID == categoryID {
			p.selected = append(p.selected[:i], p.selected[i+1:]...)
			return
		}
	}
}

func (p *Picker) Selected() []Category {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Category, len(p.selected))
	copy(out, p.selected)
	return out
}

// Close drops any pending debounced query.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
