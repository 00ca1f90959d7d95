package memory

import (
	"strings"

	"core/internal/model"
	"core/internal/utils"
)

// anaphors are the references that resolve directly to the last selection.
var anaphors = map[string]bool{
	"this":     true,
	"that":     true,
	"previous": true,
	"one":      true,
}

// PreferenceProfile accumulates like/dislike signals for one session. Sets
// only grow within a session; a brand or keyword may sit in both the liked
// and disliked sets if feedback conflicts, and scoring applies both sides.
type PreferenceProfile struct {
	LikedBrands      map[string]bool
	DislikedBrands   map[string]bool
	LikedFeatures    map[string]bool
	DislikedFeatures map[string]bool
	PriceHistory     []float64
}

// AveragePrice returns the mean of the observed price history and whether
// any prices have been observed.
func (p *PreferenceProfile) AveragePrice() (float64, bool) {
	if len(p.PriceHistory) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range p.PriceHistory {
		sum += v
	}
	return sum / float64(len(p.PriceHistory)), true
}

// ChatMemory is the per-session conversation state: shopping context,
// product caches, and the learned preference profile. It is not safe for
// concurrent use; the session store serializes turns per session.
type ChatMemory struct {
	Category   string
	Brand      []string
	PriceMin   *float64
	PriceMax   *float64
	Features   []string
	SortBy     string
	LastSortBy string
	Intent     string
	Tone       string
	LastAction string

	// current holds the most recent result set; full holds every product
	// ever seen this session (title-keyed, last write wins on collisions).
	current *productCache
	full    *productCache

	LastSelected *model.Product
	Greeted      bool
	Profile      *PreferenceProfile
}

// NewChatMemory creates a fresh conversation state for a new session.
func NewChatMemory() *ChatMemory {
	m := &ChatMemory{}
	m.Reset()
	return m
}

// Reset reinitializes the full conversation state, including the preference
// profile and the greeted flag.
func (m *ChatMemory) Reset() {
	*m = ChatMemory{
		current: newProductCache(),
		full:    newProductCache(),
		Profile: &PreferenceProfile{
			LikedBrands:      make(map[string]bool),
			DislikedBrands:   make(map[string]bool),
			LikedFeatures:    make(map[string]bool),
			DislikedFeatures: make(map[string]bool),
		},
	}
}

// UpdateFromIntent merges one turn's intent record into the state. Filters
// are additive: only non-absent fields overwrite, an unrelated turn never
// clears anything.
func (m *ChatMemory) UpdateFromIntent(rec *model.IntentRecord) {
	if rec == nil {
		return
	}

	if rec.Category != "" {
		m.Category = strings.ToLower(rec.Category)
	}
	if len(rec.Brand) > 0 {
		m.Brand = append([]string(nil), rec.Brand...)
	}
	if v, ok := rec.PriceMin.Float(); ok {
		m.PriceMin = &v
	}
	if v, ok := rec.PriceMax.Float(); ok {
		m.PriceMax = &v
	}
	if len(rec.Features) > 0 {
		m.Features = append([]string(nil), rec.Features...)
	}
	if rec.SortBy != "" {
		m.SortBy = rec.SortBy
		m.LastSortBy = rec.SortBy
	}
	if rec.Intent != "" {
		m.Intent = rec.Intent
	}
	if rec.Tone != "" {
		m.Tone = rec.Tone
	}

	if rec.Action != "" {
		m.LastAction = rec.Action
	} else {
		m.LastAction = model.ActionSearch
	}
}

// Filters returns the current filter set, including the sort preference, in
// the shape the product search providers take.
func (m *ChatMemory) Filters() model.Filters {
	return model.Filters{
		Brand:    m.Brand,
		PriceMin: m.PriceMin,
		PriceMax: m.PriceMax,
		Features: m.Features,
		SortBy:   m.SortBy,
	}
}

// SaveProducts replaces the current cache with the given list, merges it
// into the full cache (newer overwrites on title collision, order of first
// appearance is kept), and selects the first product if any.
func (m *ChatMemory) SaveProducts(products []model.Product) {
	m.current = newProductCache()
	for _, p := range products {
		m.current.put(p)
		m.full.put(p)
	}
	if len(products) > 0 {
		first := products[0]
		m.LastSelected = &first
	}
}

// CurrentProducts returns the most recent result set in insertion order.
func (m *ChatMemory) CurrentProducts() []model.Product {
	return m.current.values()
}

// AllProducts returns every product seen this session in insertion order.
func (m *ChatMemory) AllProducts() []model.Product {
	return m.full.values()
}

// Select marks p as the session's selected product and makes it the
// singleton current result set.
func (m *ChatMemory) Select(p model.Product) {
	m.LastSelected = &p
	m.current = newProductCache()
	m.current.put(p)
}

// ResolveReference maps a free-text product mention to a concrete product.
// Anaphoric references ("this", "that", ...) resolve to the last selection
// even when none exists; otherwise titles in the current cache, then the
// full cache, are scanned for substring containment in insertion order.
// Containment is deliberately loose rather than token-aware.
func (m *ChatMemory) ResolveReference(ref string) *model.Product {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil
	}

	if anaphors[ref] {
		return m.LastSelected
	}

	if p := m.current.findByTitleSubstring(ref); p != nil {
		return p
	}
	return m.full.findByTitleSubstring(ref)
}

// LikeProduct folds a positive signal into the preference profile: the
// product's brand guess and title keywords join the liked sets, and a
// parseable price joins the price history. A nil product is a no-op.
func (m *ChatMemory) LikeProduct(p *model.Product) {
	if p == nil {
		return
	}

	if brand := utils.ExtractBrand(*p); brand != "" {
		m.Profile.LikedBrands[brand] = true
	}
	for kw := range utils.ExtractKeywords(p.Title) {
		m.Profile.LikedFeatures[kw] = true
	}
	if price, ok := p.Price.Float(); ok {
		m.Profile.PriceHistory = append(m.Profile.PriceHistory, price)
	}
}

// DislikeProduct folds a negative signal into the preference profile. The
// price history is not touched. A nil product is a no-op.
func (m *ChatMemory) DislikeProduct(p *model.Product) {
	if p == nil {
		return
	}

	if brand := utils.ExtractBrand(*p); brand != "" {
		m.Profile.DislikedBrands[brand] = true
	}
	for kw := range utils.ExtractKeywords(p.Title) {
		m.Profile.DislikedFeatures[kw] = true
	}
}

// productCache is an insertion-ordered, case-folded-title-keyed product map.
type productCache struct {
	order []string
	items map[string]model.Product
}

func newProductCache() *productCache {
	return &productCache{items: make(map[string]model.Product)}
}

// put inserts or overwrites by title key. An overwritten product keeps its
// original position in the iteration order.
func (c *productCache) put(p model.Product) {
	key := p.Key()
	if key == "" {
		return
	}
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = p
}

func (c *productCache) values() []model.Product {
	out := make([]model.Product, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.items[key])
	}
	return out
}

func (c *productCache) findByTitleSubstring(ref string) *model.Product {
	for _, key := range c.order {
		if strings.Contains(key, ref) {
			p := c.items[key]
			return &p
		}
	}
	return nil
}
