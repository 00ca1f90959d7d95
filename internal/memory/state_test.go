package memory

import (
	"testing"

	"core/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func sampleProducts() []model.Product {
	return []model.Product{
		{Title: "Logitech G502 HERO Gaming Mouse", Price: model.NewNumber(49.99), Rating: model.NewNumber(4.7)},
		{Title: "Razer Basilisk V3", Price: model.NewNumber(69.99), Rating: model.NewNumber(4.6)},
		{Title: "SteelSeries Rival 3", Price: model.NewNumber(29.99), Rating: model.NewNumber(4.4)},
	}
}

func TestUpdateFromIntentAdditive(t *testing.T) {
	m := NewChatMemory()

	m.UpdateFromIntent(&model.IntentRecord{
		Action:   model.ActionSearch,
		Category: "Gaming Mice",
		Brand:    model.StringList{"logitech"},
		PriceMax: model.NewNumber(80),
	})

	if m.Category != "gaming mice" {
		t.Errorf("Category = %q, want %q", m.Category, "gaming mice")
	}
	if m.PriceMax == nil || *m.PriceMax != 80 {
		t.Errorf("PriceMax = %v, want 80", m.PriceMax)
	}

	// A later turn that only adds a lower bound must not clear anything.
	m.UpdateFromIntent(&model.IntentRecord{
		Action:   model.ActionRefine,
		PriceMin: model.NewNumber(30),
	})

	if m.Category != "gaming mice" {
		t.Errorf("Category cleared by unrelated turn: %q", m.Category)
	}
	if len(m.Brand) != 1 || m.Brand[0] != "logitech" {
		t.Errorf("Brand cleared by unrelated turn: %v", m.Brand)
	}
	if m.PriceMax == nil || *m.PriceMax != 80 {
		t.Errorf("PriceMax cleared by unrelated turn: %v", m.PriceMax)
	}
	if m.PriceMin == nil || *m.PriceMin != 30 {
		t.Errorf("PriceMin = %v, want 30", m.PriceMin)
	}
	if m.LastAction != model.ActionRefine {
		t.Errorf("LastAction = %q, want %q", m.LastAction, model.ActionRefine)
	}
}

func TestUpdateFromIntentDefaultsAction(t *testing.T) {
	m := NewChatMemory()
	m.UpdateFromIntent(&model.IntentRecord{Category: "laptops"})

	if m.LastAction != model.ActionSearch {
		t.Errorf("LastAction = %q, want %q", m.LastAction, model.ActionSearch)
	}
}

func TestSaveProducts(t *testing.T) {
	m := NewChatMemory()
	m.SaveProducts(sampleProducts())

	if got := len(m.CurrentProducts()); got != 3 {
		t.Fatalf("CurrentProducts() = %d products, want 3", got)
	}
	if m.LastSelected == nil || m.LastSelected.Title != "Logitech G502 HERO Gaming Mouse" {
		t.Errorf("LastSelected = %v, want first product", m.LastSelected)
	}

	// A follow-up search replaces the current set but merges into the full
	// lookup: a title collision overwrites in place, new titles append.
	m.SaveProducts([]model.Product{
		{Title: "Razer Basilisk V3", Price: model.NewNumber(59.99)},
		{Title: "Corsair Katar Pro", Price: model.NewNumber(24.99)},
	})

	if got := len(m.CurrentProducts()); got != 2 {
		t.Errorf("CurrentProducts() = %d products, want 2", got)
	}

	all := m.AllProducts()
	if len(all) != 4 {
		t.Fatalf("AllProducts() = %d products, want 4", len(all))
	}
	wantOrder := []string{
		"Logitech G502 HERO Gaming Mouse",
		"Razer Basilisk V3",
		"SteelSeries Rival 3",
		"Corsair Katar Pro",
	}
	for i, title := range wantOrder {
		if all[i].Title != title {
			t.Errorf("AllProducts()[%d] = %q, want %q", i, all[i].Title, title)
		}
	}
	if price, _ := all[1].Price.Float(); price != 59.99 {
		t.Errorf("colliding title not overwritten: price = %v, want 59.99", price)
	}

	// Re-saving the same list must not grow the full lookup.
	m.SaveProducts(sampleProducts())
	if got := len(m.AllProducts()); got != 4 {
		t.Errorf("AllProducts() after re-save = %d products, want 4", got)
	}
}

func TestSaveProductsEmptyKeepsSelection(t *testing.T) {
	m := NewChatMemory()
	m.SaveProducts(sampleProducts())
	selected := m.LastSelected

	m.SaveProducts(nil)

	if len(m.CurrentProducts()) != 0 {
		t.Errorf("CurrentProducts() = %v, want empty", m.CurrentProducts())
	}
	if m.LastSelected != selected {
		t.Errorf("LastSelected changed on empty save")
	}
	if got := len(m.AllProducts()); got != 3 {
		t.Errorf("AllProducts() = %d products, want 3", got)
	}
}

func TestReset(t *testing.T) {
	m := NewChatMemory()
	m.UpdateFromIntent(&model.IntentRecord{Action: model.ActionSearch, Category: "mice"})
	m.SaveProducts(sampleProducts())
	m.LikeProduct(m.LastSelected)
	m.Greeted = true

	m.Reset()

	if m.Category != "" || m.LastSelected != nil || m.Greeted {
		t.Errorf("Reset() left state behind: %+v", m)
	}
	if len(m.AllProducts()) != 0 || len(m.CurrentProducts()) != 0 {
		t.Errorf("Reset() left cached products behind")
	}
	if len(m.Profile.LikedBrands) != 0 {
		t.Errorf("Reset() left profile data behind: %v", m.Profile.LikedBrands)
	}
}

func TestResolveReference(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		selected  bool
		wantTitle string
		wantNil   bool
	}{
		{
			name:      "Anaphor resolves to selection",
			ref:       "this",
			selected:  true,
			wantTitle: "Logitech G502 HERO Gaming Mouse",
		},
		{
			name:     "Anaphor with no selection",
			ref:      "that",
			selected: false,
			wantNil:  true,
		},
		{
			name:      "Substring match",
			ref:       "razer",
			selected:  true,
			wantTitle: "Razer Basilisk V3",
		},
		{
			name:      "Case and whitespace folded",
			ref:       "  STEELSERIES  ",
			selected:  true,
			wantTitle: "SteelSeries Rival 3",
		},
		{
			name:     "No match",
			ref:      "nonexistent",
			selected: true,
			wantNil:  true,
		},
		{
			name:     "Empty reference",
			ref:      "",
			selected: true,
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewChatMemory()
			m.SaveProducts(sampleProducts())
			if !tt.selected {
				m.LastSelected = nil
			}

			got := m.ResolveReference(tt.ref)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ResolveReference(%q) = %v, want nil", tt.ref, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ResolveReference(%q) = nil, want %q", tt.ref, tt.wantTitle)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("ResolveReference(%q) = %q, want %q", tt.ref, got.Title, tt.wantTitle)
			}
		})
	}
}

func TestResolveReferencePrefersCurrent(t *testing.T) {
	m := NewChatMemory()
	m.SaveProducts([]model.Product{{Title: "Logitech MX Master 3S"}})
	m.SaveProducts([]model.Product{{Title: "Logitech G502 HERO Gaming Mouse"}})

	got := m.ResolveReference("logitech")
	if got == nil || got.Title != "Logitech G502 HERO Gaming Mouse" {
		t.Errorf("ResolveReference() = %v, want current-set match first", got)
	}

	// Only the older product matches after narrowing the reference; the
	// full lookup still finds it.
	got = m.ResolveReference("mx master")
	if got == nil || got.Title != "Logitech MX Master 3S" {
		t.Errorf("ResolveReference() = %v, want full-lookup match", got)
	}
}

func TestLikeProduct(t *testing.T) {
	m := NewChatMemory()
	p := &model.Product{Title: "Logitech G502 HERO Wireless Gaming Mouse", Price: model.NewNumber(49.99)}

	m.LikeProduct(p)

	if !m.Profile.LikedBrands["logitech"] {
		t.Errorf("LikedBrands missing %q: %v", "logitech", m.Profile.LikedBrands)
	}
	for _, kw := range []string{"wireless", "gaming", "mouse"} {
		if !m.Profile.LikedFeatures[kw] {
			t.Errorf("LikedFeatures missing %q", kw)
		}
	}
	if avg, ok := m.Profile.AveragePrice(); !ok || avg != 49.99 {
		t.Errorf("AveragePrice() = %v, %v, want 49.99, true", avg, ok)
	}
}

func TestDislikeProduct(t *testing.T) {
	m := NewChatMemory()
	p := &model.Product{Title: "Razer Basilisk V3", Price: model.NewNumber(69.99)}

	m.DislikeProduct(p)

	if !m.Profile.DislikedBrands["razer"] {
		t.Errorf("DislikedBrands missing %q", "razer")
	}
	if !m.Profile.DislikedFeatures["basilisk"] {
		t.Errorf("DislikedFeatures missing %q", "basilisk")
	}
	if _, ok := m.Profile.AveragePrice(); ok {
		t.Errorf("dislike must not record a price")
	}
}

func TestFeedbackNilIsNoOp(t *testing.T) {
	m := NewChatMemory()
	m.LikeProduct(nil)
	m.DislikeProduct(nil)

	if len(m.Profile.LikedBrands) != 0 || len(m.Profile.DislikedBrands) != 0 {
		t.Errorf("nil feedback mutated the profile")
	}
}

func TestConflictingFeedbackKeepsBoth(t *testing.T) {
	m := NewChatMemory()
	p := &model.Product{Title: "Logitech G502 HERO"}

	m.LikeProduct(p)
	m.DislikeProduct(p)

	if !m.Profile.LikedBrands["logitech"] || !m.Profile.DislikedBrands["logitech"] {
		t.Errorf("conflicting feedback should land in both sets: liked=%v disliked=%v",
			m.Profile.LikedBrands, m.Profile.DislikedBrands)
	}
}

func TestFiltersIncludesSort(t *testing.T) {
	m := NewChatMemory()
	m.UpdateFromIntent(&model.IntentRecord{
		Action: model.ActionSort,
		SortBy: model.SortByPrice,
	})
	m.Brand = []string{"logitech"}
	m.PriceMax = floatPtr(100)

	f := m.Filters()
	if f.SortBy != model.SortByPrice {
		t.Errorf("Filters().SortBy = %q, want %q", f.SortBy, model.SortByPrice)
	}
	if len(f.Brand) != 1 || f.PriceMax == nil || *f.PriceMax != 100 {
		t.Errorf("Filters() = %+v, want brand and price carried over", f)
	}
}
