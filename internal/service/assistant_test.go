package service

import (
	"context"
	"strings"
	"testing"

	"core/internal/memory"
	"core/internal/model"
)

// stubExtractor returns a canned record per call, falling back to the
// default search record when the queue runs dry.
type stubExtractor struct {
	records []*model.IntentRecord
	calls   int
}

func (s *stubExtractor) Extract(_ context.Context, _, _ string) *model.IntentRecord {
	s.calls++
	if len(s.records) == 0 {
		return model.DefaultIntentRecord()
	}
	rec := s.records[0]
	if len(s.records) > 1 {
		s.records = s.records[1:]
	}
	return rec
}

type stubSearcher struct {
	products []model.Product
	calls    int

	lastCategory string
	lastFilters  model.Filters
}

func (s *stubSearcher) Search(_ context.Context, category string, filters model.Filters, _ int) []model.Product {
	s.calls++
	s.lastCategory = category
	s.lastFilters = filters
	return s.products
}

// stubReplier echoes the action so tests can see which path composed the
// reply, without exercising a language model.
type stubReplier struct{}

func (stubReplier) Compose(_ context.Context, _ string, products []model.Product, action, _, _ string) string {
	return "reply:" + action
}

// panicExtractor simulates a broken collaborator escaping its own guard.
type panicExtractor struct{}

func (panicExtractor) Extract(_ context.Context, _, _ string) *model.IntentRecord {
	panic("extractor blew up")
}

func catalog() []model.Product {
	return []model.Product{
		{Title: "Logitech G502 HERO", Price: model.NewNumber(49.99), Rating: model.NewNumber(4.7)},
		{Title: "Razer Basilisk V3", Price: model.NewNumber(69.99), Rating: model.NewNumber(4.6)},
		{Title: "SteelSeries Rival 3", Price: model.NewNumber(29.99), Rating: model.NewNumber(4.4)},
		{Title: "Corsair Katar Pro", Price: model.NewNumber(24.99), Rating: model.NewNumber(4.2)},
	}
}

func newTestAssistant(extractor SignalExtractor, searcher ProductSearcher) *Assistant {
	return NewAssistant(memory.NewStore(), extractor, searcher, stubReplier{}, 10)
}

func searchRecord(category string) *model.IntentRecord {
	return &model.IntentRecord{Action: model.ActionSearch, Category: category}
}

func TestRespondWelcomeOnce(t *testing.T) {
	a := newTestAssistant(&stubExtractor{}, &stubSearcher{})
	ctx := context.Background()

	first := a.Respond(ctx, "help", "s1")
	if !strings.Contains(first.Response, "Welcome to your shopping assistant") {
		t.Errorf("first turn missing welcome: %q", first.Response)
	}
	if !strings.Contains(first.Response, "I can help you with") {
		t.Errorf("help text missing: %q", first.Response)
	}
	if len(first.Products) != 0 {
		t.Errorf("help turn returned products: %v", first.Products)
	}

	second := a.Respond(ctx, "help", "s1")
	if strings.Contains(second.Response, "Welcome to your shopping assistant") {
		t.Errorf("welcome repeated on second turn: %q", second.Response)
	}

	// A different session is greeted independently.
	other := a.Respond(ctx, "help", "s2")
	if !strings.Contains(other.Response, "Welcome to your shopping assistant") {
		t.Errorf("new session not greeted: %q", other.Response)
	}
}

func TestRespondHelpRequiresExactPhrase(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{records: []*model.IntentRecord{searchRecord("mice")}}, searcher)

	// "help me find a mouse" is not the help command; it takes the general
	// path and triggers a search.
	resp := a.Respond(context.Background(), "help me find a mouse", "s1")
	if searcher.calls != 1 {
		t.Fatalf("searcher calls = %d, want 1", searcher.calls)
	}
	if strings.Contains(resp.Response, "I can help you with") {
		t.Errorf("help text returned for a non-help message: %q", resp.Response)
	}
}

func TestRespondSearchFlow(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{records: []*model.IntentRecord{
		{
			Action:   model.ActionSearch,
			Category: "gaming mice",
			PriceMax: model.NewNumber(100),
		},
	}}, searcher)

	resp := a.Respond(context.Background(), "show me gaming mice under $100", "s1")

	if !strings.HasSuffix(resp.Response, "reply:search") {
		t.Errorf("Response = %q, want search reply", resp.Response)
	}
	if len(resp.Products) != 3 {
		t.Errorf("Products = %d, want capped at 3", len(resp.Products))
	}
	if searcher.lastCategory != "gaming mice" {
		t.Errorf("searched category = %q, want %q", searcher.lastCategory, "gaming mice")
	}
	if searcher.lastFilters.PriceMax == nil || *searcher.lastFilters.PriceMax != 100 {
		t.Errorf("price filter not passed to searcher: %+v", searcher.lastFilters)
	}
	if resp.SessionID != "s1" {
		t.Errorf("SessionID = %q, want %q", resp.SessionID, "s1")
	}
}

func TestRespondSearchWithoutCategory(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{}, searcher)

	resp := a.Respond(context.Background(), "show me something", "s1")

	if !strings.HasSuffix(resp.Response, apologyMissingCategory) {
		t.Errorf("Response = %q, want %q", resp.Response, apologyMissingCategory)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called without a category")
	}
}

func TestRespondSearchNoMatches(t *testing.T) {
	a := newTestAssistant(&stubExtractor{records: []*model.IntentRecord{searchRecord("mice")}}, &stubSearcher{})

	resp := a.Respond(context.Background(), "show me mice", "s1")
	if !strings.HasSuffix(resp.Response, apologyNoMatches) {
		t.Errorf("Response = %q, want %q", resp.Response, apologyNoMatches)
	}
	if len(resp.Products) != 0 {
		t.Errorf("Products = %v, want empty", resp.Products)
	}
}

func TestRespondRecommend(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{records: []*model.IntentRecord{searchRecord("mice")}}, searcher)
	ctx := context.Background()

	a.Respond(ctx, "show me mice", "s1")
	resp := a.Respond(ctx, "which one is best?", "s1")

	if !strings.HasSuffix(resp.Response, "reply:refine") {
		t.Errorf("Response = %q, want refine reply", resp.Response)
	}
	if len(resp.Products) != 1 {
		t.Fatalf("Products = %d, want 1", len(resp.Products))
	}
	// With an empty profile the rating carries the score.
	if resp.Products[0].Title != "Logitech G502 HERO" {
		t.Errorf("recommended %q, want highest-rated product", resp.Products[0].Title)
	}

	// The recommendation becomes the live selection.
	liked := a.Respond(ctx, "I like this", "s1")
	if liked.Response != likeAck {
		t.Errorf("Response = %q, want %q", liked.Response, likeAck)
	}
}

func TestRespondRecommendBeforeSearch(t *testing.T) {
	a := newTestAssistant(&stubExtractor{}, &stubSearcher{})

	resp := a.Respond(context.Background(), "which one is best?", "s1")
	if !strings.HasSuffix(resp.Response, apologyNoRecommend) {
		t.Errorf("Response = %q, want %q", resp.Response, apologyNoRecommend)
	}
}

func TestRespondLikeWithoutSelection(t *testing.T) {
	a := newTestAssistant(&stubExtractor{}, &stubSearcher{})

	resp := a.Respond(context.Background(), "I like this", "s1")
	if !strings.HasSuffix(resp.Response, apologyNothingToLike) {
		t.Errorf("Response = %q, want %q", resp.Response, apologyNothingToLike)
	}
}

func TestRespondDislikeOneAdvances(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{records: []*model.IntentRecord{searchRecord("mice")}}, searcher)
	ctx := context.Background()

	a.Respond(ctx, "show me mice", "s1")

	// Selection starts at the first result; each dislike steps to the next
	// product in the order they were first seen.
	wantNext := []string{"Razer Basilisk V3", "SteelSeries Rival 3", "Corsair Katar Pro"}
	for _, want := range wantNext {
		resp := a.Respond(ctx, "I don't like this", "s1")
		if len(resp.Products) != 1 || resp.Products[0].Title != want {
			t.Fatalf("dislike advanced to %v, want %q", resp.Products, want)
		}
	}

	// Past the last product there is nothing left to offer.
	resp := a.Respond(ctx, "I don't like this", "s1")
	if resp.Response != apologyOutOfOptions {
		t.Errorf("Response = %q, want %q", resp.Response, apologyOutOfOptions)
	}

	sess := a.store.Get("s1")
	if !sess.Memory.Profile.DislikedBrands["logitech"] || !sess.Memory.Profile.DislikedBrands["razer"] {
		t.Errorf("dislikes not recorded: %v", sess.Memory.Profile.DislikedBrands)
	}
}

func TestRespondDislikeOneWithoutSelection(t *testing.T) {
	a := newTestAssistant(&stubExtractor{}, &stubSearcher{})

	resp := a.Respond(context.Background(), "I dont like this", "s1")
	if !strings.HasSuffix(resp.Response, apologyNoSelection) {
		t.Errorf("Response = %q, want %q", resp.Response, apologyNoSelection)
	}
}

func TestRespondDislikeAll(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{records: []*model.IntentRecord{searchRecord("mice")}}, searcher)
	ctx := context.Background()

	a.Respond(ctx, "show me mice", "s1")
	resp := a.Respond(ctx, "I don't like any of these", "s1")

	if searcher.calls != 2 {
		t.Errorf("searcher calls = %d, want a fresh search", searcher.calls)
	}
	if !strings.HasSuffix(resp.Response, "reply:refine") {
		t.Errorf("Response = %q, want refine reply", resp.Response)
	}
	if len(resp.Products) != 3 {
		t.Errorf("Products = %d, want 3", len(resp.Products))
	}
}

func TestRespondDislikeAllWithoutCategory(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	a := newTestAssistant(&stubExtractor{}, searcher)

	resp := a.Respond(context.Background(), "I don't like any of these", "s1")
	if !strings.HasSuffix(resp.Response, apologyNeedCategory) {
		t.Errorf("Response = %q, want %q", resp.Response, apologyNeedCategory)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called without a category")
	}
}

func TestRespondCompare(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	extractor := &stubExtractor{records: []*model.IntentRecord{
		searchRecord("mice"),
		{Action: model.ActionCompare, Products: []string{"logitech", "razer"}},
	}}
	a := newTestAssistant(extractor, searcher)
	ctx := context.Background()

	a.Respond(ctx, "show me mice", "s1")
	resp := a.Respond(ctx, "compare logitech and razer", "s1")

	if !strings.HasSuffix(resp.Response, "reply:compare") {
		t.Errorf("Response = %q, want compare reply", resp.Response)
	}
	if len(resp.Products) != 2 {
		t.Fatalf("Products = %d, want 2", len(resp.Products))
	}
	if resp.Products[0].Title != "Logitech G502 HERO" || resp.Products[1].Title != "Razer Basilisk V3" {
		t.Errorf("compared %v", resp.Products)
	}
}

func TestRespondCompareMissingReferences(t *testing.T) {
	tests := []struct {
		name string
		rec  *model.IntentRecord
		want string
	}{
		{
			name: "Fewer than two references",
			rec:  &model.IntentRecord{Action: model.ActionCompare, Products: []string{"logitech"}},
			want: apologyCompareNeedTwo,
		},
		{
			name: "Unknown reference",
			rec:  &model.IntentRecord{Action: model.ActionCompare, Products: []string{"logitech", "nonexistent"}},
			want: apologyCompareMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &stubExtractor{records: []*model.IntentRecord{searchRecord("mice"), tt.rec}}
			a := newTestAssistant(extractor, &stubSearcher{products: catalog()})
			ctx := context.Background()

			a.Respond(ctx, "show me mice", "s1")
			resp := a.Respond(ctx, "compare them", "s1")
			if resp.Response != tt.want {
				t.Errorf("Response = %q, want %q", resp.Response, tt.want)
			}
		})
	}
}

func TestRespondGuardRecovers(t *testing.T) {
	a := newTestAssistant(panicExtractor{}, &stubSearcher{})
	ctx := context.Background()

	resp := a.Respond(ctx, "show me mice", "s1")
	if !strings.HasSuffix(resp.Response, apologyNoProducts) {
		t.Errorf("Response = %q, want the general guard's apology", resp.Response)
	}

	// The session survives the failed turn.
	next := a.Respond(ctx, "help", "s1")
	if !strings.Contains(next.Response, "I can help you with") {
		t.Errorf("session unusable after recovered turn: %q", next.Response)
	}
}

func TestRespondFiltersPersistAcrossTurns(t *testing.T) {
	searcher := &stubSearcher{products: catalog()}
	extractor := &stubExtractor{records: []*model.IntentRecord{
		{Action: model.ActionSearch, Category: "mice", Brand: model.StringList{"logitech"}},
		{Action: model.ActionSort, SortBy: model.SortByPrice},
	}}
	a := newTestAssistant(extractor, searcher)
	ctx := context.Background()

	a.Respond(ctx, "show me logitech mice", "s1")
	a.Respond(ctx, "sort by price", "s1")

	if searcher.lastCategory != "mice" {
		t.Errorf("category lost between turns: %q", searcher.lastCategory)
	}
	if len(searcher.lastFilters.Brand) != 1 || searcher.lastFilters.Brand[0] != "logitech" {
		t.Errorf("brand filter lost between turns: %+v", searcher.lastFilters)
	}
	if searcher.lastFilters.SortBy != model.SortByPrice {
		t.Errorf("sort preference not applied: %+v", searcher.lastFilters)
	}
}
