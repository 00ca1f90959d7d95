package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"core/internal/memory"
	"core/internal/model"
	"core/internal/recommend"
)

// Fixed response texts. The exact wording is part of the observable
// behavior and is pinned by the end-to-end tests.
const (
	welcomePrefix = "🛒 Welcome to your shopping assistant! How can I help you today?\n\n"

	helpText = `ℹ️ I can help you with:
- Searching for products
- Sorting and filtering
- Comparing two items
- Recommending the best item
- Tracking what you like/dislike
- Refining results when you're unhappy

Try things like:
→ "Show me wireless gaming mice under $100"
→ "Which one is best?"
→ "Compare Logitech and Razer"
→ "I don't like this"`

	likeAck = "👍 Got it! I'll remember you liked this one."

	apologyNoRecommend     = "⚠️ No products to recommend. Try searching first."
	apologyRecommendFailed = "⚠️ Couldn't find a recommendation right now."
	apologyNothingToLike   = "⚠️ No product currently selected to like."
	apologyNoSelection     = "⚠️ You haven't selected any product yet. Start with a search."
	apologyLostSelection   = "⚠️ Hmm, couldn't locate that product in my list."
	apologyOutOfOptions    = "😕 That was the last one I had. Try searching again!"
	apologyNeedCategory    = "⚠️ I need a category first. Try saying what you're shopping for."
	apologyNothingBetter   = "😕 I couldn't find anything better. Maybe tweak the filters?"
	apologyMissingCategory = "⚠️ Please mention what you're looking for."
	apologyNoMatches       = "😕 I couldn't find matching products. Try adjusting your request."
	apologyCompareNeedTwo  = "⚠️ Please name two products you'd like to compare."
	apologyCompareMissing  = "⚠️ Couldn't find one or both items to compare."
	apologyNoProducts      = "⚠️ No products to show yet. Try searching first."
	apologyInternal        = "⚠️ Something went wrong on my end. Please try again."
)

// maxReplyProducts caps how many products a single reply carries.
const maxReplyProducts = 3

var helpPhrases = []string{"help", "what can you do", "commands"}

var bestPhrases = []string{
	"which one is best",
	"which is best",
	"what do you recommend",
	"recommend one",
	"suggest one",
	"your top pick",
}

// Assistant is the dialogue controller: a state machine over one turn,
// evaluated as an ordered guard chain. Fixed-phrase triggers take priority
// over the general extraction-driven path.
type Assistant struct {
	store      *memory.Store
	extractor  SignalExtractor
	searcher   ProductSearcher
	replier    ReplyComposer
	maxResults int
	guards     []guard
}

// turnResult is one branch's outcome: reply text plus up to 3 products.
type turnResult struct {
	text     string
	products []model.Product
}

// guard pairs a trigger predicate with its handler and the apology the
// branch degrades to when something unexpected fails inside it.
type guard struct {
	name    string
	apology string
	match   func(lowered string) bool
	handle  func(ctx context.Context, message, lowered string, mem *memory.ChatMemory) turnResult
}

// NewAssistant creates the dialogue controller
func NewAssistant(
	store *memory.Store,
	extractor SignalExtractor,
	searcher ProductSearcher,
	replier ReplyComposer,
	maxResults int,
) *Assistant {
	a := &Assistant{
		store:      store,
		extractor:  extractor,
		searcher:   searcher,
		replier:    replier,
		maxResults: maxResults,
	}

	// Guard order is behavior: the first matching guard wins and no guard
	// is retried.
	a.guards = []guard{
		{
			name:    "help",
			apology: apologyInternal,
			match: func(lowered string) bool {
				for _, phrase := range helpPhrases {
					if lowered == phrase {
						return true
					}
				}
				return false
			},
			handle: a.handleHelp,
		},
		{
			name:    "recommend",
			apology: apologyRecommendFailed,
			match:   containsAny(bestPhrases),
			handle:  a.handleRecommend,
		},
		{
			name:    "like",
			apology: apologyNothingToLike,
			match:   containsAny([]string{"i like this"}),
			handle:  a.handleLike,
		},
		{
			name:    "dislike-one",
			apology: apologyNoSelection,
			match:   containsAny([]string{"i don't like this", "i dont like this"}),
			handle:  a.handleDislikeOne,
		},
		{
			name:    "dislike-all",
			apology: apologyNothingBetter,
			match:   containsAny([]string{"i don't like any", "i dont like any"}),
			handle:  a.handleDislikeAll,
		},
		{
			name:    "general",
			apology: apologyNoProducts,
			match:   func(string) bool { return true },
			handle:  a.handleGeneral,
		},
	}

	return a
}

func containsAny(phrases []string) func(string) bool {
	return func(lowered string) bool {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				return true
			}
		}
		return false
	}
}

// Respond processes one (message, session id) turn. It never fails: every
// branch degrades to its fixed apology, and the session store stays usable
// whatever happens inside a single turn.
func (a *Assistant) Respond(ctx context.Context, message, sessionID string) *model.ChatResponse {
	sess := a.store.GetOrCreate(sessionID)
	sess.Lock()
	defer sess.Unlock()
	mem := sess.Memory

	isNewUser := !mem.Greeted
	mem.Greeted = true

	lowered := strings.ToLower(message)

	var result turnResult
	for _, g := range a.guards {
		if !g.match(lowered) {
			continue
		}
		result = a.runGuard(ctx, g, message, lowered, mem)
		break
	}

	text := result.text
	if isNewUser {
		text = welcomePrefix + text
	}

	products := result.products
	if len(products) > maxReplyProducts {
		products = products[:maxReplyProducts]
	}
	if products == nil {
		products = []model.Product{}
	}

	return &model.ChatResponse{
		Response:  strings.TrimSpace(text),
		Products:  products,
		SessionID: sessionID,
	}
}

// runGuard executes one guard's handler, degrading a panic to the guard's
// apology so a broken branch never takes down the turn or the process.
func (a *Assistant) runGuard(ctx context.Context, g guard, message, lowered string, mem *memory.ChatMemory) (result turnResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Guard %q failed: %v", g.name, r)
			result = turnResult{text: g.apology}
		}
	}()
	return g.handle(ctx, message, lowered, mem)
}

func (a *Assistant) handleHelp(_ context.Context, _, _ string, _ *memory.ChatMemory) turnResult {
	return turnResult{text: helpText}
}

func (a *Assistant) handleRecommend(ctx context.Context, message, _ string, mem *memory.ChatMemory) turnResult {
	full := mem.AllProducts()
	if len(full) == 0 {
		return turnResult{text: apologyNoRecommend}
	}

	best := recommend.BestOf(full, mem.Profile)
	if best == nil {
		return turnResult{text: apologyRecommendFailed}
	}

	mem.Select(*best)
	reply := a.replier.Compose(ctx, message, []model.Product{*best}, model.ActionRefine, mem.Intent, mem.Tone)
	return turnResult{text: reply, products: []model.Product{*best}}
}

func (a *Assistant) handleLike(_ context.Context, _, _ string, mem *memory.ChatMemory) turnResult {
	if mem.LastSelected == nil {
		return turnResult{text: apologyNothingToLike}
	}
	mem.LikeProduct(mem.LastSelected)
	return turnResult{text: likeAck}
}

func (a *Assistant) handleDislikeOne(ctx context.Context, message, _ string, mem *memory.ChatMemory) turnResult {
	full := mem.AllProducts()
	current := mem.LastSelected
	if current == nil || len(full) == 0 {
		return turnResult{text: apologyNoSelection}
	}

	idx := -1
	for i, p := range full {
		if p.Key() == current.Key() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return turnResult{text: apologyLostSelection}
	}

	mem.DislikeProduct(current)

	// Move on to the next item in the full cache's insertion order rather
	// than rescoring: a dislike means "show me something else", not "pick
	// the new optimum".
	if idx+1 >= len(full) {
		return turnResult{text: apologyOutOfOptions}
	}

	next := full[idx+1]
	mem.Select(next)
	reply := a.replier.Compose(ctx, message, []model.Product{next}, model.ActionRefine, mem.Intent, mem.Tone)
	return turnResult{text: reply, products: []model.Product{next}}
}

func (a *Assistant) handleDislikeAll(ctx context.Context, message, _ string, mem *memory.ChatMemory) turnResult {
	if mem.Category == "" {
		return turnResult{text: apologyNeedCategory}
	}

	products := a.searcher.Search(ctx, mem.Category, mem.Filters(), a.maxResults)
	if len(products) == 0 {
		return turnResult{text: apologyNothingBetter}
	}

	mem.SaveProducts(products)
	top := topProducts(products)
	reply := a.replier.Compose(ctx, message, top, model.ActionRefine, mem.Intent, mem.Tone)
	return turnResult{text: reply, products: top}
}

func (a *Assistant) handleGeneral(ctx context.Context, message, _ string, mem *memory.ChatMemory) turnResult {
	rec := a.extractor.Extract(ctx, message, contextDigest(mem))
	mem.UpdateFromIntent(rec)
	action := mem.LastAction

	var products []model.Product

	switch action {
	case model.ActionSearch, model.ActionRefine, model.ActionSort:
		if mem.Category == "" {
			return turnResult{text: apologyMissingCategory}
		}
		products = a.searcher.Search(ctx, mem.Category, mem.Filters(), a.maxResults)
		if len(products) == 0 {
			return turnResult{text: apologyNoMatches}
		}
		mem.SaveProducts(products)

	case model.ActionCompare:
		if len(rec.Products) < 2 {
			return turnResult{text: apologyCompareNeedTwo}
		}
		first := mem.ResolveReference(rec.Products[0])
		second := mem.ResolveReference(rec.Products[1])
		if first == nil || second == nil {
			return turnResult{text: apologyCompareMissing}
		}
		// A compare is a direct pairwise selection; it bypasses the
		// monotonic merge of SaveProducts.
		products = []model.Product{*first, *second}
	}

	if len(products) == 0 {
		return turnResult{text: apologyNoProducts}
	}

	top := topProducts(products)
	reply := a.replier.Compose(ctx, message, top, action, mem.Intent, mem.Tone)
	return turnResult{text: reply, products: top}
}

// contextDigest summarizes the session's known category and filters for the
// signal extractor.
func contextDigest(mem *memory.ChatMemory) string {
	var filters []string
	if len(mem.Brand) > 0 {
		filters = append(filters, fmt.Sprintf("brand=%s", strings.Join(mem.Brand, ",")))
	}
	if mem.PriceMin != nil {
		filters = append(filters, fmt.Sprintf("price_min=%g", *mem.PriceMin))
	}
	if mem.PriceMax != nil {
		filters = append(filters, fmt.Sprintf("price_max=%g", *mem.PriceMax))
	}
	if len(mem.Features) > 0 {
		filters = append(filters, fmt.Sprintf("features=%s", strings.Join(mem.Features, ",")))
	}
	if mem.SortBy != "" {
		filters = append(filters, fmt.Sprintf("sort_by=%s", mem.SortBy))
	}

	return fmt.Sprintf("Category: %s\nFilters: %s\n", mem.Category, strings.Join(filters, " "))
}

func topProducts(products []model.Product) []model.Product {
	if len(products) > maxReplyProducts {
		return products[:maxReplyProducts]
	}
	return products
}
