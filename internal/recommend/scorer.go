package recommend

import (
	"math"
	"sort"

	"core/internal/memory"
	"core/internal/model"
	"core/internal/utils"
)

// Scoring weights. The feature and brand terms are deliberately asymmetric:
// a disliked keyword costs less than a liked one earns.
const (
	brandBonus     = 10.0
	brandPenalty   = 10.0
	featureBonus   = 2.0
	featurePenalty = 1.0
	priceWeight    = 2.0
)

// Score computes the preference-weighted desirability of a product. All
// terms contribute independently: a brand in both the liked and disliked
// sets earns the bonus and pays the penalty. Missing or unparseable numeric
// fields contribute nothing.
func Score(p model.Product, profile *memory.PreferenceProfile) float64 {
	var score float64

	if brand := utils.ExtractBrand(p); brand != "" {
		if profile.LikedBrands[brand] {
			score += brandBonus
		}
		if profile.DislikedBrands[brand] {
			score -= brandPenalty
		}
	}

	for kw := range utils.ExtractKeywords(p.Title) {
		if profile.LikedFeatures[kw] {
			score += featureBonus
		}
		if profile.DislikedFeatures[kw] {
			score -= featurePenalty
		}
	}

	// Relative distance from the average observed price. The denominator is
	// floored at 1 to guard against averages near zero.
	if price, ok := p.Price.Float(); ok {
		if avg, ok := profile.AveragePrice(); ok {
			score -= math.Abs(price-avg) / math.Max(avg, 1) * priceWeight
		}
	}

	if rating, ok := p.Rating.Float(); ok {
		score += rating
	}

	return score
}

// BestOf returns the highest-scoring product, or nil for an empty list.
// Ties break by input order: the first maximal element wins.
func BestOf(products []model.Product, profile *memory.PreferenceProfile) *model.Product {
	if len(products) == 0 {
		return nil
	}

	best := products[0]
	bestScore := Score(best, profile)
	for _, p := range products[1:] {
		if s := Score(p, profile); s > bestScore {
			best = p
			bestScore = s
		}
	}
	return &best
}

// Rerank returns the full input ordered by descending score. The sort is
// stable, so equal scores keep their relative input order. The input slice
// is not modified.
func Rerank(products []model.Product, profile *memory.PreferenceProfile) []model.Product {
	type scored struct {
		product model.Product
		score   float64
	}

	ranked := make([]scored, len(products))
	for i, p := range products {
		ranked[i] = scored{product: p, score: Score(p, profile)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]model.Product, len(ranked))
	for i, s := range ranked {
		out[i] = s.product
	}
	return out
}
