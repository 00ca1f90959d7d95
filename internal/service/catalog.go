package service

import (
	"context"
	"log"
	"strings"

	"core/internal/model"
	"core/internal/repository"
)

// CatalogSearcher implements ProductSearcher against the local PostgreSQL
// product catalog. When the AI client is available the query is embedded and
// results are ordered by vector distance; otherwise full-text ranking is
// used. Either way, failures degrade to an empty result list.
type CatalogSearcher struct {
	repo *repository.ProductRepository
	ai   *OpenAIClient
}

// NewCatalogSearcher creates a new catalog-backed product searcher
func NewCatalogSearcher(repo *repository.ProductRepository, ai *OpenAIClient) *CatalogSearcher {
	return &CatalogSearcher{repo: repo, ai: ai}
}

// Search queries the catalog for the category under the given filters.
func (s *CatalogSearcher) Search(ctx context.Context, category string, filters model.Filters, maxResults int) []model.Product {
	// Semantic ordering only makes sense without an explicit sort preference.
	if filters.SortBy == "" && s.ai.IsEnabled() {
		queryText := category
		if len(filters.Features) > 0 {
			queryText += " " + strings.Join(filters.Features, " ")
		}

		embeddings, err := s.ai.CreateEmbeddings(ctx, []string{queryText})
		if err == nil && len(embeddings) == 1 {
			products, err := s.repo.SemanticSearchProducts(ctx, embeddings[0], category, filters, maxResults)
			if err == nil && len(products) > 0 {
				return products
			}
			if err != nil {
				log.Printf("Semantic catalog search failed, falling back to full-text: %v", err)
			}
		} else if err != nil {
			log.Printf("Query embedding failed, falling back to full-text: %v", err)
		}
	}

	products, err := s.repo.SearchProducts(ctx, category, filters, maxResults)
	if err != nil {
		log.Printf("Catalog search failed: %v", err)
		return nil
	}
	return products
}
