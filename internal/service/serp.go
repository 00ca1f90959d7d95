package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"core/internal/config"
	"core/internal/model"
)

// ProductSearcher finds products for a category under the session's filter
// set. Implementations never surface an error: on any internal failure they
// return an empty list.
type ProductSearcher interface {
	Search(ctx context.Context, category string, filters model.Filters, maxResults int) []model.Product
}

// SerpAPISearcher implements ProductSearcher against the SerpAPI shopping
// engines (Walmart by default).
type SerpAPISearcher struct {
	config     *config.SerpAPIConfig
	httpClient *http.Client
}

// NewSerpAPISearcher creates a new SerpAPI product searcher
func NewSerpAPISearcher(cfg *config.SerpAPIConfig) *SerpAPISearcher {
	return &SerpAPISearcher{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// serpProduct mirrors one organic result from the Walmart engine.
type serpProduct struct {
	Title        string `json:"title"`
	PrimaryOffer struct {
		OfferPrice model.Number `json:"offer_price"`
	} `json:"primary_offer"`
	Rating         model.Number `json:"rating"`
	Reviews        *int         `json:"reviews"`
	ProductPageURL string       `json:"product_page_url"`
	Thumbnail      string       `json:"thumbnail"`
}

type serpResponse struct {
	OrganicResults []serpProduct `json:"organic_results"`
	Error          string        `json:"error,omitempty"`
}

// Search queries the configured engine. The category is the query text; the
// brand filter is folded into it since the engine has no brand parameter.
func (s *SerpAPISearcher) Search(ctx context.Context, category string, filters model.Filters, maxResults int) []model.Product {
	if !s.config.Enabled {
		log.Printf("SerpAPI is not enabled - product search will return nothing. Set SERPAPI_KEY environment variable.")
		return nil
	}

	query := category
	if len(filters.Brand) > 0 {
		query = strings.Join(filters.Brand, " ") + " " + query
	}

	params := url.Values{}
	params.Set("engine", s.config.Engine)
	params.Set("query", query)
	params.Set("api_key", s.config.APIKey)
	params.Set("sort", serpSort(filters.SortBy))
	if filters.PriceMin != nil {
		params.Set("min_price", strconv.FormatFloat(*filters.PriceMin, 'f', -1, 64))
	}
	if filters.PriceMax != nil {
		params.Set("max_price", strconv.FormatFloat(*filters.PriceMax, 'f', -1, 64))
	}

	endpoint := fmt.Sprintf("%s/search.json?%s", s.config.APIBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		log.Printf("SerpAPI request build failed: %v", err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("SerpAPI fetch failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("SerpAPI read failed: %v", err)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("SerpAPI request failed with status %d: %s", resp.StatusCode, string(body))
		return nil
	}

	var payload serpResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("SerpAPI response parse failed: %v", err)
		return nil
	}
	if payload.Error != "" {
		log.Printf("SerpAPI error: %s", payload.Error)
		return nil
	}

	products := make([]model.Product, 0, len(payload.OrganicResults))
	for _, item := range payload.OrganicResults {
		if item.Title == "" {
			continue
		}
		products = append(products, model.Product{
			Title:     item.Title,
			Price:     item.PrimaryOffer.OfferPrice,
			Rating:    item.Rating,
			Reviews:   item.Reviews,
			URL:       item.ProductPageURL,
			Thumbnail: item.Thumbnail,
		})
		if len(products) >= maxResults {
			break
		}
	}

	return products
}

// serpSort maps the session sort preference onto the engine's sort values.
func serpSort(sortBy string) string {
	switch sortBy {
	case model.SortByPrice:
		return "price_low"
	case model.SortByRating:
		return "rating_high"
	default:
		return "best_match"
	}
}
