package service

import (
	"context"
	"fmt"
	"log"

	"core/internal/model"
	"core/internal/utils"
)

// SignalExtractor turns a free-text message plus a context digest into a
// structured intent record. Implementations never surface an error: on any
// internal failure they return the default record (a plain search).
type SignalExtractor interface {
	Extract(ctx context.Context, message, contextDigest string) *model.IntentRecord
}

const extractorSystemPrompt = `You are a shopping assistant that extracts structured shopping intent from a user query.

Always return ONLY a valid JSON object with these exact keys:
{
  "action": "search" | "compare" | "sort" | "refine",
  "category": string | null,
  "brand": string | list | null,
  "price_min": float | null,
  "price_max": float | null,
  "sort_by": "price" | "rating" | null,
  "features": list of strings | null,
  "products": list of strings | null,
  "intent": "gifting" | "personal use" | "work" | "gaming" | "budget shopping" | "luxury shopping" | null,
  "tone": "casual" | "enthusiastic" | "professional" | "fun" | null
}

Instructions:
- For queries like "only Logitech", set brand = "Logitech".
- If user says "under 2000", set price_max = 2000.
- If user says "highest rated", set sort_by = "rating".
- If user says "show me more" or "more like this", set action = "refine".
- If they say "compare this with Lumsburry", set action = "compare" and products = ["this", "lumsburry"].
- Always extract product names into the "products" list if possible.
- Try to infer the intent (e.g., gifting, gaming, personal use, work).
- Try to infer the tone (e.g., casual, enthusiastic, professional) based on how they express themselves.
- Use "null" if unsure about any field.
- Do not output any explanation or markdown. Just valid JSON.`

// LLMExtractor implements SignalExtractor on an OpenAI-compatible chat model.
type LLMExtractor struct {
	ai *OpenAIClient
}

// NewLLMExtractor creates a new LLM-backed signal extractor
func NewLLMExtractor(ai *OpenAIClient) *LLMExtractor {
	return &LLMExtractor{ai: ai}
}

// Extract parses the message into an intent record. Failures degrade to the
// default record rather than aborting the turn.
func (e *LLMExtractor) Extract(ctx context.Context, message, contextDigest string) *model.IntentRecord {
	if !e.ai.IsEnabled() {
		log.Printf("OpenAI is not enabled, falling back to default intent. Please set OPENAI_API_KEY environment variable.")
		return model.DefaultIntentRecord()
	}

	prompt := fmt.Sprintf("Previous context:\n%s\nCurrent query: %s", contextDigest, message)

	resp, err := e.ai.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: extractorSystemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		log.Printf("Intent extraction failed: %v", err)
		return model.DefaultIntentRecord()
	}

	if len(resp.Choices) == 0 {
		log.Printf("Intent extraction returned no choices")
		return model.DefaultIntentRecord()
	}

	var rec model.IntentRecord
	content := resp.Choices[0].Message.Content
	if err := utils.ParseAIJSON(content, &rec); err != nil {
		log.Printf("Failed to parse intent response: %v, content: %s", err, content)
		return model.DefaultIntentRecord()
	}

	if err := validateIntentRecord(&rec); err != nil {
		log.Printf("Intent validation failed: %v", err)
		return model.DefaultIntentRecord()
	}

	return &rec
}

// validateIntentRecord normalizes and validates the model's output. Unknown
// enum values are cleared rather than rejected; only contradictory numerics
// fail the record.
func validateIntentRecord(rec *model.IntentRecord) error {
	switch rec.Action {
	case model.ActionSearch, model.ActionCompare, model.ActionSort, model.ActionRefine:
	default:
		rec.Action = model.ActionSearch
	}

	switch rec.SortBy {
	case "", model.SortByPrice, model.SortByRating:
	default:
		rec.SortBy = ""
	}

	min, okMin := rec.PriceMin.Float()
	max, okMax := rec.PriceMax.Float()
	if okMin && okMax && min > max {
		return fmt.Errorf("price_min (%f) cannot be greater than price_max (%f)", min, max)
	}

	return nil
}
