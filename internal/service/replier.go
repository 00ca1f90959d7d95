package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"core/internal/model"
)

// ReplyComposer turns a product shortlist plus the resolved action into a
// human-readable sentence. Implementations never surface an error: on any
// internal failure they return a fixed generic fallback string.
type ReplyComposer interface {
	Compose(ctx context.Context, message string, products []model.Product, action, intent, tone string) string
}

// fallbackReply is returned whenever reply composition fails.
const fallbackReply = "Here are some product options. Let me know if you'd like to refine them!"

const replierSystemPrompt = `You are a friendly, concise shopping assistant.

You will receive:
- The user query
- The detected shopping intent (e.g., gaming, gifting, personal use)
- The tone of the user (e.g., professional, casual, enthusiastic)
- A list of top 1-3 matching products (with title, price, rating)
- The user action (search | compare | refine | sort)

Your job is to generate a short, helpful natural-language response that:
- Is aware of the user's intent and adapts accordingly
- Matches the tone of the user (e.g., if they are casual, be casual too)
- Clearly explains what you found or compared
- Highlights useful details like brand, rating, or value
- NEVER lists exact product specs - those will be printed separately
- NEVER make up or hallucinate products

Be friendly but brief. Encourage refinement or comparison.`

// LLMReplier implements ReplyComposer on an OpenAI-compatible chat model.
type LLMReplier struct {
	ai *OpenAIClient
}

// NewLLMReplier creates a new LLM-backed reply composer
func NewLLMReplier(ai *OpenAIClient) *LLMReplier {
	return &LLMReplier{ai: ai}
}

// replyProductSummary is the compact product view handed to the model.
type replyProductSummary struct {
	Title  string       `json:"title"`
	Price  model.Number `json:"price"`
	Rating model.Number `json:"rating"`
}

// Compose generates the reply text for one turn. Failures degrade to the
// fixed fallback string rather than aborting the turn.
func (r *LLMReplier) Compose(ctx context.Context, message string, products []model.Product, action, intent, tone string) string {
	if !r.ai.IsEnabled() {
		return fallbackReply
	}

	if len(products) > 3 {
		products = products[:3]
	}
	summaries := make([]replyProductSummary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, replyProductSummary{Title: p.Title, Price: p.Price, Rating: p.Rating})
	}

	payload := map[string]any{
		"query":    message,
		"action":   action,
		"products": summaries,
	}
	if intent != "" {
		payload["intent"] = intent
	}
	if tone != "" {
		payload["tone"] = tone
	}

	prompt, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Reply composition failed: %v", err)
		return fallbackReply
	}

	resp, err := r.ai.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: replierSystemPrompt},
			{Role: "user", Content: string(prompt)},
		},
	})
	if err != nil {
		log.Printf("Reply composition failed: %v", err)
		return fallbackReply
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return fallbackReply
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
