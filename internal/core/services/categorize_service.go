package services

import (
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// ChatCompleter is the slice of the OpenAI client the categorizer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// categoryKeywords drives the heuristic fallback. First matching keyword
// wins, checked in this order.
var categoryKeywords = []struct {
	category domain.IssueCategory
	keywords []string
}{
	{domain.CategoryPothole, []string{"pothole", "crater", "road surface"}},
	{domain.CategoryStreetlight, []string{"streetlight", "street light", "lamp"}},
	{domain.CategoryWaterLeak, []string{"water leak", "pipe", "leaking", "burst"}},
	{domain.CategoryGarbage, []string{"garbage", "trash", "waste", "litter", "dump"}},
	{domain.CategoryDrainage, []string{"drain", "sewer", "flood", "waterlogging"}},
	{domain.CategoryElectricity, []string{"electric", "power", "wire", "transformer"}},
	{domain.CategorySanitation, []string{"sanitation", "toilet", "hygiene"}},
	{domain.CategoryTraffic, []string{"traffic", "signal", "congestion", "parking"}},
	{domain.CategoryRoad, []string{"road", "street", "pavement", "footpath"}},
}

// CategorizeService suggests an issue category from the report text. It
// asks the LLM first and falls back to keyword matching when the API is
// unconfigured, fails, or returns an unknown label.
type CategorizeService struct {
	client ChatCompleter
	logger *slog.Logger
}

var _ ports.Categorizer = (*CategorizeService)(nil)

// NewCategorizeService creates a categorizer. A nil client disables the
// LLM path entirely and every call uses the keyword heuristic.
func NewCategorizeService(client ChatCompleter, logger *slog.Logger) *CategorizeService {
	return &CategorizeService{
		client: client,
		logger: logger.With("component", "categorizer"),
	}
}

// Categorize returns a category for the given report text. It never fails:
// any LLM problem degrades to the keyword heuristic, which itself degrades
// to the "other" category.
func (s *CategorizeService) Categorize(ctx context.Context, title, description string) domain.IssueCategory {
	if s.client == nil {
		return KeywordCategory(title, description)
	}

	labels := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		labels[i] = string(c)
	}

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleSystem,
					Content: "You classify civic issue reports into exactly one category. " +
						"Respond with only the category name, nothing else. Valid categories: " +
						strings.Join(labels, ", ") + ".",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: "Title: " + title + "\nDescription: " + description,
				},
			},
			MaxTokens:   10,
			N:           1,
			Temperature: 0, // Deterministic labels
		},
	)
	if err != nil {
		s.logger.Warn("categorization request failed, using keyword fallback", "error", err)
		return KeywordCategory(title, description)
	}

	if len(resp.Choices) == 0 {
		return KeywordCategory(title, description)
	}

	label := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	if domain.IsValidCategory(label) {
		return domain.IssueCategory(label)
	}

	s.logger.Warn("categorization returned unknown label, using keyword fallback", "label", label)
	return KeywordCategory(title, description)
}

// KeywordCategory is the deterministic heuristic: scan title+description
// for known keywords, first match wins, default "other".
func KeywordCategory(title, description string) domain.IssueCategory {
	text := strings.ToLower(title + " " + description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryOther
}
