package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"cardgen/internal/models"
)

// AIConfig holds the generation endpoint settings.
type AIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// AIService turns flashcard requests into single chat-completion calls
// against an OpenAI-compatible endpoint.
type AIService struct {
	client *openai.Client
	cfg    AIConfig
	logger *zap.Logger
}

// NewAIService returns models.ErrConfiguration when the credential is absent.
func NewAIService(cfg AIConfig, logger *zap.Logger) (*AIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", models.ErrConfiguration)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", models.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &AIService{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.Named("ai"),
	}, nil
}

func (s *AIService) buildRequest(req models.FlashcardRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: BuildSystemPrompt(req.CardCount, req.AnswerLength),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.RawText,
			},
		},
		Stream:      false,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		TopP:        s.cfg.TopP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

// GenerateFlashcards validates the request, issues exactly one call and
// parses the reply. Errors wrap models.ErrValidation, models.ErrTransport or
// models.ErrMalformedResponse. Nothing is retried.
func (s *AIService) GenerateFlashcards(ctx context.Context, req models.FlashcardRequest) (models.FlashcardSet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := s.logger.With(
		zap.String("model", s.cfg.Model),
		zap.Int("card_count", req.CardCount),
		zap.String("answer_length", string(req.AnswerLength)),
		zap.Int("text_length", len(req.RawText)),
	)
	log.Info("requesting flashcards")

	resp, err := s.client.CreateChatCompletion(ctx, s.buildRequest(req))
	if err != nil {
		log.Warn("flashcard request failed",
			zap.Int("upstream_status", UpstreamStatus(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: request flashcards: %w", models.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: service returned no choices", models.ErrMalformedResponse)
	}

	content := resp.Choices[0].Message.Content
	set, err := ParseFlashcards(content)
	if err != nil {
		log.Warn("flashcard payload rejected",
			zap.Int("payload_length", len(content)),
			zap.Error(err))
		return nil, err
	}

	if len(set) < req.CardCount {
		log.Debug("service returned fewer cards than requested", zap.Int("returned", len(set)))
	}
	log.Info("flashcards generated",
		zap.Int("returned", len(set)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return set, nil
}

// UpstreamStatus extracts the HTTP status code from a client error, or 0.
func UpstreamStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
