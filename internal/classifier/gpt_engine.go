package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/chat-ingest/internal/models"
	"go.uber.org/zap"
)

type gptResponse struct {
	Primary    string `json:"primary"`
	Labels     []struct {
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
	Confidence float64 `json:"confidence"`
}

// GPTEngine implements Engine on top of the OpenAI chat completion API.
type GPTEngine struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTEngine(apiKey, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTEngine {
	return &GPTEngine{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (e *GPTEngine) Classify(ctx context.Context, text string) (models.Classification, error) {
	prompt := fmt.Sprintf(`Classify the user request below into one primary intent category and
zero or more secondary intent labels, each with a confidence between 0 and 1.

Return only a JSON object with this structure:
{
    "primary": "primary_category",
    "labels": [{"value": "label", "confidence": 0.0}, ...],
    "confidence": 0.0
}

User request: %s`, text)

	resp, err := e.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   e.maxTokens,
			Temperature: float32(e.temperature),
		},
	)
	if err != nil {
		return models.Classification{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Classification{}, fmt.Errorf("chat completion: empty response")
	}

	var parsed gptResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		e.logger.Error("failed to parse engine response",
			zap.Error(err),
			zap.String("response", content))
		return models.Classification{}, fmt.Errorf("parse engine response: %w", err)
	}

	result := models.Classification{
		Primary:    normalizeValue(parsed.Primary),
		Confidence: parsed.Confidence,
		Labels:     make([]models.ScoredLabel, 0, len(parsed.Labels)),
	}
	for _, l := range parsed.Labels {
		result.Labels = append(result.Labels, models.ScoredLabel{
			Value:      normalizeValue(l.Value),
			Confidence: l.Confidence,
		})
	}
	return result, nil
}

// normalizeValue folds engine output into lower_snake label values so that
// near-duplicates like "Food Order" and "food order" collapse in the adapter.
func normalizeValue(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.Join(strings.Fields(v), "_")
}
