package extractor

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/models"
)

// OpenAI extracts structured invoice data from a page image using the
// OpenAI vision chat API.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAI creates the OpenAI extraction backend.
func NewOpenAI(apiKey, model string, logger *zap.Logger) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (o *OpenAI) Name() string { return BackendOpenAI }

// Close is a no-op; the OpenAI client holds no persistent connection.
func (o *OpenAI) Close() error { return nil }

// Extract submits one page image and returns the normalized record.
func (o *OpenAI) Extract(ctx context.Context, pageImage []byte) (*models.RawExtractedRecord, error) {
	encoded := base64.StdEncoding.EncodeToString(pageImage)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   4096,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:image/png;base64,%s", encoded),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &Failure{Backend: BackendOpenAI, Reason: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return nil, &Failure{Backend: BackendOpenAI, Reason: "empty response"}
	}

	content := resp.Choices[0].Message.Content
	record, err := parseRecord(content)
	if err != nil {
		o.logger.Debug("Unparsable model response", zap.String("content", content))
		return nil, &Failure{Backend: BackendOpenAI, Reason: err.Error()}
	}

	o.logger.Debug("Page extracted",
		zap.String("partner", record.Partner),
		zap.Int("line_count", len(record.Lines)))

	return record, nil
}
