package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/adars/invoice-ai/internal/models"
)

// Gemini extracts structured invoice data from a page image using the
// Google Gemini vision API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewGemini creates the Gemini extraction backend.
func NewGemini(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(model),
		logger: logger,
	}, nil
}

func (g *Gemini) Name() string { return BackendGemini }

// Extract submits one page image and returns the normalized record.
func (g *Gemini) Extract(ctx context.Context, pageImage []byte) (*models.RawExtractedRecord, error) {
	parts := []genai.Part{
		genai.ImageData("png", pageImage),
		genai.Text(extractionPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &Failure{Backend: BackendGemini, Reason: err.Error()}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &Failure{Backend: BackendGemini, Reason: "empty response"}
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content.WriteString(string(text))
		}
	}

	record, err := parseRecord(content.String())
	if err != nil {
		g.logger.Debug("Unparsable model response", zap.String("content", content.String()))
		return nil, &Failure{Backend: BackendGemini, Reason: err.Error()}
	}

	g.logger.Debug("Page extracted",
		zap.String("partner", record.Partner),
		zap.Int("line_count", len(record.Lines)))

	return record, nil
}

// Close releases the underlying client connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}
