// Package extractor defines the contract over interchangeable structured-
// extraction services and its backend implementations. A backend turns one
// page image into a RawExtractedRecord or fails as a whole; it never returns
// a partially populated record.
package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/models"
)

// Backend is the extraction service contract. Extract is a blocking network
// call; callers bound it with a per-call timeout on ctx. Close releases any
// client connection when the process shuts down.
type Backend interface {
	Extract(ctx context.Context, pageImage []byte) (*models.RawExtractedRecord, error)
	Name() string
	Close() error
}

// Failure is the error every backend returns when the remote service is
// unreachable, times out, or produces unusable output.
type Failure struct {
	Backend string
	Reason  string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extraction failed (%s): %s", f.Backend, f.Reason)
}

// Backend identifiers accepted in configuration.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config selects and parameterizes one backend for a run. Backends are never
// mixed within a single document.
type Config struct {
	Backend string
	OpenAI  OpenAIConfig
	Gemini  GeminiConfig
}

// OpenAIConfig holds the OpenAI vision backend parameters.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// GeminiConfig holds the Gemini vision backend parameters.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// New builds the backend named in cfg.Backend.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case BackendOpenAI:
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger), nil
	case BackendGemini:
		return NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
	default:
		return nil, fmt.Errorf("unknown extraction backend: %q", cfg.Backend)
	}
}
