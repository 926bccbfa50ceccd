package llm

import (
	"context"
	"fmt"
)

// TextGenerator generates prose from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageGenerator synthesises a single image from a text prompt and returns its URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageDescriber runs an instruction against an image URL using a vision-capable model.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, instruction, imageURL string) (string, error)
}

// Client bundles the three generation capabilities the orchestrator chains.
type Client interface {
	TextGenerator
	ImageGenerator
	ImageDescriber
}

type compositeClient struct {
	TextGenerator
	ImageGenerator
	ImageDescriber
}

// Compose builds a Client from independent backends, so the image step can
// come from a different provider than text and vision.
func Compose(text TextGenerator, image ImageGenerator, vision ImageDescriber) Client {
	return &compositeClient{
		TextGenerator:  text,
		ImageGenerator: image,
		ImageDescriber: vision,
	}
}

// ProviderError carries the upstream HTTP status so callers can surface it.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	return fmt.Sprintf("provider http %d: %s", e.StatusCode, e.Message)
}
