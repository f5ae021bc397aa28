// Package llm defines the generative-model client interface for genrelay.
package llm

import "context"

// Image is an encoded image payload ready to be sent to a model provider.
type Image struct {
	// MIMEType is the sniffed content type, e.g. "image/jpeg".
	MIMEType string
	// Data is the raw encoded image bytes (the full file contents, not pixels).
	Data []byte
}

// Client is a minimal interface for making generative-model API calls.
// Implementations provide the actual HTTP transport to a specific provider.
type Client interface {
	// GenerateText sends a single text prompt and returns the generated text.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateFromImage sends an instruction together with an image and
	// returns the generated text.
	GenerateFromImage(ctx context.Context, instruction string, img Image) (string, error)
}
