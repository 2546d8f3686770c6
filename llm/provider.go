// Package llm talks to the remote text and image generation services.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// sharedHTTPClient is used by all providers; generation of a full legal
// document can take well over a minute.
var sharedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// defaultMaxTokens is the fallback when Request.MaxTokens is not set.
const defaultMaxTokens = 8192

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 * 1024 * 1024

// Request holds the parameters for a completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// Model overrides the provider's configured model when non-empty.
	Model string
}

// Response holds the generated text and the token counts reported by the
// remote service, used for usage accounting.
type Response struct {
	Content      string
	Model        string // "provider:model" actually used
	InputTokens  int
	OutputTokens int
}

// Provider is the interface for text generation backends.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Keys carries the API keys NewProvider may need.
type Keys struct {
	Gemini    string
	Anthropic string
	OpenAI    string
}

// NewProvider parses a "provider:model" string and returns the matching
// Provider. The key for the selected provider must be set.
// Example: "gemini:gemini-2.0-flash" or "openai:gpt-4o".
func NewProvider(providerModel string, keys Keys) (Provider, error) {
	parts := strings.SplitN(providerModel, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid model format %q: expected provider:model (e.g. gemini:gemini-2.0-flash)", providerModel)
	}
	switch parts[0] {
	case "gemini":
		if keys.Gemini == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		return &geminiProvider{model: parts[1], apiKey: keys.Gemini}, nil
	case "anthropic":
		if keys.Anthropic == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return &anthropicProvider{model: parts[1], apiKey: keys.Anthropic}, nil
	case "openai":
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return &openaiProvider{model: parts[1], apiKey: keys.OpenAI}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are gemini, anthropic, openai", parts[0])
	}
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
