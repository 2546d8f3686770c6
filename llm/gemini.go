package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Part is one element of a multimodal prompt: either text or inline data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is binary content with its MIME type. Data is base64 on the wire.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type geminiContent struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (r *geminiResponse) errorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// generateContent posts one generateContent call and decodes the answer.
func generateContent(ctx context.Context, apiKey, model string, body geminiRequest) (*geminiResponse, error) {
	var gr geminiResponse
	err := postJSON(ctx, call{
		provider: "gemini",
		url:      endpoints.gemini + "/" + url.PathEscape(model) + ":generateContent",
		header:   http.Header{"X-Goog-Api-Key": {apiKey}},
		body:     body,
	}, &gr)
	if err != nil {
		return nil, err
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}
	return &gr, nil
}

type geminiProvider struct {
	model  string
	apiKey string
}

func (p *geminiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := requestModel(p.model, req)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []Part{{Text: req.UserPrompt}}}},
		GenerationConfig: map[string]interface{}{"maxOutputTokens": maxTokens},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []Part{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != 0 {
		body.GenerationConfig["temperature"] = req.Temperature
	}

	gr, err := generateContent(ctx, p.apiKey, model, body)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("gemini: no text content in response (finish reason %q)", gr.Candidates[0].FinishReason)
	}

	used := gr.ModelVersion
	if used == "" {
		used = model
	}
	return &Response{
		Content:      content.String(),
		Model:        "gemini:" + used,
		InputTokens:  gr.UsageMetadata.PromptTokenCount,
		OutputTokens: gr.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// ImageGenerator produces one image from a multimodal prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, parts []Part) (*InlineData, error)
	Model() string
}

// GeminiImage generates images with a Gemini image model.
type GeminiImage struct {
	model  string
	apiKey string
}

func NewGeminiImage(model, apiKey string) (*GeminiImage, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	return &GeminiImage{model: model, apiKey: apiKey}, nil
}

func (g *GeminiImage) Model() string { return g.model }

// GenerateImage sends all parts in a single request and returns the first
// inline image of the answer. Rate limiting surfaces as an *APIError with
// status 429; see IsRateLimited.
func (g *GeminiImage) GenerateImage(ctx context.Context, parts []Part) (*InlineData, error) {
	gr, err := generateContent(ctx, g.apiKey, g.model, geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: map[string]interface{}{"responseModalities": []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, err
	}
	for _, part := range gr.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData, nil
		}
	}
	return nil, fmt.Errorf("gemini: no image in response (finish reason %q)", gr.Candidates[0].FinishReason)
}
