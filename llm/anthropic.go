package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicProvider struct {
	model  string
	apiKey string
}

type anthropicTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicReply struct {
	Model      string           `json:"model"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *anthropicReply) errorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Type + ": " + r.Error.Message
}

// text joins the text blocks; tool and thinking blocks are skipped.
func (r *anthropicReply) text() string {
	var sb strings.Builder
	for _, b := range r.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

func (p *anthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	body := map[string]interface{}{
		"model":      requestModel(p.model, req),
		"max_tokens": defaultMaxTokens,
		"messages":   []anthropicTurn{{Role: "user", Content: req.UserPrompt}},
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}
	if req.Temperature != 0 {
		body["temperature"] = req.Temperature
	}

	var out anthropicReply
	err := postJSON(ctx, call{
		provider: "anthropic",
		url:      endpoints.anthropic,
		header: http.Header{
			"X-Api-Key":         {p.apiKey},
			"Anthropic-Version": {anthropicVersion},
		},
		body: body,
	}, &out)
	if err != nil {
		return nil, err
	}

	content := out.text()
	if content == "" {
		return nil, fmt.Errorf("anthropic: no text in reply (stop reason %q)", out.StopReason)
	}
	return &Response{
		Content:      content,
		Model:        "anthropic:" + out.Model,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}
