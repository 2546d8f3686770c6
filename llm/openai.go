package llm

import (
	"context"
	"fmt"
	"net/http"
)

type openaiProvider struct {
	model  string
	apiKey string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReply struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (r *chatReply) errorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Type + ": " + r.Error.Message
}

// chatMessages puts the system prompt, when set, ahead of the user turn.
func chatMessages(req *Request) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.UserPrompt})
}

func (p *openaiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	body := map[string]interface{}{
		"model":    requestModel(p.model, req),
		"messages": chatMessages(req),
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != 0 {
		body["temperature"] = req.Temperature
	}

	var out chatReply
	err := postJSON(ctx, call{
		provider: "openai",
		url:      endpoints.openai,
		header:   http.Header{"Authorization": {"Bearer " + p.apiKey}},
		body:     body,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: no text in reply")
	}
	return &Response{
		Content:      out.Choices[0].Message.Content,
		Model:        "openai:" + out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}
