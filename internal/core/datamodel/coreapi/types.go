package coreapi

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

const (
	CompletionsPath = "/api/v1/chat/completions"
	StreamPath      = "/api/v1/chat/completions/stream"

	ObjectChatCompletion = "chat.completion"
)

// ChatCompletionRequest is the body posted to the core API.
type ChatCompletionRequest struct {
	Messages []openai.ChatCompletionMessage `json:"messages"`
	Model    string                         `json:"model"`
	UserID   *int64                         `json:"user_id"`
	OrgID    *int64                         `json:"org_id"`
}

func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return errors.New("model is required")
	}
	return nil
}

// ChatCompletionResponse is the subset of the OpenAI completion shape the core API answers with.
type ChatCompletionResponse = openai.ChatCompletionResponse

// ErrorPayload is returned to chat callers when the request could not even be built.
type ErrorPayload struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}
