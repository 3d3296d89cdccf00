package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/frahmantamala/ai-helper/internal"
	coreapitypes "github.com/frahmantamala/ai-helper/internal/core/datamodel/coreapi"
	"github.com/frahmantamala/ai-helper/internal/coreapi"
	"github.com/frahmantamala/ai-helper/internal/metrics"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded"
	OutcomeError    Outcome = "error"
)

// Result carries the payload handed back to the caller and how it was produced.
type Result struct {
	Outcome Outcome
	Payload json.RawMessage
}

type SendChatDTO struct {
	Messages []openai.ChatCompletionMessage `json:"messages"`
	Model    string                         `json:"model,omitempty"`
}

type CompletionClient interface {
	ChatCompletion(ctx context.Context, req *coreapitypes.ChatCompletionRequest) (json.RawMessage, error)
	StreamURL(userID int64, orgID *int64) string
}

type Service struct {
	client       CompletionClient
	simulator    *Simulator
	defaultModel string
	logger       *slog.Logger
}

func NewService(client CompletionClient, simulator *Simulator, defaultModel string, logger *slog.Logger) *Service {
	if defaultModel == "" {
		defaultModel = "gpt-3.5-turbo"
	}
	return &Service{
		client:       client,
		simulator:    simulator,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// SendChat forwards the conversation to the core API, falling back to a simulated reply.
func (s *Service) SendChat(ctx context.Context, dto SendChatDTO, principal internal.Principal) Result {
	lg := s.logger
	if scoped, ok := logger.Scoped(ctx); ok {
		lg = scoped
	}

	model := dto.Model
	if model == "" {
		model = s.defaultModel
	}

	// an empty conversation is still forwarded as [] so the core API decides what to answer
	messages := dto.Messages
	if messages == nil {
		messages = []openai.ChatCompletionMessage{}
	}

	userID := principal.UserID
	req := &coreapitypes.ChatCompletionRequest{
		Messages: messages,
		Model:    model,
		UserID:   &userID,
		OrgID:    principal.OrgID,
	}

	body, err := s.client.ChatCompletion(ctx, req)
	if err == nil {
		metrics.ChatCompletionsTotal.WithLabelValues(string(OutcomeSuccess)).Inc()
		lg.Info("chat completion answered by core api", "user_id", userID, "model", model)
		return Result{Outcome: OutcomeSuccess, Payload: body}
	}

	var reqErr *coreapi.RequestError
	if errors.As(err, &reqErr) {
		metrics.ChatCompletionsTotal.WithLabelValues(string(OutcomeError)).Inc()
		lg.Error("chat request could not be built", "user_id", userID, "error", err)
		return Result{Outcome: OutcomeError, Payload: errorPayload(err)}
	}

	metrics.ChatCompletionsTotal.WithLabelValues(string(OutcomeDegraded)).Inc()
	lg.Warn("core api call failed, returning simulated response", "user_id", userID, "error", err)
	return Result{Outcome: OutcomeDegraded, Payload: s.simulator.Respond(dto.Messages, model)}
}

func (s *Service) StreamURL(principal internal.Principal) string {
	return s.client.StreamURL(principal.UserID, principal.OrgID)
}

func errorPayload(err error) json.RawMessage {
	body, _ := json.Marshal(coreapitypes.ErrorPayload{
		Error:   true,
		Message: "AI service connection error: " + err.Error(),
	})
	return body
}
