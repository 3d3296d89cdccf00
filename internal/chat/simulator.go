package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	coreapitypes "github.com/frahmantamala/ai-helper/internal/core/datamodel/coreapi"
)

const (
	DefaultPrompt = "안녕하세요"

	ReplyGreeting = "안녕하세요! 어떻게 도와드릴까요?"
	ReplyIdentity = "저는 AI 도우미입니다. 궁금한 점이나 도움이 필요한 사항이 있으신가요?"
	ReplyThanks   = "별말씀을요! 더 필요한 것이 있으시면 언제든지 말씀해주세요."
	ReplyDegraded = "죄송합니다만, 현재 AI 서버와 연결이 원활하지 않습니다. 말씀하신 내용에 대해 자세히 알려주시면 더 도움이 될 수 있을 것 같습니다."
	ReplyApology  = "죄송합니다. 일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."

	simulatedPromptTokens = 10
)

type replyRule struct {
	name     string
	keywords []string
	reply    string
}

// first match wins
var replyRules = []replyRule{
	{name: "greeting", keywords: []string{"안녕", "하이", "hello"}, reply: ReplyGreeting},
	{name: "identity", keywords: []string{"이름", "누구", "who are you", "your name"}, reply: ReplyIdentity},
	{name: "thanks", keywords: []string{"감사", "고마워", "thank"}, reply: ReplyThanks},
}

// Simulator builds OpenAI-shaped completions locally when the core API cannot answer.
type Simulator struct {
	now    func() time.Time
	logger *slog.Logger
	encode func(v any) ([]byte, error)
}

func NewSimulator(logger *slog.Logger) *Simulator {
	return &Simulator{
		now:    time.Now,
		logger: logger,
		encode: json.Marshal,
	}
}

func (s *Simulator) WithClock(now func() time.Time) *Simulator {
	s.now = now
	return s
}

// LastUserPrompt returns the content of the last user message, or DefaultPrompt.
func LastUserPrompt(messages []openai.ChatCompletionMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.ChatMessageRoleUser {
			return messages[i].Content
		}
	}
	return DefaultPrompt
}

// ReplyFor picks the canned reply for a prompt.
func ReplyFor(prompt string) string {
	lowered := strings.ToLower(prompt)
	for _, rule := range replyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.reply
			}
		}
	}
	return ReplyDegraded
}

// Respond never fails; any problem while building the payload yields the apology payload.
func (s *Simulator) Respond(messages []openai.ChatCompletionMessage, model string) (payload json.RawMessage) {
	now := s.now()

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("simulated response failed", "panic", fmt.Sprint(rec))
			payload = s.apology(now)
		}
	}()

	reply := ReplyFor(LastUserPrompt(messages))
	completionTokens := utf8.RuneCountInString(reply) / 4

	resp := coreapitypes.ChatCompletionResponse{
		ID:      fmt.Sprintf("sim_%d", now.UnixMilli()),
		Object:  coreapitypes.ObjectChatCompletion,
		Created: now.Unix(),
		Model:   model + "-simulated",
		Choices: []openai.ChatCompletionChoice{{
			Index: 0,
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: reply,
			},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{
			PromptTokens:     simulatedPromptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      simulatedPromptTokens + completionTokens,
		},
	}

	body, err := s.encode(resp)
	if err != nil {
		s.logger.Error("failed to encode simulated response", "error", err)
		return s.apology(now)
	}
	return body
}

type apologyChoice struct {
	Message openai.ChatCompletionMessage `json:"message"`
}

type apologyPayload struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Choices []apologyChoice `json:"choices"`
}

func (s *Simulator) apology(now time.Time) json.RawMessage {
	body, _ := json.Marshal(apologyPayload{
		ID:     fmt.Sprintf("sim_error_%d", now.UnixMilli()),
		Object: coreapitypes.ObjectChatCompletion,
		Choices: []apologyChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: ReplyApology},
		}},
	})
	return body
}
