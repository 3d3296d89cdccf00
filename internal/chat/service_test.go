package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	openai "github.com/sashabaranov/go-openai"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/chat"
	coreapitypes "github.com/frahmantamala/ai-helper/internal/core/datamodel/coreapi"
	"github.com/frahmantamala/ai-helper/internal/coreapi"
)

type fakeClient struct {
	body    json.RawMessage
	err     error
	lastReq *coreapitypes.ChatCompletionRequest
}

func (f *fakeClient) ChatCompletion(_ context.Context, req *coreapitypes.ChatCompletionRequest) (json.RawMessage, error) {
	f.lastReq = req
	return f.body, f.err
}

func (f *fakeClient) StreamURL(userID int64, orgID *int64) string {
	if orgID == nil {
		return fmt.Sprintf("http://core/stream?user_id=%d", userID)
	}
	return fmt.Sprintf("http://core/stream?user_id=%d&org_id=%d", userID, *orgID)
}

var _ = Describe("Chat Service", func() {
	var (
		client    *fakeClient
		service   *chat.Service
		principal internal.Principal
		dto       chat.SendChatDTO
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		client = &fakeClient{}
		service = chat.NewService(client, chat.NewSimulator(lg), "gpt-3.5-turbo", lg)
		org := int64(3)
		principal = internal.Principal{UserID: 7, Username: "alice", Role: internal.RoleUser, OrgID: &org}
		dto = chat.SendChatDTO{Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hello"}}}
	})

	It("should pass the upstream body through on success", func() {
		client.body = json.RawMessage(`{"id":"chatcmpl-1","choices":[{"index":0}]}`)

		result := service.SendChat(context.Background(), dto, principal)

		Expect(result.Outcome).To(Equal(chat.OutcomeSuccess))
		Expect(string(result.Payload)).To(Equal(`{"id":"chatcmpl-1","choices":[{"index":0}]}`))
	})

	It("should fill in the default model and the caller's identity", func() {
		client.body = json.RawMessage(`{}`)
		service.SendChat(context.Background(), dto, principal)

		Expect(client.lastReq.Model).To(Equal("gpt-3.5-turbo"))
		Expect(*client.lastReq.UserID).To(Equal(int64(7)))
		Expect(*client.lastReq.OrgID).To(Equal(int64(3)))
	})

	It("should keep an explicit model", func() {
		client.body = json.RawMessage(`{}`)
		dto.Model = "gpt-4"
		service.SendChat(context.Background(), dto, principal)

		Expect(client.lastReq.Model).To(Equal("gpt-4"))
	})

	It("should degrade to a simulated answer when the upstream is unavailable", func() {
		client.err = fmt.Errorf("%w: core api returned status 502", coreapi.ErrUpstreamUnavailable)
		dto.Model = "gpt-4"

		result := service.SendChat(context.Background(), dto, principal)

		Expect(result.Outcome).To(Equal(chat.OutcomeDegraded))
		var resp openai.ChatCompletionResponse
		Expect(json.Unmarshal(result.Payload, &resp)).To(Succeed())
		Expect(resp.ID).To(HavePrefix("sim_"))
		Expect(resp.Model).To(Equal("gpt-4-simulated"))
		Expect(resp.Choices[0].Message.Content).To(Equal(chat.ReplyGreeting))
	})

	It("should forward an empty conversation as an empty array", func() {
		client.body = json.RawMessage(`{}`)
		service.SendChat(context.Background(), chat.SendChatDTO{}, principal)

		Expect(client.lastReq.Messages).NotTo(BeNil())
		Expect(client.lastReq.Messages).To(BeEmpty())
	})

	It("should answer an empty conversation with the greeting when the core API is down", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		down := coreapi.NewClient(coreapi.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, lg)
		service = chat.NewService(down, chat.NewSimulator(lg), "gpt-3.5-turbo", lg)

		result := service.SendChat(context.Background(), chat.SendChatDTO{}, principal)

		Expect(result.Outcome).To(Equal(chat.OutcomeDegraded))
		var resp openai.ChatCompletionResponse
		Expect(json.Unmarshal(result.Payload, &resp)).To(Succeed())
		Expect(resp.Object).To(Equal("chat.completion"))
		Expect(resp.Choices).To(HaveLen(1))
		Expect(resp.Choices[0].Message.Content).To(Equal(chat.ReplyGreeting))
	})

	It("should return the error payload when the request cannot be built", func() {
		client.err = &coreapi.RequestError{Err: fmt.Errorf("invalid core api url: missing protocol scheme")}

		result := service.SendChat(context.Background(), dto, principal)

		Expect(result.Outcome).To(Equal(chat.OutcomeError))
		var payload coreapitypes.ErrorPayload
		Expect(json.Unmarshal(result.Payload, &payload)).To(Succeed())
		Expect(payload.Error).To(BeTrue())
		Expect(payload.Message).To(HavePrefix("AI service connection error: "))
		Expect(payload.Message).To(ContainSubstring("missing protocol scheme"))
	})

	It("should build the stream URL for the caller", func() {
		Expect(service.StreamURL(principal)).To(Equal("http://core/stream?user_id=7&org_id=3"))

		principal.OrgID = nil
		Expect(service.StreamURL(principal)).To(Equal("http://core/stream?user_id=7"))
	})
})

var _ = Describe("Chat Handler", func() {
	var (
		client  *fakeClient
		handler *chat.Handler
		ctx     context.Context
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		client = &fakeClient{body: json.RawMessage(`{"id":"chatcmpl-1","choices":[{"index":0}]}`)}
		handler = chat.NewHandler(chat.NewService(client, chat.NewSimulator(lg), "", lg))
		ctx = internal.ContextWithPrincipal(context.Background(), internal.Principal{UserID: 7, Username: "alice", Role: internal.RoleUser})
	})

	post := func(body string, withPrincipal bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if withPrincipal {
			req = req.WithContext(ctx)
		}
		rec := httptest.NewRecorder()
		handler.Completions(rec, req)
		return rec
	}

	It("should answer 200 with the payload and the outcome header", func() {
		rec := post(`{"messages":[{"role":"user","content":"hi"}]}`, true)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get(chat.OutcomeHeader)).To(Equal("success"))
		Expect(rec.Body.String()).To(Equal(`{"id":"chatcmpl-1","choices":[{"index":0}]}`))
	})

	It("should still answer 200 when degraded", func() {
		client.err = coreapi.ErrUpstreamUnavailable
		rec := post(`{"messages":[{"role":"user","content":"thank you"}]}`, true)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get(chat.OutcomeHeader)).To(Equal("degraded"))
		Expect(rec.Body.String()).To(ContainSubstring("-simulated"))
	})

	It("should answer an empty message list with a simulated greeting", func() {
		client.err = coreapi.ErrUpstreamUnavailable
		rec := post(`{"messages":[]}`, true)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get(chat.OutcomeHeader)).To(Equal("degraded"))
		Expect(rec.Body.String()).To(ContainSubstring(chat.ReplyGreeting))
		Expect(client.lastReq).NotTo(BeNil())
	})

	It("should forward a request without messages", func() {
		rec := post(`{"model":"gpt-4"}`, true)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(client.lastReq.Model).To(Equal("gpt-4"))
		Expect(client.lastReq.Messages).To(BeEmpty())
	})

	It("should reject malformed JSON with 400", func() {
		rec := post(`{"messages":`, true)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 401 without a principal", func() {
		rec := post(`{"messages":[{"role":"user","content":"hi"}]}`, false)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should return the stream URL", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/stream-url", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		handler.StreamURL(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body chat.StreamURLResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.URL).To(Equal("http://core/stream?user_id=7"))
	})
})
