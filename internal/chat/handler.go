package chat

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/transport"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

// OutcomeHeader tells clients whether the answer came from the core API or the simulator.
const OutcomeHeader = "X-Chat-Outcome"

type ServiceAPI interface {
	SendChat(ctx context.Context, dto SendChatDTO, principal internal.Principal) Result
	StreamURL(principal internal.Principal) string
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type StreamURLResponse struct {
	URL string `json:"url"`
}

// Completions handles POST /chat/completions
func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrInvalidToken)
		return
	}

	var dto SendChatDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	result := h.Service.SendChat(r.Context(), dto, principal)

	w.Header().Set(OutcomeHeader, string(result.Outcome))
	h.WriteRawJSON(w, http.StatusOK, result.Payload)
}

// StreamURL handles GET /chat/stream-url
func (h *Handler) StreamURL(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrInvalidToken)
		return
	}

	h.WriteJSON(w, http.StatusOK, StreamURLResponse{URL: h.Service.StreamURL(principal)})
}
