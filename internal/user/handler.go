package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/transport"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

type ServiceAPI interface {
	ListPaged(ctx context.Context, q PageQuery) (*Page, error)
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error)
	ChangePassword(ctx context.Context, id int64, newPassword string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)
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

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrInvalidToken)
		return
	}

	u, err := h.Service.GetByUsername(r.Context(), principal.Username)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// ListUsers handles GET /admin/users?page=&size=&search=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, appErr := h.QueryInt(r, "page", DefaultPage)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	size, appErr := h.QueryInt(r, "size", DefaultPageSize)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	result, err := h.Service.ListPaged(r.Context(), PageQuery{
		Page:   page,
		Size:   size,
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// GetUser handles GET /admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	u, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, u)
}

// UpdateUser handles PUT /admin/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var dto UpdateUserDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	NewPassword       string `json:"new_password"`
	LegacyNewPassword string `json:"newPassword"`
}

// ChangePassword handles PUT /admin/users/{id}/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var req changePasswordRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	password := req.NewPassword
	if password == "" {
		password = req.LegacyNewPassword
	}

	changed, err := h.Service.ChangePassword(r.Context(), id, password)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !changed {
		h.HandleError(w, internal.ErrUserNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, MessageResponse{Message: "password changed"})
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	deleted, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !deleted {
		h.HandleError(w, internal.ErrUserNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}

// CheckUsername handles GET /admin/users/check-username?username=
func (h *Handler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.HandleError(w, internal.NewValidationFieldError("username", "username is required", internal.ErrCodeValidationFailed))
		return
	}

	available, err := h.Service.UsernameAvailable(r.Context(), username)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

// CheckEmail handles GET /admin/users/check-email?email=
func (h *Handler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		h.HandleError(w, internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed))
		return
	}

	available, err := h.Service.EmailAvailable(r.Context(), email)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}
