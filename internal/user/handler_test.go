package user_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/user"
)

var _ = Describe("User Handler", func() {
	var (
		router   *chi.Mux
		mockRepo *MockRepository
		service  *user.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(mockRepo, bcrypt.MinCost, logger)
		handler := user.NewHandler(service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := internal.ContextWithPrincipal(r.Context(), internal.Principal{UserID: 1, Username: "alice", Role: internal.RoleAdmin})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Get("/users/me", handler.GetCurrentUser)
		router.Route("/admin/users", func(r chi.Router) {
			r.Get("/", handler.ListUsers)
			r.Post("/", handler.CreateUser)
			r.Get("/check-username", handler.CheckUsername)
			r.Get("/check-email", handler.CheckEmail)
			r.Get("/{id}", handler.GetUser)
			r.Put("/{id}", handler.UpdateUser)
			r.Put("/{id}/password", handler.ChangePassword)
			r.Delete("/{id}", handler.DeleteUser)
		})

		_, err := service.Create(context.Background(), user.CreateUserDTO{
			Username: "alice", Email: "alice@example.com", Password: "s3cret", Role: internal.RoleAdmin,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	It("should return the current user without the password hash", func() {
		rec := do(http.MethodGet, "/users/me", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"username":"alice"`))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
	})

	It("should create a user and return 201", func() {
		rec := do(http.MethodPost, "/admin/users", `{"username":"bob","email":"bob@example.com","password":"s3cret"}`)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var u user.User
		Expect(json.Unmarshal(rec.Body.Bytes(), &u)).To(Succeed())
		Expect(u.Role).To(Equal(internal.RoleUser))
		Expect(u.Status).To(Equal(internal.StatusActive))
	})

	It("should answer a duplicate username with 400", func() {
		rec := do(http.MethodPost, "/admin/users", `{"username":"alice","email":"x@example.com","password":"s3cret"}`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeUsernameTaken)))
	})

	It("should list users with paging metadata", func() {
		rec := do(http.MethodGet, "/admin/users?page=1&size=5", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var page user.Page
		Expect(json.Unmarshal(rec.Body.Bytes(), &page)).To(Succeed())
		Expect(page.TotalCount).To(Equal(int64(1)))
		Expect(page.TotalPages).To(Equal(1))
		Expect(page.CurrentPage).To(Equal(1))
	})

	It("should reject a non numeric page", func() {
		rec := do(http.MethodGet, "/admin/users?page=abc", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject page zero", func() {
		rec := do(http.MethodGet, "/admin/users?page=0", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for a missing user", func() {
		rec := do(http.MethodGet, "/admin/users/999", "")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeUserNotFound)))
	})

	It("should return 400 for a malformed id", func() {
		rec := do(http.MethodGet, "/admin/users/abc", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should update a user", func() {
		rec := do(http.MethodPut, "/admin/users/1", `{"email":"alice@new.example.com","name":"Alice","role":"ADMIN"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("alice@new.example.com"))
	})

	It("should return 404 when updating a missing user", func() {
		rec := do(http.MethodPut, "/admin/users/42", `{"email":"x@example.com","role":"USER"}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should change the password", func() {
		rec := do(http.MethodPut, "/admin/users/1/password", `{"new_password":"an0ther"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should accept the camel case password field", func() {
		rec := do(http.MethodPut, "/admin/users/1/password", `{"newPassword":"an0ther"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should return 400 when the new password is missing", func() {
		rec := do(http.MethodPut, "/admin/users/1/password", `{}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 when changing the password of a missing user", func() {
		rec := do(http.MethodPut, "/admin/users/5/password", `{"new_password":"an0ther"}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should delete and then 404", func() {
		Expect(do(http.MethodDelete, "/admin/users/1", "").Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodDelete, "/admin/users/1", "").Code).To(Equal(http.StatusNotFound))
	})

	It("should report availability", func() {
		rec := do(http.MethodGet, "/admin/users/check-username?username=alice", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"available":false`))

		rec = do(http.MethodGet, "/admin/users/check-email?email=new@example.com", "")
		Expect(rec.Body.String()).To(ContainSubstring(`"available":true`))
	})
})
