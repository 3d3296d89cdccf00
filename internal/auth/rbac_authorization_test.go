package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/ai-helper/internal"
)

var _ = ginkgo.Describe("Policy", func() {
	ginkgo.It("should grant admins user administration", func() {
		p := NewPolicy(nil)
		gomega.Expect(p.Allows(internal.RoleAdmin, PermUsersRead)).To(gomega.BeTrue())
		gomega.Expect(p.Allows(internal.RoleAdmin, PermUsersWrite)).To(gomega.BeTrue())
	})

	ginkgo.It("should deny user administration to regular users", func() {
		p := NewPolicy(nil)
		gomega.Expect(p.Allows(internal.RoleUser, PermUsersRead)).To(gomega.BeFalse())
		gomega.Expect(p.Allows(internal.RoleUser, PermUsersWrite)).To(gomega.BeFalse())
		gomega.Expect(p.Allows(internal.RoleUser, PermChatUse)).To(gomega.BeTrue())
	})

	ginkgo.It("should deny unknown roles and permissions", func() {
		p := NewPolicy(nil)
		gomega.Expect(p.Allows("GUEST", PermChatUse)).To(gomega.BeFalse())
		gomega.Expect(p.Allows(internal.RoleAdmin, "billing:write")).To(gomega.BeFalse())
	})

	ginkgo.It("should use configured rules instead of the defaults", func() {
		p := NewPolicy(map[string][]string{internal.RoleUser: {PermUsersRead}})
		gomega.Expect(p.Allows(internal.RoleUser, PermUsersRead)).To(gomega.BeTrue())
		gomega.Expect(p.Allows(internal.RoleAdmin, PermUsersRead)).To(gomega.BeFalse())
		gomega.Expect(p.Permissions(internal.RoleUser)).To(gomega.Equal([]string{PermUsersRead}))
	})
})

var _ = ginkgo.Describe("HTTP guards", func() {
	var (
		store   *mockCredentialStore
		tokens  *JWTTokenManager
		handler *Handler
		rbac    *RBACAuthorization
		guarded http.Handler
	)

	ginkgo.BeforeEach(func() {
		store = newMockCredentialStore()
		tokens = NewJWTTokenManager(testSecret, time.Hour)
		handler = NewHandler(NewService(store, tokens, silentLogger()))
		rbac = NewRBACAuthorization(NewPolicy(nil), silentLogger())

		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := internal.PrincipalFromContext(r.Context())
			w.Header().Set("X-User", p.Username)
			w.WriteHeader(http.StatusNoContent)
		})
		guarded = handler.AuthMiddleware(rbac.Middleware(PermUsersRead)(ok))
	})

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.It("should return 401 without a token", func() {
		rec := do("")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should return 401 for an invalid token", func() {
		rec := do("abc.def.ghi")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))

		var body map[string]map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body["error"]["code"]).To(gomega.Equal(string(internal.ErrCodeInvalidToken)))
	})

	ginkgo.It("should return 403 when the role lacks the permission", func() {
		token, _ := tokens.Issue("alice")
		rec := do(token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("should pass admins through with the principal in context", func() {
		token, _ := tokens.Issue("root")
		rec := do(token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(rec.Header().Get("X-User")).To(gomega.Equal("root"))
	})

	ginkgo.Describe("Login handler", func() {
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.Login(rec, req.WithContext(context.Background()))
			return rec
		}

		ginkgo.It("should return the token on success", func() {
			rec := post(`{"username":"alice","password":"correct_password"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var resp LoginResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Username).To(gomega.Equal("alice"))
			gomega.Expect(resp.Role).To(gomega.Equal(internal.RoleUser))
			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should return 401 on bad credentials", func() {
			rec := post(`{"username":"alice","password":"nope"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).ToNot(gomega.ContainSubstring("bad credentials"))
		})

		ginkgo.It("should return 400 on malformed JSON", func() {
			rec := post(`{"username":`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should answer the check endpoint", func() {
			rec := httptest.NewRecorder()
			handler.Check(rec, httptest.NewRequest(http.MethodGet, "/auth/check", nil))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("Authentication API is working"))
		})
	})
})
