package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ai-helper/internal"
)

var _ = Describe("AppError", func() {
	It("should keep sentinels untouched when attaching a cause", func() {
		cause := errors.New("bcrypt mismatch")
		err := internal.ErrInvalidCredentials.WithCause(cause)

		Expect(internal.ErrInvalidCredentials.Cause).To(BeNil())
		Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeFalse())
	})

	It("should be found through wrapping", func() {
		wrapped := fmt.Errorf("login: %w", internal.ErrUserNotFound)

		appErr, ok := internal.IsAppError(wrapped)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))

		_, ok = internal.IsAppError(errors.New("plain"))
		Expect(ok).To(BeFalse())
	})

	It("should answer conflicts with 400", func() {
		status, _ := internal.ErrUsernameTaken.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should serialise without the cause", func() {
		err := internal.NewInternalError("failed to load user", errors.New("pq: connection reset"))
		_, body := err.ToHTTPResponse()

		raw, marshalErr := json.Marshal(body)
		Expect(marshalErr).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"code":"INTERNAL_ERROR"`))
		Expect(string(raw)).NotTo(ContainSubstring("connection reset"))
	})

	It("should carry field details for validation failures", func() {
		err := internal.NewValidationFieldError("username", "username is required", internal.ErrCodeValidationFailed)

		raw, marshalErr := json.Marshal(err)
		Expect(marshalErr).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"field":"username"`))
		Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
	})
})
