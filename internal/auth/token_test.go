package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/ai-helper/internal"
)

var _ = ginkgo.Describe("JWTTokenManager", func() {
	var (
		now      time.Time
		lifetime time.Duration
		manager  *JWTTokenManager
	)

	ginkgo.BeforeEach(func() {
		now = time.Unix(1_700_000_000, 0)
		lifetime = 90 * time.Minute
		manager = NewJWTTokenManager(testSecret, lifetime).WithClock(func() time.Time { return now })
	})

	ginkgo.It("should issue a token whose subject round-trips", func() {
		token, err := manager.Issue("alice")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		sub, err := manager.SubjectOf(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(sub).To(gomega.Equal("alice"))
	})

	ginkgo.It("should set exp to iat plus the lifetime", func() {
		token, _ := manager.Issue("alice")

		claims := &jwt.RegisteredClaims{}
		_, _, err := jwt.NewParser().ParseUnverified(token, claims)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(claims.IssuedAt.Time.Equal(now)).To(gomega.BeTrue())
		gomega.Expect(claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)).To(gomega.Equal(lifetime))
	})

	ginkgo.It("should sign with HS256", func() {
		token, _ := manager.Issue("alice")

		parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(parsed.Method.Alg()).To(gomega.Equal("HS256"))
	})

	ginkgo.Describe("Validate", func() {
		ginkgo.It("should accept the token for its own subject", func() {
			token, _ := manager.Issue("alice")
			gomega.Expect(manager.Validate(token, "alice")).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a different subject", func() {
			token, _ := manager.Issue("alice")
			gomega.Expect(manager.Validate(token, "bob")).To(gomega.BeFalse())
		})

		ginkgo.It("should accept just before expiry", func() {
			token, _ := manager.Issue("alice")
			now = now.Add(lifetime - time.Millisecond)
			gomega.Expect(manager.Validate(token, "alice")).To(gomega.BeTrue())
		})

		ginkgo.It("should reject exactly at expiry", func() {
			token, _ := manager.Issue("alice")
			now = now.Add(lifetime)
			gomega.Expect(manager.Validate(token, "alice")).To(gomega.BeFalse())
		})

		ginkgo.It("should reject garbage without panicking", func() {
			gomega.Expect(manager.Validate("garbage", "alice")).To(gomega.BeFalse())
			gomega.Expect(manager.Validate("", "alice")).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("IsExpired", func() {
		ginkgo.It("should be false before exp and true from exp onwards", func() {
			token, _ := manager.Issue("alice")

			expired, err := manager.IsExpired(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(expired).To(gomega.BeFalse())

			now = now.Add(lifetime)
			expired, err = manager.IsExpired(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(expired).To(gomega.BeTrue())
		})

		ginkgo.It("should still return the subject of an expired token", func() {
			token, _ := manager.Issue("alice")
			now = now.Add(2 * lifetime)

			sub, err := manager.SubjectOf(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(sub).To(gomega.Equal("alice"))
		})
	})

	ginkgo.Describe("tampering", func() {
		ginkgo.It("should reject a token signed with another secret", func() {
			other := NewJWTTokenManager("another-secret-that-is-32-bytes-long!!", lifetime).WithClock(func() time.Time { return now })
			token, _ := other.Issue("alice")

			_, err := manager.SubjectOf(token)
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
			gomega.Expect(manager.Validate(token, "alice")).To(gomega.BeFalse())
		})

		ginkgo.It("should reject a token with a modified payload", func() {
			token, _ := manager.Issue("alice")
			forged, _ := manager.Issue("mallory")

			parts := strings.Split(token, ".")
			forgedParts := strings.Split(forged, ".")
			tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

			_, err := manager.SubjectOf(tampered)
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject the none algorithm", func() {
			claims := jwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}
			unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = manager.SubjectOf(unsigned)
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject malformed tokens", func() {
			_, err := manager.SubjectOf("a.b.c")
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())

			_, err = manager.IsExpired("a.b")
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
		})
	})
})
