package internal_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ai-helper/internal"
)

var _ = Describe("Config", func() {
	var cfg internal.Config

	BeforeEach(func() {
		cfg = internal.Config{
			Environment: "development",
			Server: internal.ServerConfig{
				Port:              8080,
				AllowedOrigins:    "http://localhost:3000, *",
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
			},
			Database: internal.DatabaseConfig{Source: "postgres://db", MaxOpenConns: 10, MaxIdleConns: 2},
			Security: internal.SecurityConfig{
				JWTSecret:       "0123456789abcdef0123456789abcdef",
				TokenLifetimeMS: 86400000,
				BCryptCost:      10,
			},
			Upstream: internal.UpstreamConfig{BaseURL: "http://core:8000", DefaultModel: "gpt-3.5-turbo"},
			Observability: internal.ObservabilityConfig{
				Metrics: internal.MetricsConfig{Enabled: true, Path: "/metrics"},
				Logging: internal.LoggingConfig{Level: "info", Format: "json"},
			},
		}
	})

	It("should accept a complete configuration", func() {
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.Server.AllowedOriginList()).To(Equal([]string{"http://localhost:3000", "*"}))
		Expect(cfg.Security.TokenLifetime()).To(Equal(24 * time.Hour))
	})

	It("should reject a secret shorter than 32 bytes", func() {
		cfg.Security.JWTSecret = "too-short"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("jwt")))
	})

	It("should reject a token lifetime under one second", func() {
		cfg.Security.TokenLifetimeMS = 10
		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("should reject more idle than open connections", func() {
		cfg.Database.MaxIdleConns = 20
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
	})

	It("should reject a read timeout shorter than the header timeout", func() {
		cfg.Server.ReadTimeout = time.Second
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("read_timeout")))
	})

	It("should reject an upstream URL without a host", func() {
		cfg.Upstream.BaseURL = "core:8000"
		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("should reject unknown log levels", func() {
		cfg.Observability.Logging.Level = "verbose"
		Expect(cfg.Validate()).NotTo(Succeed())
	})

	Describe("policy", func() {
		It("should normalise roles and split permissions", func() {
			cfg.Security.Policy = map[string]string{"user": "chat:use, profile:read", "admin": "users:read|users:write"}

			Expect(cfg.Validate()).To(Succeed())
			rules := cfg.Security.PolicyRules()
			Expect(rules[internal.RoleUser]).To(Equal([]string{"chat:use", "profile:read"}))
			Expect(rules[internal.RoleAdmin]).To(Equal([]string{"users:read", "users:write"}))
		})

		It("should return nil when nothing is configured", func() {
			Expect(cfg.Security.PolicyRules()).To(BeNil())
		})

		It("should reject unknown roles", func() {
			cfg.Security.Policy = map[string]string{"guest": "chat:use"}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("GUEST")))
		})
	})
})
