package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment   string              `mapstructure:"environment" env:"APP_ENV, default=development"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT, default=8080" validate:"min=1,max=65535"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS, default=*"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT, default=5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT, default=15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT, default=60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT, default=60s"`
}

type DatabaseConfig struct {
	Source          string        `mapstructure:"source" env:"DATABASE_URL" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"DB_MAX_OPEN_CONNS, default=25" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"DB_MAX_IDLE_CONNS, default=5" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME, default=30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME, default=5m"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" env:"DB_CONNECT_TIMEOUT, default=30s"`
}

type SecurityConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret" env:"JWT_SECRET" validate:"required,min=32"`
	TokenLifetimeMS int64  `mapstructure:"token_lifetime_ms" env:"JWT_EXPIRATION_MS, default=86400000" validate:"required,min=1000"`
	BCryptCost      int    `mapstructure:"bcrypt_cost" env:"BCRYPT_COST, default=10" validate:"min=4,max=15"`
	// Policy maps a role to a comma separated permission list. Empty means the built-in rules.
	Policy map[string]string `mapstructure:"policy" env:"SECURITY_POLICY, delimiter=;"`
}

func (c SecurityConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMS) * time.Millisecond
}

// PolicyRules returns the configured role rules with upper-cased roles and split permissions.
func (c SecurityConfig) PolicyRules() map[string][]string {
	if len(c.Policy) == 0 {
		return nil
	}
	rules := make(map[string][]string, len(c.Policy))
	for role, perms := range c.Policy {
		fields := strings.FieldsFunc(perms, func(r rune) bool {
			return r == ',' || r == '|' || r == ' '
		})
		rules[strings.ToUpper(strings.TrimSpace(role))] = fields
	}
	return rules
}

type UpstreamConfig struct {
	BaseURL           string        `mapstructure:"base_url" env:"CORE_API_URL, default=http://localhost:8000" validate:"required,url"`
	APIKey            string        `mapstructure:"api_key" env:"CORE_API_KEY"`
	UseAuthentication bool          `mapstructure:"use_authentication" env:"CORE_API_USE_AUTHENTICATION, default=false"`
	Timeout           time.Duration `mapstructure:"timeout" env:"CORE_API_TIMEOUT, default=30s"`
	DefaultModel      string        `mapstructure:"default_model" env:"CORE_API_DEFAULT_MODEL, default=gpt-3.5-turbo" validate:"required"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" env:"METRICS_ENABLED, default=true"`
	Path    string `mapstructure:"path" env:"METRICS_PATH, default=/metrics" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LOG_LEVEL, default=info" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" env:"LOG_FORMAT, default=text" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the configuration from process environment variables.
func LoadConfigFromEnv(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New()

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Upstream.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("upstream config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 characters")
	}
	if c.TokenLifetime() < time.Second {
		return errors.New("token lifetime must be at least one second")
	}
	var unknown []string
	for role := range c.PolicyRules() {
		if role != RoleUser && role != RoleAdmin {
			unknown = append(unknown, role)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("policy references unknown roles: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (c *UpstreamConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	return nil
}

// AllowedOriginList splits the comma separated origin setting.
func (c *ServerConfig) AllowedOriginList() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
