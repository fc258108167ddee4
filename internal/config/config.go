package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/hive-corporation/responder/internal/core/domain"
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	Webex    WebexConfig
	Access   AccessConfig
	Endpoint EndpointConfig
	Umbrella UmbrellaConfig
	Spamhaus SpamhausConfig
	SMTP     SMTPConfig
	Upstream UpstreamConfig
	Server   ServerConfig
	Log      LogConfig
}

type WebexConfig struct {
	AccessToken      string `env:"WEBEX_TEAMS_ACCESS_TOKEN"`
	APIURL           string `env:"WEBEX_API_URL" envDefault:"https://webexapis.com/v1"`
	WebhookTargetURL string `env:"WEBEX_WEBHOOK_TARGET_URL"`
	WebhookSecret    string `env:"WEBEX_WEBHOOK_SECRET"`
}

type AccessConfig struct {
	Domain     string `env:"WEBEX_RESTRICT_DOMAIN"`
	User       string `env:"WEBEX_RESTRICT_USER"`
	DenySilent bool   `env:"ACCESS_DENY_SILENT" envDefault:"false"`
}

// EndpointConfig configures Cisco Secure Endpoint (AMP for Endpoints).
type EndpointConfig struct {
	ClientID   string `env:"AMP4E_CLIENT_ID"`
	APIKey     string `env:"AMP4E_API_KEY"`
	BaseURL    string `env:"AMP4E_BASE_URL" envDefault:"https://api.amp.cisco.com/v1"`
	ConsoleURL string `env:"AMP4E_CONSOLE_URL" envDefault:"https://console.amp.cisco.com"`
}

type UmbrellaConfig struct {
	ClientID       string `env:"UMBRELLA_CLIENT_ID"`
	APIKey         string `env:"UMBRELLA_API_KEY"`
	OrgID          string `env:"UMBRELLA_ORG_ID"`
	InvestigateKey string `env:"UMBRELLA_INVESTIGATE_KEY"`
	AuthURL        string `env:"UMBRELLA_AUTH_URL" envDefault:"https://management.api.umbrella.com/auth/v2/oauth2/token"`
	ReportsURL     string `env:"UMBRELLA_REPORTS_URL" envDefault:"https://reports.api.umbrella.com/v2"`
	InvestigateURL string `env:"UMBRELLA_INVESTIGATE_URL" envDefault:"https://investigate.api.umbrella.com"`
	DashboardURL   string `env:"UMBRELLA_DASHBOARD_URL" envDefault:"https://dashboard.umbrella.com"`
}

type SpamhausConfig struct {
	User     string `env:"SPAMHAUS_USER"`
	Password string `env:"SPAMHAUS_PASS"`
	LoginURL string `env:"SPAMHAUS_LOGIN_URL" envDefault:"https://api.spamhaus.org/api/v1/login"`
	IntelURL string `env:"SPAMHAUS_INTEL_URL" envDefault:"https://api.spamhaus.org/api/intel/v1"`
}

// SMTPConfig points at a plain, unauthenticated relay.
type SMTPConfig struct {
	Relay      string `env:"SMTP_RELAY"`
	Port       string `env:"SMTP_PORT" envDefault:"25"`
	SenderAddr string `env:"SMTP_SENDER_ADDR"`
}

type UpstreamConfig struct {
	Timeout              time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	MaxRetries           int           `env:"UPSTREAM_RETRY_MAX_ATTEMPTS" envDefault:"2"`
	InitialInterval      time.Duration `env:"UPSTREAM_RETRY_INITIAL_INTERVAL" envDefault:"500ms"`
	MaxInterval          time.Duration `env:"UPSTREAM_RETRY_MAX_INTERVAL" envDefault:"5s"`
	EnableCircuitBreaker bool          `env:"UPSTREAM_CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	MaxFailures          uint32        `env:"UPSTREAM_CIRCUIT_BREAKER_MAX_FAILURES" envDefault:"5"`
	CircuitTimeout       time.Duration `env:"UPSTREAM_CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`
}

type ServerConfig struct {
	Port           string `env:"REST_API_PORT" envDefault:"8080"`
	AuthToken      string `env:"REST_API_AUTH_TOKEN"`
	HealthGRPCAddr string `env:"HEALTH_GRPC_ADDR"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file and then the process environment.
// It only fails when the mandatory Webex access token is missing; vendor
// settings are validated by the commands that need them.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Webex.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLocal is Load without the Webex token check, for tools that never
// talk to Webex.
func LoadLocal(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c WebexConfig) Validate() error {
	return requireSettings("Webex", map[string]string{"WEBEX_TEAMS_ACCESS_TOKEN": c.AccessToken})
}

func (c EndpointConfig) Validate() error {
	return requireSettings("Secure Endpoint", map[string]string{
		"AMP4E_CLIENT_ID": c.ClientID,
		"AMP4E_API_KEY":   c.APIKey,
	})
}

// ValidateReporting checks the settings used by the Reporting API.
func (c UmbrellaConfig) ValidateReporting() error {
	return requireSettings("Umbrella Reporting", map[string]string{
		"UMBRELLA_CLIENT_ID": c.ClientID,
		"UMBRELLA_API_KEY":   c.APIKey,
		"UMBRELLA_ORG_ID":    c.OrgID,
	})
}

func (c UmbrellaConfig) ValidateInvestigate() error {
	return requireSettings("Umbrella Investigate", map[string]string{"UMBRELLA_INVESTIGATE_KEY": c.InvestigateKey})
}

func (c SpamhausConfig) Validate() error {
	return requireSettings("Spamhaus", map[string]string{
		"SPAMHAUS_USER": c.User,
		"SPAMHAUS_PASS": c.Password,
	})
}

func (c SMTPConfig) Validate() error {
	return requireSettings("Email notifications", map[string]string{
		"SMTP_RELAY":       c.Relay,
		"SMTP_PORT":        c.Port,
		"SMTP_SENDER_ADDR": c.SenderAddr,
	})
}

// Addr is the host:port of the relay.
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Relay, c.Port)
}

func requireSettings(component string, values map[string]string) error {
	var missing []string
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &domain.ConfigurationError{Component: component, Missing: missing}
	}
	return nil
}
