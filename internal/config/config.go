// Package config loads and validates app config from env and an optional
// .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty runs with in-memory repositories.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// SMSAPIKey is the SMS gateway API key; empty disables the sms channel.
	SMSAPIKey string `mapstructure:"SMS_API_KEY"`
	// SMSBaseURL overrides the SMS gateway endpoint.
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`
	// SMSSender is the optional sender ID for outgoing texts.
	SMSSender string `mapstructure:"SMS_SENDER"`
	// VoiceAPIKey is the voice gateway API key; empty disables the call channel.
	VoiceAPIKey string `mapstructure:"VOICE_API_KEY"`
	// VoiceBaseURL overrides the voice gateway endpoint.
	VoiceBaseURL string `mapstructure:"VOICE_BASE_URL"`
	// VoiceCallerID is the optional caller id for outgoing calls.
	VoiceCallerID string `mapstructure:"VOICE_CALLER_ID"`
	// MailAPIKey is the mail gateway API key; empty disables the email channel.
	MailAPIKey string `mapstructure:"MAIL_API_KEY"`
	// MailBaseURL overrides the mail gateway endpoint.
	MailBaseURL string `mapstructure:"MAIL_BASE_URL"`
	// MailFrom is the from address for verification emails.
	MailFrom string `mapstructure:"MAIL_FROM"`

	// SupportDeskURL is the support desk API base URL; empty disables tickets.
	SupportDeskURL string `mapstructure:"SUPPORT_DESK_URL"`
	// SupportDeskKey is the support desk API key.
	SupportDeskKey string `mapstructure:"SUPPORT_DESK_KEY"`
	// SupportContactEmail is the static contact surfaced on critical failures.
	SupportContactEmail string `mapstructure:"SUPPORT_CONTACT_EMAIL"`
	// SupportContactURL is the static help URL surfaced on critical failures.
	SupportContactURL string `mapstructure:"SUPPORT_CONTACT_URL"`

	// ProtocolWSURL is the messaging service websocket URL (ws:// or wss://).
	ProtocolWSURL string `mapstructure:"PROTOCOL_WS_URL"`

	// PairTokenPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a
	// path to a key file; used with PAIR_TOKEN_PUBLIC_KEY for RS256/ES256.
	PairTokenPrivateKey string `mapstructure:"PAIR_TOKEN_PRIVATE_KEY"`
	// PairTokenPublicKey is the PEM-encoded public key or a path to a key file.
	PairTokenPublicKey string `mapstructure:"PAIR_TOKEN_PUBLIC_KEY"`
	// PairTokenIssuer is the iss claim on minted pairing tokens.
	PairTokenIssuer string `mapstructure:"PAIR_TOKEN_ISSUER"`
	// PairTokenAudience is the aud claim on minted pairing tokens.
	PairTokenAudience string `mapstructure:"PAIR_TOKEN_AUDIENCE"`
	// PairTokenTTL is the pairing token lifetime (e.g. "10m").
	PairTokenTTL string `mapstructure:"PAIR_TOKEN_TTL"`

	// CapabilityPolicyDir is an optional directory of Rego policies gating
	// manual-tier fallbacks; empty means prerequisites are treated as met.
	CapabilityPolicyDir string `mapstructure:"CAPABILITY_POLICY_DIR"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// BcryptCost is the bcrypt cost factor (4-31) for backup code hashes.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// Every mapped key needs a default: AutomaticEnv alone does not register
	// keys, and Unmarshal only sees keys Viper already knows about.
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_BASE_URL", "")
	v.SetDefault("SMS_SENDER", "")
	v.SetDefault("VOICE_API_KEY", "")
	v.SetDefault("VOICE_BASE_URL", "")
	v.SetDefault("VOICE_CALLER_ID", "")
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_BASE_URL", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("SUPPORT_DESK_URL", "")
	v.SetDefault("SUPPORT_DESK_KEY", "")
	v.SetDefault("SUPPORT_CONTACT_EMAIL", "support@pairing.example.com")
	v.SetDefault("SUPPORT_CONTACT_URL", "https://help.pairing.example.com")
	v.SetDefault("PROTOCOL_WS_URL", "")
	v.SetDefault("PAIR_TOKEN_PRIVATE_KEY", "")
	v.SetDefault("PAIR_TOKEN_PUBLIC_KEY", "")
	v.SetDefault("PAIR_TOKEN_ISSUER", "pairing-control-plane")
	v.SetDefault("PAIR_TOKEN_AUDIENCE", "messaging-protocol")
	v.SetDefault("PAIR_TOKEN_TTL", "10m")
	v.SetDefault("CAPABILITY_POLICY_DIR", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.Env == "production" && (cfg.PairTokenPrivateKey == "" || cfg.PairTokenPublicKey == "") {
		return nil, errors.New("config: PAIR_TOKEN_PRIVATE_KEY and PAIR_TOKEN_PUBLIC_KEY must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// TokenTTL parses PairTokenTTL as a time.Duration. Returns 10m if unset or
// invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.PairTokenTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}
