package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	Environment    string // ENV: production, development, etc.
	Host           string // Raw HOST env (e.g. https://api.prescripto.in)
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	TrustProxy     bool     // Read client IPs from X-Forwarded-For
	LogLevel       string

	StoreDriver       string // mongo or memory
	MongoURI          string
	MongoTransactions bool
	PostgresURI       string
	RedisURI          string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	RazorpayKeyID     string
	RazorpayKeySecret string
	Currency          string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RequestTimeout time.Duration
	SlotLockTTL    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("HOST", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("MONGO_TRANSACTIONS", false)
	v.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("REQUEST_TIMEOUT", "5s")
	v.SetDefault("SLOT_LOCK_TTL", "30s")
}

// Load reads configuration from the environment. When CONFIG_FILE is set
// that file is read first and the environment overrides it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	env := strings.ToLower(strings.TrimSpace(v.GetString("ENV")))
	host := v.GetString("HOST")

	allowedOrigins := parseOrigins(v.GetString("ALLOWED_ORIGINS"))
	if len(allowedOrigins) == 0 {
		for _, key := range []string{"FRONTEND_URL", "ADMIN_URL"} {
			if u := strings.TrimSpace(v.GetString(key)); u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	cfg := &Config{
		Port:           v.GetString("PORT"),
		Environment:    env,
		Host:           host,
		FrontendURL:    v.GetString("FRONTEND_URL"),
		AllowedOrigins: allowedOrigins,
		TrustProxy:     v.GetBool("TRUST_PROXY"),
		LogLevel:       v.GetString("LOG_LEVEL"),

		StoreDriver:       strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		MongoURI:          firstNonEmpty(v.GetString("MONGODB_URI"), v.GetString("MONGO_URI"), "mongodb://localhost:27017/prescripto"),
		MongoTransactions: v.GetBool("MONGO_TRANSACTIONS"),
		PostgresURI:       v.GetString("POSTGRES_URI"),
		RedisURI:          v.GetString("REDIS_URI"),

		JWTSecret:     v.GetString("JWT_SECRET"),
		TokenTTL:      v.GetDuration("TOKEN_TTL"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),

		CloudinaryName:      v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),

		RazorpayKeyID:     v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		Currency:          strings.ToUpper(v.GetString("CURRENCY")),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: v.GetString("SMTP_USERNAME"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		SMTPFrom:     v.GetString("SMTP_FROM"),

		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		SlotLockTTL:    v.GetDuration("SLOT_LOCK_TTL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be mongo or memory, got %q", c.StoreDriver)
	}
	if c.IsProduction() && c.JWTSecret == "your-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PaymentsEnabled reports whether Razorpay credentials are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

// UploadsEnabled reports whether Cloudinary credentials are configured.
func (c *Config) UploadsEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUsername != ""
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
