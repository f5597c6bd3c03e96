package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BillingConfig holds payment-provider credentials.
type BillingConfig struct {
	APIKey  string
	BaseURL string
}

// SigningConfig holds e-signature-provider credentials for the JWT grant flow.
type SigningConfig struct {
	BaseURL            string // REST API base, e.g. https://demo.docusign.net/restapi
	OAuthBaseURL       string // OAuth server, e.g. https://account-d.docusign.com
	IntegrationKey     string // OAuth client id
	ImpersonatedUserID string
	AccountID          string
	PrivateKeyPEM      string // RSA private key, PEM-encoded
	ReturnURL          string // redirect target after embedded signing / consent
}

// StorageConfig holds object-store settings for uploaded documents.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port           int
	JWTSecret      string
	DatabaseURL    string
	CORSOrigins    []string
	AdminEmail     string
	AdminPassword  string
	CallbackSecret string // HMAC secret for the signing-provider callback
	NotifyURL      string // notification relay webhook, optional
	Billing        BillingConfig
	Signing        SigningConfig
	Storage        StorageConfig
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4010"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	billingKey := getEnv("BILLING_API_KEY", "")
	if billingKey == "" {
		return nil, fmt.Errorf("BILLING_API_KEY is required")
	}

	// The signing credential is an explicit config value, never loaded
	// ambiently at package init. Rotation means restarting the process.
	signingKey := getEnv("SIGNING_PRIVATE_KEY", "")
	if signingKey == "" {
		if path := getEnv("SIGNING_PRIVATE_KEY_FILE", ""); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read SIGNING_PRIVATE_KEY_FILE: %w", err)
			}
			signingKey = string(data)
		}
	}
	if signingKey == "" {
		return nil, fmt.Errorf("SIGNING_PRIVATE_KEY or SIGNING_PRIVATE_KEY_FILE is required")
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:           port,
		JWTSecret:      jwtSecret,
		DatabaseURL:    dbURL,
		CORSOrigins:    origins,
		AdminEmail:     getEnv("ADMIN_EMAIL", "admin@gmail.com"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "Admin@123"),
		CallbackSecret: getEnv("CALLBACK_SECRET", ""),
		NotifyURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		Billing: BillingConfig{
			APIKey:  billingKey,
			BaseURL: getEnv("BILLING_BASE_URL", "https://api.stripe.com/v1"),
		},
		Signing: SigningConfig{
			BaseURL:            getEnv("SIGNING_BASE_URL", "https://demo.docusign.net/restapi"),
			OAuthBaseURL:       getEnv("SIGNING_OAUTH_BASE_URL", "https://account-d.docusign.com"),
			IntegrationKey:     getEnv("SIGNING_INTEGRATION_KEY", ""),
			ImpersonatedUserID: getEnv("SIGNING_IMPERSONATED_USER_ID", ""),
			AccountID:          getEnv("SIGNING_ACCOUNT_ID", ""),
			PrivateKeyPEM:      signingKey,
			ReturnURL:          getEnv("SIGNING_RETURN_URL", "http://localhost:3000/contracts/signed"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "contracts"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
