package testutil

import (
	"testing"
	"time"

	"github.com/kendall-kelly/service-crm-api/config"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/stretchr/testify/require"
)

// TestConfig returns a configuration for an sqlite-backed test server
func TestConfig() *config.Config {
	return &config.Config{
		GoEnv:              "test",
		Port:               "0",
		DatabaseDriver:     "sqlite",
		DatabaseURL:        "file::memory:",
		JWTSecret:          "test-secret-with-enough-entropy",
		JWTIssuer:          "service-crm-api",
		JWTAudience:        "service-crm-api",
		TokenTTL:           time.Hour,
		NotifyTimeout:      time.Second,
		TelegramBotName:    "crm_test_bot",
		PublicBaseURL:      "http://localhost:8080",
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "error",
		LogFormat:          "text",
	}
}

// BearerToken signs a token for account with the secret of cfg
func BearerToken(t *testing.T, cfg *config.Config, account *models.Account) string {
	t.Helper()

	token, err := services.NewTokenIssuer(cfg).Issue(account)
	require.NoError(t, err)
	return "Bearer " + token.AccessToken
}
