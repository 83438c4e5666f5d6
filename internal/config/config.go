package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Fitbit OAuth2 endpoints and API base. These never vary per deployment.
const (
	FitbitAuthURL  = "https://www.fitbit.com/oauth2/authorize"
	FitbitTokenURL = "https://api.fitbit.com/oauth2/token"
	FitbitAPIBase  = "https://api.fitbit.com"

	OAuthRedirectURL = "http://127.0.0.1:8080/callback"
)

// FitbitScopes are the permissions requested during authorization.
var FitbitScopes = []string{
	"activity",
	"cardio_fitness",
	"heartrate",
	"oxygen_saturation",
	"respiratory_rate",
	"sleep",
	"temperature",
}

type Config struct {
	FitbitClientID     string
	FitbitClientSecret string
	SpreadsheetID      string
	APIKey             string
	ServiceAccountFile string
	TokenFile          string
	ServerPort         int
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists. It returns an error naming the
// first required variable that is missing.
func Load() (*Config, error) {
	// A missing .env is fine; values may come from the real environment.
	_ = godotenv.Load()

	cfg := &Config{
		FitbitClientID:     os.Getenv("FITBIT_CLIENT_ID"),
		FitbitClientSecret: os.Getenv("FITBIT_CLIENT_SECRET"),
		SpreadsheetID:      os.Getenv("GOOGLE_SHEET_ID"),
		APIKey:             os.Getenv("API_KEY"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		TokenFile:          os.Getenv("FITBIT_TOKEN_FILE"),
		ServerPort:         8585,
	}

	if cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = "service_account.json"
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = "tokens.json"
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("SERVER_PORT must be a number, got %q", port)
		}
		cfg.ServerPort = p
	}

	for _, required := range []struct {
		name  string
		value string
	}{
		{"FITBIT_CLIENT_ID", cfg.FitbitClientID},
		{"FITBIT_CLIENT_SECRET", cfg.FitbitClientSecret},
		{"GOOGLE_SHEET_ID", cfg.SpreadsheetID},
		{"API_KEY", cfg.APIKey},
	} {
		if required.value == "" {
			return nil, fmt.Errorf("%s is not set. Copy .env.example to .env and fill in your values", required.name)
		}
	}

	return cfg, nil
}
