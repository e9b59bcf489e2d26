package credentials

import (
	"os"

	"golang.org/x/oauth2"
)

// Environment variables that can supply a token, e.g. on a headless machine
// where no keyring is available.
const (
	EnvAccessToken  = "JURNALGURU_ACCESS_TOKEN"
	EnvRefreshToken = "JURNALGURU_REFRESH_TOKEN"
)

// TokenFromEnv returns a token built from the environment, or nil when
// neither variable is set.
func TokenFromEnv() *oauth2.Token {
	access := os.Getenv(EnvAccessToken)
	refresh := os.Getenv(EnvRefreshToken)
	if access == "" && refresh == "" {
		return nil
	}

	// Without an access token the token is invalid and is refreshed on first use
	return &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
}

// HasEnvToken checks if the environment supplies a token
func HasEnvToken() bool {
	return TokenFromEnv() != nil
}
