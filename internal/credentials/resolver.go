package credentials

import (
	"fmt"

	"golang.org/x/oauth2"

	"jurnalguru/internal/utils"
)

// Source indicates where a token was found
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceSignIn  Source = "sign-in"
	SourceNone    Source = "none"
)

// Resolve finds a stored token using the priority order:
// 1. Keyring
// 2. Environment variables
//
// It returns SourceNone and a nil token when nothing is found.
func Resolve(account string) (*oauth2.Token, Source, error) {
	if account == "" {
		return nil, SourceNone, fmt.Errorf("account is required for token resolution")
	}

	if IsAvailable() {
		tok, err := LoadToken(account)
		if err == nil {
			return tok, SourceKeyring, nil
		}
		if err != ErrNoToken {
			// Keyring trouble is not fatal while the environment may still help
			utils.Warnf("Keyring lookup failed: %v", err)
		}
	}

	if tok := TokenFromEnv(); tok != nil {
		return tok, SourceEnv, nil
	}

	return nil, SourceNone, nil
}
