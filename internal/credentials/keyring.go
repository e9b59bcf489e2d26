package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const (
	// KeyringService is the keyring service holding jurnalguru secrets
	KeyringService = "jurnalguru"
	// DefaultAccount names the Drive token entry
	DefaultAccount = "google-drive"
)

// ErrNoToken is returned when no token is stored
var ErrNoToken = errors.New("no stored token")

// SaveToken stores tok in the OS keyring as JSON
func SaveToken(account string, tok *oauth2.Token) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if tok == nil || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return fmt.Errorf("token cannot be empty")
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := keyring.Set(KeyringService, account, string(data)); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// LoadToken retrieves the token stored for account
func LoadToken(account string) (*oauth2.Token, error) {
	if account == "" {
		return nil, fmt.Errorf("account cannot be empty")
	}

	data, err := keyring.Get(KeyringService, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, fmt.Errorf("stored token is corrupt: %w", err)
	}
	return &tok, nil
}

// DeleteToken removes the token stored for account. A missing entry is not
// an error.
func DeleteToken(account string) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	err := keyring.Delete(KeyringService, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible
func IsAvailable() bool {
	// A missing probe entry still proves the keyring answers
	_, err := keyring.Get(KeyringService+"-keyring-test", "test")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
