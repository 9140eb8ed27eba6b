package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups jobsift's secrets in the OS keychain.
const KeyringService = "jobsift"

// ErrNotFound is returned when no key is stored for a provider.
var ErrNotFound = errors.New("api key not found in keychain")

func account(provider string) string {
	return "jobsift:ai:" + provider
}

// GetAPIKey returns the stored API key for provider.
func GetAPIKey(provider string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", errors.New("provider name is empty")
	}
	key, err := keyring.Get(KeyringService, account(provider))
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(key) == "") {
		return "", fmt.Errorf("%s: %w", provider, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read keychain for %s: %w", provider, err)
	}
	return key, nil
}

// SetAPIKey stores key for provider, replacing any previous value.
func SetAPIKey(provider, key string) error {
	if strings.TrimSpace(provider) == "" {
		return errors.New("provider name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("api key is empty")
	}
	return keyring.Set(KeyringService, account(provider), strings.TrimSpace(key))
}

// DeleteAPIKey removes the stored key for provider.
func DeleteAPIKey(provider string) error {
	if strings.TrimSpace(provider) == "" {
		return errors.New("provider name is empty")
	}
	err := keyring.Delete(KeyringService, account(provider))
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", provider, ErrNotFound)
	}
	return err
}

// ResolveAPIKey prefers configured (already env-expanded) and falls back to
// the keychain.
func ResolveAPIKey(provider, configured string) (string, error) {
	if k := strings.TrimSpace(configured); k != "" {
		return k, nil
	}
	return GetAPIKey(provider)
}
