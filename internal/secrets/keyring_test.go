package secrets

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestAPIKey_SetGetDelete(t *testing.T) {
	keyring.MockInit()

	if err := SetAPIKey("gemini", "  abc123 \n"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	got, err := GetAPIKey("gemini")
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got != "abc123" {
		t.Errorf("GetAPIKey = %q, want trimmed key", got)
	}

	if err := DeleteAPIKey("gemini"); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if _, err := GetAPIKey("gemini"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIKey after delete: err = %v, want ErrNotFound", err)
	}
	if err := DeleteAPIKey("gemini"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteAPIKey: err = %v, want ErrNotFound", err)
	}
}

func TestSetAPIKey_RejectsEmpty(t *testing.T) {
	keyring.MockInit()

	if err := SetAPIKey("", "k"); err == nil {
		t.Error("expected error for empty provider")
	}
	if err := SetAPIKey("openai", "   "); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestResolveAPIKey(t *testing.T) {
	keyring.MockInit()

	got, err := ResolveAPIKey("openai", "from-config")
	if err != nil || got != "from-config" {
		t.Errorf("ResolveAPIKey(configured) = %q, %v", got, err)
	}

	if _, err := ResolveAPIKey("openai", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveAPIKey(missing) err = %v, want ErrNotFound", err)
	}

	if err := SetAPIKey("openai", "from-keychain"); err != nil {
		t.Fatal(err)
	}
	got, err = ResolveAPIKey("openai", "")
	if err != nil || got != "from-keychain" {
		t.Errorf("ResolveAPIKey(keychain) = %q, %v", got, err)
	}
}
