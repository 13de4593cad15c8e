package credentials

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringService is the OS keyring service name under which the remote
// board's API token is stored.
const keyringService = "tasksync"

// keyringAccount is the fixed account name used for the single remote
// token entry; tasksync has exactly one remote board per configuration,
// so there is no per-backend account to disambiguate.
const keyringAccount = "remote-token"

// SetToken stores the remote token in the OS keyring.
func SetToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if err := keyring.Set(keyringService, keyringAccount, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// GetToken retrieves the remote token from the OS keyring.
func GetToken() (string, error) {
	token, err := keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", fmt.Errorf("no token found in keyring")
		}
		return "", fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}
	return token, nil
}

// DeleteToken removes the remote token from the OS keyring.
func DeleteToken() error {
	if err := keyring.Delete(keyringService, keyringAccount); err != nil {
		if err == keyring.ErrNotFound {
			return fmt.Errorf("no token found in keyring")
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable reports whether the OS keyring backend is reachable. A
// throwaway lookup that resolves to ErrNotFound still proves the keyring
// itself is working.
func IsAvailable() bool {
	_, err := keyring.Get(keyringService+"-probe", "probe")
	return err == nil || err == keyring.ErrNotFound
}
