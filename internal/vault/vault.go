package vault

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Names of the four secrets this system persists. No other names are
// accepted: the vault is a closed set, not a general-purpose store.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyPINHash      = "pin_hash"
	KeyPINSalt      = "pin_salt"
)

// Service namespaces under which the secrets live. Token material must be
// readable while the app is backgrounded (silent refresh); PIN material
// gets the stricter policy since it is only read in the foreground.
const (
	serviceTokens = "com.amanpay.tokens"
	servicePIN    = "com.amanpay.pin"
)

// Vault is the single owner of the named secrets. No other component may
// touch the underlying SecretStore directly.
type Vault struct {
	store SecretStore
	log   *zap.Logger
}

// New wraps the given store. log must not be nil.
func New(store SecretStore, log *zap.Logger) *Vault {
	return &Vault{store: store, log: log}
}

// placement maps a secret name to its service namespace and accessibility
// policy. Unknown names are rejected.
func placement(name string) (string, Accessibility, error) {
	switch name {
	case KeyAccessToken, KeyRefreshToken:
		return serviceTokens, AfterFirstUnlock, nil
	case KeyPINHash, KeyPINSalt:
		return servicePIN, WhenPasscodeSet, nil
	default:
		return "", 0, fmt.Errorf("vault: unknown secret %q", name)
	}
}

// Set stores value under name, replacing any existing entry. The store
// contract guarantees delete-then-insert, so a partial write is never
// observable as two conflicting entries.
func (v *Vault) Set(name string, value []byte) error {
	service, policy, err := placement(name)
	if err != nil {
		return err
	}
	if err := v.store.Set(service, name, value, policy); err != nil {
		return &StoreError{Op: "set", Name: name, Err: err}
	}
	return nil
}

// Get returns the secret bytes, or nil when the secret is absent. A
// failing read is logged and also yields nil: callers must treat a
// missing secret and a transient read failure identically.
func (v *Vault) Get(name string) []byte {
	service, _, err := placement(name)
	if err != nil {
		return nil
	}
	value, err := v.store.Get(service, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			v.log.Warn("vault read failed", zap.String("name", name), zap.Error(err))
		}
		return nil
	}
	return value
}

// Delete removes the secret. Deleting an absent secret is not an error;
// a store failure is logged and swallowed.
func (v *Vault) Delete(name string) {
	service, _, err := placement(name)
	if err != nil {
		return
	}
	if err := v.store.Delete(service, name); err != nil {
		v.log.Warn("vault delete failed", zap.String("name", name), zap.Error(err))
	}
}
