// Package vault implements the secure store for the small fixed set of
// named secrets the application keeps outside normal storage: the auth
// token pair and the PIN credential material.
//
// Platform secure storage (a keychain or keystore) is abstracted behind
// the SecretStore interface so the core logic runs against in-memory
// fakes in tests and against an encrypted file store everywhere a real
// keychain is unavailable.
package vault

import (
	"errors"
	"fmt"
)

// Accessibility mirrors the platform keychain accessibility policies the
// application relies on.
type Accessibility int

const (
	// AfterFirstUnlock allows reads while the app runs in the background,
	// as long as the device has been unlocked once since boot. Required
	// for tokens used in silent refresh.
	AfterFirstUnlock Accessibility = iota
	// WhenPasscodeSet restricts the entry to devices with a passcode set
	// and only while the device is unlocked. Used for PIN material, which
	// has no background networking need.
	WhenPasscodeSet
)

func (a Accessibility) String() string {
	switch a {
	case AfterFirstUnlock:
		return "after_first_unlock"
	case WhenPasscodeSet:
		return "when_passcode_set"
	default:
		return fmt.Sprintf("accessibility(%d)", int(a))
	}
}

// ErrNotFound is returned by SecretStore.Get for a benign miss: the entry
// simply does not exist. Any other error is a real store failure.
var ErrNotFound = errors.New("vault: secret not found")

// SecretStore is the capability interface over platform secure storage.
// Entries are keyed by a service namespace plus an account name.
//
// Implementations must make Set observable as delete-then-insert: after a
// failed Set the old value may be gone, but two conflicting entries must
// never coexist. Delete is idempotent.
type SecretStore interface {
	Set(service, account string, value []byte, policy Accessibility) error
	Get(service, account string) ([]byte, error)
	Delete(service, account string) error
}

// StoreError is the failure surface of vault writes. It carries the
// operation and secret name for diagnostics; the underlying platform
// error is available via Unwrap.
type StoreError struct {
	Op   string
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vault: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
