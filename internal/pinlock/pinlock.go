// Package pinlock owns the PIN credential scheme: a fresh random salt per
// PIN creation and a SHA-256 digest over PIN||salt. The raw PIN is never
// persisted or logged. Length policy belongs to the caller; this package
// is purely cryptographic.
package pinlock

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/amanpay/appcore/internal/vault"
)

const saltSize = 16

// PinLock creates, verifies, and clears the PIN credential stored in the
// vault.
type PinLock struct {
	vault *vault.Vault
}

// New wraps the given vault.
func New(v *vault.Vault) *PinLock {
	return &PinLock{vault: v}
}

// Exists reports whether a complete PIN credential (both hash and salt)
// is present.
func (p *PinLock) Exists() bool {
	return p.vault.Get(vault.KeyPINHash) != nil && p.vault.Get(vault.KeyPINSalt) != nil
}

// Save creates or replaces the PIN credential. A fresh salt is generated
// on every call; salts are never reused. Returns false if salt generation
// or storage fails, in which case any partial credential is cleared so
// Exists never reports a mismatched hash/salt pair.
func (p *PinLock) Save(pin string) bool {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return false
	}
	hash := digest(pin, salt)

	if err := p.vault.Set(vault.KeyPINHash, hash); err != nil {
		p.Clear()
		return false
	}
	if err := p.vault.Set(vault.KeyPINSalt, salt); err != nil {
		p.Clear()
		return false
	}
	return true
}

// Verify reports whether pin matches the stored credential. False when no
// credential exists. The comparison is constant-time; correctness does
// not depend on timing either way, since the result is a plain boolean.
func (p *PinLock) Verify(pin string) bool {
	salt := p.vault.Get(vault.KeyPINSalt)
	hash := p.vault.Get(vault.KeyPINHash)
	if salt == nil || hash == nil {
		return false
	}
	return subtle.ConstantTimeCompare(digest(pin, salt), hash) == 1
}

// Clear removes the credential. Idempotent.
func (p *PinLock) Clear() {
	p.vault.Delete(vault.KeyPINHash)
	p.vault.Delete(vault.KeyPINSalt)
}

func digest(pin string, salt []byte) []byte {
	h := sha256.New()
	h.Write([]byte(pin))
	h.Write(salt)
	return h.Sum(nil)
}
