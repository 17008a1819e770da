package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// fileEntry is one encrypted secret in the on-disk file. Data is
// base64(nonce || ciphertext).
type fileEntry struct {
	Data   string        `json:"data"`
	Policy Accessibility `json:"policy"`
}

// FileStore is an encrypted-at-rest SecretStore kept in a single JSON
// file. Each value is sealed individually with AES-GCM under a key
// derived from device key material, so a copied file is useless without
// that material.
type FileStore struct {
	mu      sync.Mutex
	path    string
	aead    cipher.AEAD
	entries map[string]fileEntry
}

// NewFileStore opens or creates the store at path. keyMaterial is the
// device-bound secret the AEAD key is derived from; it must be at least
// 16 bytes.
func NewFileStore(path string, keyMaterial []byte) (*FileStore, error) {
	if len(keyMaterial) < 16 {
		return nil, fmt.Errorf("vault: key material too short: %d bytes", len(keyMaterial))
	}
	aead, err := newAEAD(keyMaterial)
	if err != nil {
		return nil, err
	}

	fs := &FileStore{
		path:    path,
		aead:    aead,
		entries: make(map[string]fileEntry),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// newAEAD derives an AES-GCM cipher from device key material via
// HKDF-SHA256.
func newAEAD(keyMaterial []byte) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, keyMaterial, []byte("amanpay-vault"), []byte("secret-store-v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

func entryKey(service, account string) string {
	return service + "/" + account
}

func (fs *FileStore) load() error {
	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open vault file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&fs.entries); err != nil {
		return fmt.Errorf("decode vault file: %w", err)
	}
	return nil
}

// persist writes the whole entry map to a temp file and renames it over
// the store path, so a crash mid-write cannot truncate the store.
func (fs *FileStore) persist() error {
	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create vault file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(fs.entries); err != nil {
		f.Close()
		return fmt.Errorf("encode vault file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close vault file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace vault file: %w", err)
	}
	return nil
}

func (fs *FileStore) Set(service, account string, value []byte, policy Accessibility) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	nonce := make([]byte, fs.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := fs.aead.Seal(nonce, nonce, value, []byte(entryKey(service, account)))

	key := entryKey(service, account)
	prev, hadPrev := fs.entries[key]
	delete(fs.entries, key)
	fs.entries[key] = fileEntry{
		Data:   base64.StdEncoding.EncodeToString(sealed),
		Policy: policy,
	}
	if err := fs.persist(); err != nil {
		// Roll the map back so memory matches disk.
		if hadPrev {
			fs.entries[key] = prev
		} else {
			delete(fs.entries, key)
		}
		return err
	}
	return nil
}

func (fs *FileStore) Get(service, account string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, ok := fs.entries[entryKey(service, account)]
	if !ok {
		return nil, ErrNotFound
	}
	sealed, err := base64.StdEncoding.DecodeString(entry.Data)
	if err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if len(sealed) < fs.aead.NonceSize() {
		return nil, fmt.Errorf("entry too short: %d bytes", len(sealed))
	}
	nonce, ciphertext := sealed[:fs.aead.NonceSize()], sealed[fs.aead.NonceSize():]
	plain, err := fs.aead.Open(nil, nonce, ciphertext, []byte(entryKey(service, account)))
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	return plain, nil
}

func (fs *FileStore) Delete(service, account string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := entryKey(service, account)
	if _, ok := fs.entries[key]; !ok {
		return nil
	}
	prev := fs.entries[key]
	delete(fs.entries, key)
	if err := fs.persist(); err != nil {
		fs.entries[key] = prev
		return err
	}
	return nil
}

// LoadDeviceKey reads the device key material from dir, generating and
// persisting a fresh 32-byte key on first use. Real mobile builds replace
// this with a key held in the platform keystore.
func LoadDeviceKey(dir string) ([]byte, error) {
	path := filepath.Join(dir, "device.key")
	key, err := os.ReadFile(path)
	if err == nil && len(key) >= 16 {
		return key, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read device key: %w", err)
	}

	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write device key: %w", err)
	}
	return key, nil
}
