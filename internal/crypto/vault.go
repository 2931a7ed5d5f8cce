// Package crypto seals venue account passwords at rest and signs requests
// to the terminal gateway.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/crypto/pbkdf2"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	currentVersion   = 1
)

// sealedEntry is one encrypted password.
type sealedEntry struct {
	Salt       string `json:"salt"`  // base64 standard encoding
	Nonce      string `json:"nonce"` // base64 standard encoding
	Ciphertext string `json:"ciphertext"`
}

type vaultFile struct {
	Version int                    `json:"version"`
	Entries map[string]sealedEntry `json:"entries"`
}

// Vault is a set of account passwords, each sealed with PBKDF2-HMAC-SHA256
// and AES-256-GCM under one master password. The zero value is empty.
type Vault struct {
	entries map[string]sealedEntry
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{entries: map[string]sealedEntry{}}
}

// LoadVault reads a vault file. A missing file yields an empty vault.
func LoadVault(path string) (*Vault, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewVault(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("crypto: reading vault: %w", err)
	}
	return ParseVault(data)
}

// ParseVault decodes vault JSON.
func ParseVault(data []byte) (*Vault, error) {
	var f vaultFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("crypto: parsing vault: %w", err)
	}
	if f.Version != currentVersion {
		return nil, fmt.Errorf("crypto: unsupported vault version %d", f.Version)
	}
	v := NewVault()
	for k, e := range f.Entries {
		v.entries[k] = e
	}
	return v, nil
}

// Save writes the vault to path with owner-only permissions.
func (v *Vault) Save(path string) error {
	data, err := v.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("crypto: writing vault: %w", err)
	}
	return nil
}

// Marshal encodes the vault as JSON.
func (v *Vault) Marshal() ([]byte, error) {
	f := vaultFile{Version: currentVersion, Entries: v.entries}
	if f.Entries == nil {
		f.Entries = map[string]sealedEntry{}
	}
	return json.MarshalIndent(f, "", "  ")
}

// Keys lists the sealed account keys in sorted order.
func (v *Vault) Keys() []string {
	keys := make([]string, 0, len(v.entries))
	for k := range v.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Seal encrypts secret under master and stores it as account.
func (v *Vault) Seal(account, secret, master string) error {
	if master == "" {
		return errors.New("crypto: master password must not be empty")
	}
	if account == "" {
		return errors.New("crypto: account key must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("crypto: generating salt: %w", err)
	}
	gcm, err := newGCM(master, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("crypto: generating nonce: %w", err)
	}

	// The account key is bound as additional data so entries cannot be
	// swapped between accounts.
	ciphertext := gcm.Seal(nil, nonce, []byte(secret), []byte(account))
	if v.entries == nil {
		v.entries = map[string]sealedEntry{}
	}
	v.entries[account] = sealedEntry{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return nil
}

// Open decrypts the password stored for account.
func (v *Vault) Open(account, master string) (string, error) {
	if master == "" {
		return "", errors.New("crypto: master password must not be empty")
	}
	e, ok := v.entries[account]
	if !ok {
		return "", fmt.Errorf("crypto: account %q: %w", account, domain.ErrNoCredentials)
	}

	salt, err := base64.StdEncoding.DecodeString(e.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(e.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(e.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(master, salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(account))
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return string(plaintext), nil
}

func newGCM(master string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(master), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}
