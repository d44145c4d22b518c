package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

const keyPrefix = "rag_"

// ErrInvalidRole is returned when a key is requested for an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// KeyInfo is the stored metadata for one API key. The plaintext key is
// never persisted; the table is keyed by its BLAKE2b-256 digest.
type KeyInfo struct {
	UserID     string     `json:"user_id"`
	Role       string     `json:"role"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	UsageCount int        `json:"usage_count"`
}

// KeyListing is the admin-facing view of a key, with a truncated digest
// for identification.
type KeyListing struct {
	KeyHash string `json:"key_hash"`
	KeyInfo
}

// KeyManager issues, validates, and revokes API keys. The full table is
// written back to the keys file after every mutation; that is acceptable
// at the table sizes this service targets. Access from multiple goroutines
// is serialized by the mutex; multi-process writers are out of scope.
type KeyManager struct {
	mu       sync.Mutex
	keysFile string
	keys     map[string]*KeyInfo
	now      func() time.Time
}

func NewKeyManager(keysFile string) (*KeyManager, error) {
	m := &KeyManager{
		keysFile: keysFile,
		keys:     make(map[string]*KeyInfo),
		now:      time.Now,
	}
	raw, err := os.ReadFile(keysFile)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read keys file failed: %w", err)
	}
	if err := json.Unmarshal(raw, &m.keys); err != nil {
		return nil, fmt.Errorf("parse keys file failed: %w", err)
	}
	return m, nil
}

// GenerateKey creates a new key for the user and returns the plaintext
// exactly once. expiresDays of 0 means the key never expires.
func (m *KeyManager) GenerateKey(userID, role string, expiresDays int) (string, error) {
	if !ValidRole(role) {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key material failed: %w", err)
	}
	plaintext := keyPrefix + base64.RawURLEncoding.EncodeToString(buf)

	info := &KeyInfo{
		UserID:    userID,
		Role:      role,
		CreatedAt: m.now().UTC(),
	}
	if expiresDays > 0 {
		exp := m.now().UTC().AddDate(0, 0, expiresDays)
		info.ExpiresAt = &exp
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[digest(plaintext)] = info
	if err := m.save(); err != nil {
		delete(m.keys, digest(plaintext))
		return "", err
	}
	return plaintext, nil
}

// ValidateKey resolves a plaintext key to its stored info. It returns nil
// for malformed, unknown, or expired keys. On success the key's usage
// stats are updated before a copy of the info is returned.
func (m *KeyManager) ValidateKey(plaintext string) *KeyInfo {
	if !strings.HasPrefix(plaintext, keyPrefix) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.keys[digest(plaintext)]
	if !ok {
		return nil
	}
	if info.ExpiresAt != nil && m.now().UTC().After(*info.ExpiresAt) {
		return nil
	}

	used := m.now().UTC()
	info.LastUsed = &used
	info.UsageCount++
	if err := m.save(); err != nil {
		log.Printf("persist key usage failed: %v", err)
	}

	copied := *info
	return &copied
}

// RevokeKey removes a key. It reports whether a matching key existed.
func (m *KeyManager) RevokeKey(plaintext string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := digest(plaintext)
	if _, ok := m.keys[hash]; !ok {
		return false
	}
	delete(m.keys, hash)
	if err := m.save(); err != nil {
		log.Printf("persist key revocation failed: %v", err)
	}
	return true
}

// ListKeys returns all keys, optionally filtered by user, with digests
// truncated for identification.
func (m *KeyManager) ListKeys(userID string) []KeyListing {
	m.mu.Lock()
	defer m.mu.Unlock()

	listings := make([]KeyListing, 0, len(m.keys))
	for hash, info := range m.keys {
		if userID != "" && info.UserID != userID {
			continue
		}
		listings = append(listings, KeyListing{
			KeyHash: hash[:16] + "...",
			KeyInfo: *info,
		})
	}
	return listings
}

// Count returns the number of stored keys.
func (m *KeyManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// save writes the whole table to a temp file and renames it into place.
// Callers hold the mutex.
func (m *KeyManager) save() error {
	payload, err := json.MarshalIndent(m.keys, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keys failed: %w", err)
	}
	if dir := filepath.Dir(m.keysFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create keys dir failed: %w", err)
		}
	}
	tmp := m.keysFile + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write keys file failed: %w", err)
	}
	if err := os.Rename(tmp, m.keysFile); err != nil {
		return fmt.Errorf("replace keys file failed: %w", err)
	}
	return nil
}

func digest(plaintext string) string {
	sum := blake2b.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
