// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Durable keys. The names mirror the original web client's storage layout so
// the persisted state stays recognizable across tooling.
const (
	keyToken   = "trading_token"
	keyProfile = "trading_user"
)

// sealedPrefix marks a value as sealed (format: ENC:base64(nonce|ciphertext|tag)).
const sealedPrefix = "ENC:"

// AES-256-GCM parameters for sealing the token at rest.
const (
	storeNonceSize  = 12
	storeKeySize    = 32
	storeSaltSize   = 16
	storeIterations = 600000
)

var errSealCorrupt = errors.New("sealed value corrupt")

// =============================================================================
// CREDENTIAL STORE
// =============================================================================

// Store persists the credential/profile pair across restarts.
//
// Backing is a single-table SQLite database. The token is sealed with
// AES-256-GCM under a key derived (PBKDF2-SHA-256) from a machine-local
// keyfile, so a copied database file alone does not leak the credential.
//
// Every operation is fail-soft in the direction of "no session": corrupt
// profile JSON, an unopenable ciphertext, or a missing keyfile all cause the
// store to wipe itself and report absent rather than returning an error the
// caller would have to interpret.
type Store struct {
	db  *sql.DB
	key []byte
}

// OpenStore opens (creating if needed) the session store rooted at dir,
// typically ~/.tradewatch. The directory and all files are created with
// owner-only permissions.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, "session.key"))
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "session.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	// Single writer; the store is only touched from the session core.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS session (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}

	// SECURITY: The database holds a sealed credential; keep it owner-only.
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to restrict session database permissions: %w", err)
	}

	return &Store{db: db, key: key}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists the credential/profile pair. The two keys are written in a
// single transaction so a reload never observes one without the other.
func (s *Store) Save(token string, profile *Profile) error {
	if token == "" || profile == nil {
		return errors.New("refusing to persist a partial session")
	}

	sealed, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("failed to seal credential: %w", err)
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.Exec(upsert, keyToken, sealed); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	if _, err := tx.Exec(upsert, keyProfile, string(profileJSON)); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}

	return tx.Commit()
}

// Load reads back the persisted pair. ok=false means no usable session is
// stored. Corrupt state (unreadable profile or unopenable ciphertext) is
// wiped as a side effect and reported as absent, never as an error.
func (s *Store) Load() (token string, profile *Profile, ok bool) {
	sealed, haveToken := s.get(keyToken)
	profileJSON, haveProfile := s.get(keyProfile)

	// The pair is written together; anything less is treated as empty.
	if !haveToken || !haveProfile {
		if haveToken || haveProfile {
			_ = s.Clear()
		}
		return "", nil, false
	}

	token, err := s.open(sealed)
	if err != nil {
		_ = s.Clear()
		return "", nil, false
	}

	var p Profile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		_ = s.Clear()
		return "", nil, false
	}

	return token, &p, true
}

// Clear removes both keys. Idempotent: clearing an empty store is a no-op.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM session WHERE key IN (?, ?)`, keyToken, keyProfile)
	if err != nil {
		return fmt.Errorf("failed to clear session store: %w", err)
	}
	return nil
}

func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// =============================================================================
// SEALING (AES-256-GCM, key from machine-local keyfile)
// =============================================================================

func (s *Store) seal(plaintext string) (string, error) {
	aead, err := newAEAD(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, storeNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Store) open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return "", errSealCorrupt
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(raw) < storeNonceSize {
		return "", errSealCorrupt
	}

	aead, err := newAEAD(s.key)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, raw[:storeNonceSize], raw[storeNonceSize:], nil)
	if err != nil {
		return "", errSealCorrupt
	}
	return string(plaintext), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// loadOrCreateKey loads the sealing key from the keyfile, generating a fresh
// one on first run. The keyfile holds base64(salt|secret); the AES key is
// derived with PBKDF2-SHA-256 (NIST SP 800-132).
func loadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		material, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if decErr == nil && len(material) == storeSaltSize+storeKeySize {
			salt, secret := material[:storeSaltSize], material[storeSaltSize:]
			return pbkdf2.Key(secret, salt, storeIterations, storeKeySize, sha256.New), nil
		}
		// Unusable keyfile: fall through and mint a new one. Any previously
		// sealed token becomes unopenable, which Load treats as "no session".
	}

	material := make([]byte, storeSaltSize+storeKeySize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(material)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write keyfile: %w", err)
	}

	salt, secret := material[:storeSaltSize], material[storeSaltSize:]
	return pbkdf2.Key(secret, salt, storeIterations, storeKeySize, sha256.New), nil
}
