// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Save("tok-123", testProfile()))

	token, profile, ok := store.Load()
	require.True(t, ok, "saved session should load")
	assert.Equal(t, "tok-123", token)
	require.NotNil(t, profile)
	assert.Equal(t, "ana@example.com", profile.Email)
	assert.Equal(t, int64(7), profile.ID)
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("tok-persist", testProfile()))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	token, profile, ok := reopened.Load()
	require.True(t, ok)
	assert.Equal(t, "tok-persist", token)
	assert.Equal(t, "Ana", profile.Name)
}

func TestStoreTokenSealedAtRest(t *testing.T) {
	store, dir := openTestStore(t)
	require.NoError(t, store.Save("super-secret-token", testProfile()))

	db, err := sql.Open("sqlite", filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	defer db.Close()

	var raw string
	require.NoError(t, db.QueryRow(
		`SELECT value FROM session WHERE key = 'trading_token'`).Scan(&raw))

	assert.True(t, strings.HasPrefix(raw, "ENC:"), "token value should be sealed")
	assert.NotContains(t, raw, "super-secret-token")
}

func TestStoreRejectsPartialSession(t *testing.T) {
	store, _ := openTestStore(t)

	assert.Error(t, store.Save("", testProfile()))
	assert.Error(t, store.Save("tok", nil))

	_, _, ok := store.Load()
	assert.False(t, ok)
}

func TestStoreClearIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	require.NoError(t, store.Save("tok", testProfile()))

	require.NoError(t, store.Clear())
	_, _, ok := store.Load()
	assert.False(t, ok, "cleared store should be empty")

	// Clearing an already-empty store must not fail.
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestStoreSelfHealsCorruptProfile(t *testing.T) {
	store, dir := openTestStore(t)
	require.NoError(t, store.Save("tok", testProfile()))

	db, err := sql.Open("sqlite", filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE session SET value = '{broken' WHERE key = 'trading_user'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, _, ok := store.Load()
	assert.False(t, ok, "corrupt profile should read as absent")

	// The wipe must be durable: the next load starts from a clean slate.
	_, _, ok = store.Load()
	assert.False(t, ok)
}

func TestStoreSelfHealsUnopenableCiphertext(t *testing.T) {
	store, dir := openTestStore(t)
	require.NoError(t, store.Save("tok", testProfile()))

	db, err := sql.Open("sqlite", filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE session SET value = 'ENC:AAAA' WHERE key = 'trading_token'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, _, ok := store.Load()
	assert.False(t, ok, "unopenable ciphertext should read as absent")
}

func TestStoreSelfHealsPartialPair(t *testing.T) {
	store, dir := openTestStore(t)
	require.NoError(t, store.Save("tok", testProfile()))

	db, err := sql.Open("sqlite", filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM session WHERE key = 'trading_user'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, _, ok := store.Load()
	assert.False(t, ok, "half a pair should read as absent")

	var count int
	db2, err := sql.Open("sqlite", filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	defer db2.Close()
	require.NoError(t, db2.QueryRow(`SELECT COUNT(*) FROM session`).Scan(&count))
	assert.Zero(t, count, "orphaned half should have been wiped")
}

func TestStoreKeyfileRegeneration(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("tok", testProfile()))
	require.NoError(t, store.Close())

	// A lost or mangled keyfile makes the sealed token unopenable. The
	// store must come up clean rather than erroring.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.key"), []byte("garbage"), 0600))

	reopened, err := OpenStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	_, _, ok := reopened.Load()
	assert.False(t, ok, "token sealed under a lost key should read as absent")
}

func TestStoreKeyfilePermissions(t *testing.T) {
	_, dir := openTestStore(t)

	info, err := os.Stat(filepath.Join(dir, "session.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
