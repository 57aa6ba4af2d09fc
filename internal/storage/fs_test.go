package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store := NewFSStore(t.TempDir())

	require.NoError(t, store.Write("alice", "docs/a.txt", []byte("hello")))

	data, err := store.Read("alice", "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	exists, err := store.Exists("alice", "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	// Owners are isolated from each other
	_, err = store.Read("bob", "docs/a.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFSStoreRename(t *testing.T) {
	store := NewFSStore(t.TempDir())

	require.NoError(t, store.Write("alice", "old/a.txt", []byte("x")))
	require.NoError(t, store.Rename("alice", "old", "moved/new"))

	data, err := store.Read("alice", "moved/new/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	_, err = store.Read("alice", "old/a.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFSStoreRemoveTree(t *testing.T) {
	store := NewFSStore(t.TempDir())

	require.NoError(t, store.Write("alice", "tree/deep/a.txt", []byte("x")))
	require.NoError(t, store.Write("alice", "keep.txt", []byte("y")))

	require.NoError(t, store.RemoveTree("alice", "tree"))

	_, err := store.Read("alice", "tree/deep/a.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Read("alice", "keep.txt")
	assert.NoError(t, err)

	// The owner root itself is off limits
	assert.ErrorIs(t, store.RemoveTree("alice", ""), domain.ErrValidation)
	assert.ErrorIs(t, store.RemoveTree("alice", "  "), domain.ErrValidation)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	store := NewFSStore(t.TempDir())

	tests := []struct {
		name  string
		owner string
		path  string
	}{
		{"dotdot path", "alice", "../bob/a.txt"},
		{"nested dotdot", "alice", "docs/../../bob/a.txt"},
		{"owner with separator", "a/b", "a.txt"},
		{"empty owner", "", "a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Write(tt.owner, tt.path, []byte("x"))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
