package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T, dir string, opts StoreOptions) StorageBackend

var storeFactories = map[string]storeFactory{
	StoreTypeSQLite: func(t *testing.T, dir string, opts StoreOptions) StorageBackend {
		s, err := NewStorageBackend(StoreConfig{Type: StoreTypeSQLite, Path: filepath.Join(dir, "history.db")}, opts)
		require.NoError(t, err)
		return s
	},
	StoreTypePebble: func(t *testing.T, dir string, opts StoreOptions) StorageBackend {
		s, err := NewStorageBackend(StoreConfig{Type: StoreTypePebble, Path: filepath.Join(dir, "history.pebble")}, opts)
		require.NoError(t, err)
		return s
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, newStore func(opts StoreOptions) StorageBackend)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			fn(t, func(opts StoreOptions) StorageBackend {
				s := factory(t, dir, opts)
				t.Cleanup(func() { _ = s.Close() })
				return s
			})
		})
	}
}

func TestStore_AppendAndLoad(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore func(StoreOptions) StorageBackend) {
		store := newStore(StoreOptions{})

		first := &Commit{DocumentID: "doc-a", Messages: []Message{
			CreateTestMessage(CreateTestUpdate(1, "hello"), 100, "alice"),
			CreateTestMessage(CreateTestCompressedUpdate(CreateTestUpdate(1, " world")), 110, "alice"),
		}}
		require.NoError(t, store.AppendCommit(first))
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, int64(0), first.Seq)
		assert.NotZero(t, first.CreatedAt)

		second := &Commit{DocumentID: "doc-a", Messages: []Message{
			CreateTestMessage(CreateTestDeleteUpdate(nil), 200, "bob"),
		}}
		require.NoError(t, store.AppendCommit(second))
		assert.Equal(t, int64(1), second.Seq)

		require.NoError(t, store.AppendCommit(&Commit{DocumentID: "doc-b"}))

		commits, err := store.LoadCommits("doc-a")
		require.NoError(t, err)
		require.Len(t, commits, 2)
		assert.Equal(t, first.ID, commits[0].ID)
		assert.Equal(t, second.ID, commits[1].ID)
		assert.Equal(t, first.Messages, commits[0].Messages)
		assert.Equal(t, second.Messages, commits[1].Messages)

		empty, err := store.LoadCommits("doc-b")
		require.NoError(t, err)
		require.Len(t, empty, 1)
		assert.Empty(t, empty[0].Messages)

		docs, err := store.ListDocuments()
		require.NoError(t, err)
		require.Len(t, docs, 2)
		counts := map[string]int{}
		for _, d := range docs {
			counts[d.ID] = d.CommitCount
		}
		assert.Equal(t, map[string]int{"doc-a": 2, "doc-b": 1}, counts)
	})
}

func TestStore_ManyCommitsStayOrdered(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore func(StoreOptions) StorageBackend) {
		store := newStore(StoreOptions{})
		for i := 0; i < 12; i++ {
			c := &Commit{DocumentID: "doc", Messages: []Message{CreateTestMessage(CreateTestUpdate(uint64(i+1), "x"), int64(i), "alice")}}
			require.NoError(t, store.AppendCommit(c))
		}

		commits, err := store.LoadCommits("doc")
		require.NoError(t, err)
		require.Len(t, commits, 12)
		for i, c := range commits {
			assert.Equal(t, int64(i), c.Seq)
			assert.Equal(t, int64(i), c.Messages[0].Timestamp)
		}
	})
}

func TestStore_DocumentNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore func(StoreOptions) StorageBackend) {
		_, err := newStore(StoreOptions{}).LoadCommits("missing")

		var storageErr *StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})
}

func TestStore_PutDocument(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore func(StoreOptions) StorageBackend) {
		store := newStore(StoreOptions{})
		require.NoError(t, store.PutDocument(Document{ID: "doc", Name: "Draft"}))
		require.NoError(t, store.AppendCommit(&Commit{DocumentID: "doc"}))
		require.NoError(t, store.PutDocument(Document{ID: "doc", Name: "Final"}))

		docs, err := store.ListDocuments()
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Final", docs[0].Name)
		assert.Equal(t, 1, docs[0].CommitCount)
	})
}

func TestStore_SealedMessages(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	opener := NewAgeOpener(identity)
	sealer, err := opener.Sealer()
	require.NoError(t, err)

	forEachStore(t, func(t *testing.T, newStore func(StoreOptions) StorageBackend) {
		store := newStore(StoreOptions{Opener: opener, Sealer: sealer})
		content := CreateTestUpdate(9, "secret")
		require.NoError(t, store.AppendCommit(&Commit{DocumentID: "doc", Messages: []Message{CreateTestMessage(content, 1, "alice")}}))

		commits, err := store.LoadCommits("doc")
		require.NoError(t, err)
		assert.Equal(t, content, commits[0].Messages[0].Content)
		require.NoError(t, store.Close())

		withoutOpener := newStore(StoreOptions{ReadOnly: true})
		_, err = withoutOpener.LoadCommits("doc")
		var storageErr *StorageError
		require.True(t, errors.As(err, &storageErr), "got %v", err)
		assert.Equal(t, "unseal", storageErr.Op)
		assert.ErrorIs(t, err, ErrNoOpener)
	})
}

func TestStore_ReadOnlyMissing(t *testing.T) {
	for name := range storeFactories {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := NewStorageBackend(StoreConfig{Type: name, Path: filepath.Join(dir, "absent")}, StoreOptions{ReadOnly: true})
			var storageErr *StorageError
			require.True(t, errors.As(err, &storageErr), "got %v", err)
			assert.Equal(t, "open", storageErr.Op)
		})
	}
}

func TestNewStorageBackend_UnknownType(t *testing.T) {
	_, err := NewStorageBackend(StoreConfig{Type: "s3", Path: "bucket"}, StoreOptions{})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "store.type", cfgErr.Key)
}

func TestPebbleStore_RejectsSeparatorInID(t *testing.T) {
	store, err := NewPebbleStore(filepath.Join(t.TempDir(), "p"), StoreOptions{})
	require.NoError(t, err)
	defer store.Close()

	err = store.AppendCommit(&Commit{DocumentID: "a:b"})
	assert.Error(t, err)
}

func TestLoadDocumentUpdates_EndToEnd(t *testing.T) {
	forEachStore(t, func(t *testing.T, newStore func(StoreOptions) StorageBackend) {
		store := newStore(StoreOptions{})
		c0 := CreateTestUpdate(7, "a")
		c1 := CreateTestUpdate(8, "b")
		require.NoError(t, store.AppendCommit(&Commit{DocumentID: "doc", Messages: []Message{
			CreateTestMessage(c0, 1, "alice"),
			CreateTestMessage(CreateTestCompressedUpdate(c1), 2, "bob"),
		}}))

		updates, err := LoadDocumentUpdates(store, "doc")
		require.NoError(t, err)
		require.Len(t, updates, 2)
		assert.Equal(t, c0, updates[0].Content)
		assert.Equal(t, c1, updates[1].Content)

		entries, err := NewTimelineBuilder().BuildTimeline(context.Background(), updates, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint64{7}, entries[0].StructClientIDs)
		assert.Equal(t, []uint64{8}, entries[1].StructClientIDs)
		assert.True(t, entries[1].Compressed)
	})
}
