package internal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/doc-history/internal/yupdate"
)

func update(author string, ts int64) VersionHistoryUpdate {
	return VersionHistoryUpdate{Content: CreateTestUpdate(uint64(ts+1), "x"), Timestamp: ts, AuthorAddress: author}
}

func TestGroupBatches(t *testing.T) {
	minute := int64(time.Minute / time.Millisecond)

	tests := []struct {
		name    string
		updates []VersionHistoryUpdate
		window  time.Duration
		want    [][2]int64 // start, end per batch
		authors []string
	}{
		{
			name:    "empty",
			updates: nil,
			window:  time.Minute,
		},
		{
			name:    "single author within window",
			updates: []VersionHistoryUpdate{update("alice", 0), update("alice", 30_000), update("alice", minute)},
			window:  time.Minute,
			want:    [][2]int64{{0, minute}},
			authors: []string{"alice"},
		},
		{
			name:    "gap exceeds window",
			updates: []VersionHistoryUpdate{update("alice", 0), update("alice", 2*minute)},
			window:  time.Minute,
			want:    [][2]int64{{0, 0}, {2 * minute, 2 * minute}},
			authors: []string{"alice", "alice"},
		},
		{
			name:    "author change splits",
			updates: []VersionHistoryUpdate{update("alice", 0), update("bob", 1), update("alice", 2)},
			window:  time.Hour,
			want:    [][2]int64{{0, 0}, {1, 1}, {2, 2}},
			authors: []string{"alice", "bob", "alice"},
		},
		{
			name:    "zero window splits on author only",
			updates: []VersionHistoryUpdate{update("alice", 0), update("alice", 100*minute), update("bob", 101*minute)},
			window:  0,
			want:    [][2]int64{{0, 100 * minute}, {101 * minute, 101 * minute}},
			authors: []string{"alice", "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := GroupBatches(tt.updates, tt.window)
			require.Len(t, batches, len(tt.want))

			total := 0
			for i, b := range batches {
				assert.Equal(t, tt.want[i][0], b.Start, "batch %d start", i)
				assert.Equal(t, tt.want[i][1], b.End, "batch %d end", i)
				assert.Equal(t, tt.authors[i], b.AuthorAddress)
				total += len(b.Updates)
			}
			assert.Equal(t, len(tt.updates), total, "no update is dropped or duplicated")
		})
	}
}

func TestMergeBatch_ReplayBundle(t *testing.T) {
	batch := GroupBatches([]VersionHistoryUpdate{update("alice", 0), update("alice", 1), update("alice", 2)}, time.Minute)[0]

	bundle := MergeBatch(batch)
	assert.Equal(t, byte(3), bundle[0])

	parts, err := SplitBundle(bundle)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	for i, p := range parts {
		assert.Equal(t, batch.Updates[i].Content, p)
		u, err := yupdate.Decode(p)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), u.Structs[0].Client)
	}
}

func TestMergeBatch_Empty(t *testing.T) {
	bundle := MergeBatch(VersionHistoryBatch{})
	assert.Equal(t, []byte{0}, bundle)

	parts, err := SplitBundle(bundle)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestSplitBundle_Truncated(t *testing.T) {
	bundle := MergeBatch(VersionHistoryBatch{Updates: []VersionHistoryUpdate{update("alice", 0)}})

	tests := map[string][]byte{
		"empty":           {},
		"missing payload": bundle[:len(bundle)-2],
		"count too large": {0x7f, 1, 0},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := SplitBundle(data)
			var decErr *DecodingError
			require.True(t, errors.As(err, &decErr), "got %v", err)
			assert.Equal(t, "bundle", decErr.Stage)
		})
	}
}
