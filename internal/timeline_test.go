package internal

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/doc-history/internal/lib0"
	"github.com/iksnae/doc-history/internal/yupdate"
)

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestBuildEntry_CanonicalContent(t *testing.T) {
	b := NewTimelineBuilder()
	update := VersionHistoryUpdate{Content: textInsertFixture, Timestamp: 1700000000000, AuthorAddress: "alice@example.com"}

	entry, err := b.BuildEntry(context.Background(), update)
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000000), entry.Timestamp)
	assert.Equal(t, "alice@example.com", entry.AuthorAddress)
	assert.Equal(t, len(textInsertFixture), entry.Size)
	assert.Equal(t, 1, entry.StructCount)
	assert.Equal(t, []uint64{7}, entry.StructClientIDs)
	assert.Equal(t, []string{"Item"}, entry.StructTypes)
	assert.Equal(t, []string{"ContentString"}, entry.ContentTypes)
	assert.Equal(t, map[uint64]int{}, entry.DeleteSet)
	assert.Equal(t, sha1Hex(textInsertFixture), entry.Hash)
	assert.False(t, entry.Compressed)
}

func TestBuildEntry_CompressedContent(t *testing.T) {
	b := NewTimelineBuilder()
	compressed := CreateTestCompressedUpdate(textInsertFixture)

	entry, err := b.BuildEntry(context.Background(), VersionHistoryUpdate{Content: compressed, Timestamp: 5, AuthorAddress: "bob"})
	require.NoError(t, err)

	assert.Equal(t, len(textInsertFixture), entry.Size, "size is measured on canonical bytes")
	assert.Equal(t, sha1Hex(textInsertFixture), entry.Hash, "hash is computed on canonical bytes")
	assert.True(t, entry.Compressed)
	assert.Equal(t, 1, entry.StructCount)
}

func TestBuildEntry_DeleteSetOmitsEmptyClients(t *testing.T) {
	entry, err := NewTimelineBuilder().BuildEntry(context.Background(), VersionHistoryUpdate{Content: deleteSetFixture})
	require.NoError(t, err)

	assert.Equal(t, map[uint64]int{3: 4}, entry.DeleteSet)
	assert.Zero(t, entry.StructCount)
	assert.Empty(t, entry.StructClientIDs)
}

func TestBuildEntry_Failures(t *testing.T) {
	tests := []struct {
		name      string
		content   []byte
		wantStage string
	}{
		{"corrupted length prefix", corruptLengthFixture, "decode"},
		{"truncated", textInsertFixture[:5], "decode"},
		{"empty", []byte{}, "decode"},
		{"corrupt compressed payload", []byte{0x00, 'Y', 'Z', EnvelopeZstd, 1, 2, 3}, "decompress"},
		{"unknown envelope version", []byte{0x00, 'Y', 'Z', 0x09, 1, 2, 3}, "decompress"},
		{"compressed garbage", CreateTestCompressedUpdate([]byte{0xff}), "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewTimelineBuilder().BuildEntry(context.Background(), VersionHistoryUpdate{Content: tt.content})
			assert.Nil(t, entry)

			var decErr *DecodingError
			require.True(t, errors.As(err, &decErr), "got %v", err)
			assert.Equal(t, tt.wantStage, decErr.Stage)
			if tt.wantStage == "decode" {
				assert.ErrorIs(t, err, yupdate.ErrMalformed)
				assert.GreaterOrEqual(t, decErr.Offset, 0)
			}
		})
	}
}

// deeplyNestedAny is an update whose single ContentAny value nests depth
// one-element arrays
func deeplyNestedAny(depth int) []byte {
	content := []byte{1, 1, 7, 0, 8, 1, 1, 'a', 1}
	for i := 0; i < depth; i++ {
		content = append(content, 117, 1)
	}
	return append(content, 126, 0)
}

func TestBuildEntry_DeeplyNestedAny(t *testing.T) {
	nested := deeplyNestedAny(2_000_000)
	compressed := CreateTestCompressedUpdate(nested)

	for name, content := range map[string][]byte{"canonical": nested, "compressed": compressed} {
		t.Run(name, func(t *testing.T) {
			entry, err := NewTimelineBuilder().BuildEntry(context.Background(), VersionHistoryUpdate{Content: content})
			assert.Nil(t, entry)

			var decErr *DecodingError
			require.True(t, errors.As(err, &decErr), "got %v", err)
			assert.Equal(t, "decode", decErr.Stage)
			assert.ErrorIs(t, err, lib0.ErrMaxDepth)
			assert.ErrorIs(t, err, yupdate.ErrMalformed)
		})
	}
}

func TestBuildTimelineLenient_SkipsDeeplyNestedAny(t *testing.T) {
	updates := []VersionHistoryUpdate{
		{Content: textInsertFixture, Timestamp: 1, AuthorAddress: "alice"},
		{Content: deeplyNestedAny(5000), Timestamp: 2, AuthorAddress: "mallory"},
	}

	entries, skipped, err := NewTimelineBuilder().BuildTimelineLenient(context.Background(), updates, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
	assert.ErrorIs(t, skipped[0].Err, lib0.ErrMaxDepth)
}

type stubHasher struct {
	name  string
	sum   func(ctx context.Context, content []byte) (string, error)
	calls atomic.Int32
}

func (h *stubHasher) Name() string { return h.name }

func (h *stubHasher) Sum(ctx context.Context, content []byte) (string, error) {
	h.calls.Add(1)
	return h.sum(ctx, content)
}

func TestBuildEntry_DigestFault(t *testing.T) {
	h := &stubHasher{name: "stub", sum: func(context.Context, []byte) (string, error) {
		return "", errors.New("primitive unavailable")
	}}

	entry, err := NewTimelineBuilder(WithHasher(h)).BuildEntry(context.Background(), VersionHistoryUpdate{Content: textInsertFixture})
	assert.Nil(t, entry)

	var fault *DigestFault
	require.True(t, errors.As(err, &fault), "got %v", err)
	assert.Equal(t, "stub", fault.Algorithm)
}

func TestBuildEntry_DecodeFailureSkipsHashing(t *testing.T) {
	h := &stubHasher{name: "stub", sum: func(context.Context, []byte) (string, error) { return "00", nil }}

	_, err := NewTimelineBuilder(WithHasher(h)).BuildEntry(context.Background(), VersionHistoryUpdate{Content: corruptLengthFixture})
	require.Error(t, err)
	assert.Zero(t, h.calls.Load())
}

type fixedDecoder struct {
	update *yupdate.Update
}

func (d fixedDecoder) Decode([]byte) (*yupdate.Update, error) {
	return d.update, nil
}

func TestBuildEntry_CustomDecoder(t *testing.T) {
	dec := fixedDecoder{update: &yupdate.Update{
		Structs: []yupdate.Struct{
			{Kind: yupdate.KindGC, Client: 1, Length: 2},
			{Kind: yupdate.KindGC, Client: 2, Length: 1},
			{Kind: yupdate.KindSkip, Client: 1, Clock: 2, Length: 1},
		},
	}}

	entry, err := NewTimelineBuilder(WithDecoder(dec)).BuildEntry(context.Background(), VersionHistoryUpdate{Content: []byte("opaque")})
	require.NoError(t, err)
	assert.Equal(t, 3, entry.StructCount)
	assert.Equal(t, []uint64{1, 2}, entry.StructClientIDs)
	assert.Equal(t, []string{"GC", "Skip"}, entry.StructTypes)
}

func TestExtractBatch_PreservesOrderAndDecompresses(t *testing.T) {
	c0 := CreateTestUpdate(1, "zero")
	c1 := CreateTestUpdate(2, "one")
	c2 := CreateTestUpdate(3, "two")

	commit := CreateTestCommit("doc-1", 0,
		CreateTestMessage(c0, 100, "alice"),
		CreateTestMessage(CreateTestCompressedUpdate(c1), 200, "bob"),
		CreateTestMessage(c2, 300, "alice"),
	)

	updates, err := ExtractBatch(commit)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	want := [][]byte{c0, c1, c2}
	for i, u := range updates {
		assert.True(t, bytes.Equal(want[i], u.Content), "update %d content", i)
		assert.False(t, IsCompressed(u.Content), "update %d still carries the envelope", i)
		assert.Equal(t, commit.Messages[i].Timestamp, u.Timestamp)
		assert.Equal(t, commit.Messages[i].AuthorAddress, u.AuthorAddress)
	}
	assert.False(t, updates[0].Compressed)
	assert.True(t, updates[1].Compressed)
	assert.False(t, updates[2].Compressed)
}

func TestExtractBatch_DoesNotDecode(t *testing.T) {
	// malformed canonical content passes through untouched
	commit := CreateTestCommit("doc-1", 0, CreateTestMessage(corruptLengthFixture, 1, "alice"))

	updates, err := ExtractBatch(commit)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, corruptLengthFixture, updates[0].Content)
}

func TestExtractBatch_CorruptCompressedMessage(t *testing.T) {
	commit := CreateTestCommit("doc-1", 0,
		CreateTestMessage(textInsertFixture, 1, "alice"),
		CreateTestMessage([]byte{0x00, 'Y', 'Z', EnvelopeZstd, 0xff}, 2, "alice"),
	)

	updates, err := ExtractBatch(commit)
	assert.Nil(t, updates)

	var decErr *DecodingError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "decompress", decErr.Stage)
	assert.Contains(t, err.Error(), "message 1")
}

func TestExtractUpdates_FlattensCommits(t *testing.T) {
	commits := []*Commit{
		CreateTestCommit("doc-1", 0, CreateTestMessage(CreateTestUpdate(1, "a"), 1, "alice")),
		CreateTestCommit("doc-1", 1,
			CreateTestMessage(CreateTestUpdate(2, "b"), 2, "bob"),
			CreateTestMessage(CreateTestUpdate(3, "c"), 3, "bob"),
		),
	}

	updates, err := ExtractUpdates(commits)
	require.NoError(t, err)
	require.Len(t, updates, 3)
	for i, u := range updates {
		assert.Equal(t, int64(i+1), u.Timestamp)
	}
}

func manyUpdates(n int) []VersionHistoryUpdate {
	updates := make([]VersionHistoryUpdate, n)
	for i := range updates {
		updates[i] = VersionHistoryUpdate{
			Content:       CreateTestUpdate(uint64(i+1), "x"),
			Timestamp:     int64(i),
			AuthorAddress: "alice",
		}
	}
	return updates
}

func TestBuildTimeline_PreservesInputOrder(t *testing.T) {
	updates := manyUpdates(40)

	// earlier updates hash slower so completion order is reversed
	h := &stubHasher{name: "slow", sum: func(ctx context.Context, content []byte) (string, error) {
		u, err := yupdate.Decode(content)
		if err != nil {
			return "", err
		}
		time.Sleep(time.Duration(41-u.Structs[0].Client) * 100 * time.Microsecond)
		return sha1Hex(content), nil
	}}

	entries, err := NewTimelineBuilder(WithHasher(h)).BuildTimeline(context.Background(), updates, 8)
	require.NoError(t, err)
	require.Len(t, entries, len(updates))
	for i, e := range entries {
		assert.Equal(t, int64(i), e.Timestamp)
		assert.Equal(t, []uint64{uint64(i + 1)}, e.StructClientIDs)
	}
	assert.Equal(t, int32(len(updates)), h.calls.Load())
}

func TestBuildTimeline_FirstErrorFails(t *testing.T) {
	updates := manyUpdates(10)
	updates[4].Content = corruptLengthFixture

	entries, err := NewTimelineBuilder().BuildTimeline(context.Background(), updates, 3)
	assert.Nil(t, entries)

	var decErr *DecodingError
	require.True(t, errors.As(err, &decErr))
	assert.Contains(t, err.Error(), "update 4")
}

func TestBuildTimeline_Empty(t *testing.T) {
	entries, err := NewTimelineBuilder().BuildTimeline(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildTimeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTimelineBuilder().BuildTimeline(ctx, manyUpdates(5), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildTimelineLenient_SkipsUndecodable(t *testing.T) {
	updates := manyUpdates(6)
	updates[1].Content = corruptLengthFixture
	updates[4].Content = []byte{0x00, 'Y', 'Z', 0x05}

	entries, skipped, err := NewTimelineBuilder().BuildTimelineLenient(context.Background(), updates, 2)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, []int64{0, 2, 3, 5}, []int64{entries[0].Timestamp, entries[1].Timestamp, entries[2].Timestamp, entries[3].Timestamp})

	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, 4, skipped[1].Index)
	for _, s := range skipped {
		var decErr *DecodingError
		assert.True(t, errors.As(s.Err, &decErr))
	}
}

func TestBuildTimelineLenient_DigestFaultAborts(t *testing.T) {
	h := &stubHasher{name: "stub", sum: func(context.Context, []byte) (string, error) {
		return "", &DigestFault{Algorithm: "stub", Err: errors.New("boom")}
	}}

	entries, skipped, err := NewTimelineBuilder(WithHasher(h)).BuildTimelineLenient(context.Background(), manyUpdates(3), 1)
	assert.Nil(t, entries)
	assert.Nil(t, skipped)

	var fault *DigestFault
	assert.True(t, errors.As(err, &fault))
}
