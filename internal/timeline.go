package internal

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/iksnae/doc-history/internal/yupdate"
)

// TimelineBuilder turns version history updates into timeline entries
type TimelineBuilder struct {
	decoder yupdate.Decoder
	hasher  Hasher
}

// BuilderOption configures a TimelineBuilder
type BuilderOption func(*TimelineBuilder)

// WithDecoder replaces the update decoder
func WithDecoder(d yupdate.Decoder) BuilderOption {
	return func(b *TimelineBuilder) {
		b.decoder = d
	}
}

// WithHasher replaces the content hasher
func WithHasher(h Hasher) BuilderOption {
	return func(b *TimelineBuilder) {
		b.hasher = h
	}
}

// NewTimelineBuilder creates a builder using the v1 decoder and sha1 unless
// overridden
func NewTimelineBuilder(opts ...BuilderOption) *TimelineBuilder {
	b := &TimelineBuilder{
		decoder: yupdate.V1Decoder{},
		hasher:  defaultHasher(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HasherName returns the name of the configured hasher
func (b *TimelineBuilder) HasherName() string {
	return b.hasher.Name()
}

// BuildEntry summarizes a single update. Sizes, structs and the hash are all
// computed over canonical bytes. On failure no entry is returned.
func (b *TimelineBuilder) BuildEntry(ctx context.Context, update VersionHistoryUpdate) (*UpdateTimelineEntry, error) {
	content := update.Content
	compressed := update.Compressed
	if IsCompressed(content) {
		canonical, err := Decompress(content)
		if err != nil {
			return nil, err
		}
		content = canonical
		compressed = true
	}

	decoded, err := b.decoder.Decode(content)
	if err != nil {
		return nil, newDecodeError(err)
	}
	sum := yupdate.Summarize(decoded)

	digest, err := b.hasher.Sum(ctx, content)
	if err != nil {
		var fault *DigestFault
		if errors.As(err, &fault) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &DigestFault{Algorithm: b.hasher.Name(), Err: err}
	}

	return &UpdateTimelineEntry{
		Timestamp:       update.Timestamp,
		AuthorAddress:   update.AuthorAddress,
		Size:            len(content),
		StructCount:     sum.StructCount,
		StructClientIDs: sum.ClientIDs,
		StructTypes:     sum.StructTypes,
		ContentTypes:    sum.ContentTypes,
		DeleteSet:       sum.DeleteSet,
		Hash:            digest,
		Compressed:      compressed,
	}, nil
}

func newDecodeError(err error) *DecodingError {
	offset := -1
	var fe *yupdate.FormatError
	if errors.As(err, &fe) {
		offset = fe.Offset
	}
	return &DecodingError{Stage: "decode", Offset: offset, Err: err}
}

// ExtractBatch flattens a commit into one update per message, in stored
// order. Compressed messages are decompressed; nothing is decoded or hashed.
func ExtractBatch(commit *Commit) ([]VersionHistoryUpdate, error) {
	updates := make([]VersionHistoryUpdate, 0, len(commit.Messages))
	for i, msg := range commit.Messages {
		update := VersionHistoryUpdate{
			Content:       msg.Content,
			Timestamp:     msg.Timestamp,
			AuthorAddress: msg.AuthorAddress,
		}
		if IsCompressed(msg.Content) {
			canonical, err := Decompress(msg.Content)
			if err != nil {
				return nil, fmt.Errorf("message %d of commit %s: %w", i, commit.ID, err)
			}
			update.Content = canonical
			update.Compressed = true
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// ExtractUpdates runs ExtractBatch over a document's commits in order
func ExtractUpdates(commits []*Commit) ([]VersionHistoryUpdate, error) {
	var updates []VersionHistoryUpdate
	for _, commit := range commits {
		batch, err := ExtractBatch(commit)
		if err != nil {
			return nil, err
		}
		updates = append(updates, batch...)
	}
	return updates, nil
}

// BuildTimeline builds entries concurrently on at most workers goroutines.
// Entries are returned in input order. The first failure cancels the
// remaining work and is returned.
func (b *TimelineBuilder) BuildTimeline(ctx context.Context, updates []VersionHistoryUpdate, workers int) ([]UpdateTimelineEntry, error) {
	entries := make([]UpdateTimelineEntry, len(updates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(normalizeWorkers(workers))
	for i := range updates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := b.BuildEntry(gctx, updates[i])
			if err != nil {
				return fmt.Errorf("update %d: %w", i, err)
			}
			entries[i] = *entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

// SkippedUpdate records an update left out of a lenient build
type SkippedUpdate struct {
	Index         int
	Timestamp     int64
	AuthorAddress string
	Err           error
}

// BuildTimelineLenient builds entries like BuildTimeline but skips updates
// whose content fails to decode. Digest faults and cancellation still abort.
func (b *TimelineBuilder) BuildTimelineLenient(ctx context.Context, updates []VersionHistoryUpdate, workers int) ([]UpdateTimelineEntry, []SkippedUpdate, error) {
	results := make([]*UpdateTimelineEntry, len(updates))
	failures := make([]error, len(updates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(normalizeWorkers(workers))
	for i := range updates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := b.BuildEntry(gctx, updates[i])
			if err != nil {
				var decErr *DecodingError
				if errors.As(err, &decErr) {
					failures[i] = err
					return nil
				}
				return fmt.Errorf("update %d: %w", i, err)
			}
			results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entries := make([]UpdateTimelineEntry, 0, len(updates))
	var skipped []SkippedUpdate
	for i := range updates {
		if failures[i] != nil {
			LogWarn("Skipping update %d by %s: %v", i, updates[i].AuthorAddress, failures[i])
			skipped = append(skipped, SkippedUpdate{
				Index:         i,
				Timestamp:     updates[i].Timestamp,
				AuthorAddress: updates[i].AuthorAddress,
				Err:           failures[i],
			})
			continue
		}
		entries = append(entries, *results[i])
	}

	return entries, skipped, nil
}

func normalizeWorkers(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}
