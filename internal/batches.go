package internal

import (
	"fmt"
	"time"

	"github.com/iksnae/doc-history/internal/lib0"
)

// DefaultBatchWindow is the gap after which an author's next update starts
// a new batch
const DefaultBatchWindow = 5 * time.Minute

// GroupBatches groups consecutive updates into batches. A new batch starts
// when the author changes or when the gap since the previous update exceeds
// window. A window of zero or less only splits on author changes.
func GroupBatches(updates []VersionHistoryUpdate, window time.Duration) []VersionHistoryBatch {
	var batches []VersionHistoryBatch
	for _, u := range updates {
		if n := len(batches); n > 0 {
			last := &batches[n-1]
			gap := time.Duration(u.Timestamp-last.End) * time.Millisecond
			if last.AuthorAddress == u.AuthorAddress && (window <= 0 || gap <= window) {
				last.Updates = append(last.Updates, u)
				if u.Timestamp > last.End {
					last.End = u.Timestamp
				}
				continue
			}
		}
		batches = append(batches, VersionHistoryBatch{
			AuthorAddress: u.AuthorAddress,
			Start:         u.Timestamp,
			End:           u.Timestamp,
			Updates:       []VersionHistoryUpdate{u},
		})
	}
	return batches
}

// MergeBatch encodes a batch as a replay bundle: the update count followed
// by each canonical update as a length-prefixed byte array
func MergeBatch(batch VersionHistoryBatch) []byte {
	enc := lib0.NewEncoder()
	enc.WriteVarUint(uint64(len(batch.Updates)))
	for _, u := range batch.Updates {
		enc.WriteVarUint8Array(u.Content)
	}
	return enc.Bytes()
}

// SplitBundle reverses MergeBatch
func SplitBundle(bundle []byte) ([][]byte, error) {
	dec := lib0.NewDecoder(bundle)
	n, err := dec.ReadVarUint()
	if err != nil {
		return nil, &DecodingError{Stage: "bundle", Offset: dec.Pos(), Err: err}
	}
	if n > uint64(dec.Remaining()) {
		return nil, &DecodingError{Stage: "bundle", Offset: dec.Pos(), Err: fmt.Errorf("update count %d exceeds input: %w", n, lib0.ErrUnexpectedEnd)}
	}

	updates := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		b, err := dec.ReadVarUint8Array()
		if err != nil {
			return nil, &DecodingError{Stage: "bundle", Offset: dec.Pos(), Err: fmt.Errorf("update %d: %w", i, err)}
		}
		updates = append(updates, append([]byte(nil), b...))
	}
	return updates, nil
}
