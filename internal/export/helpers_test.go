package export

import (
	"time"

	"github.com/iksnae/doc-history/internal"
)

func sampleTimeline() *internal.Timeline {
	entries := []internal.UpdateTimelineEntry{
		{
			Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
			AuthorAddress:   "alice",
			Size:            14,
			StructCount:     1,
			StructClientIDs: []uint64{7},
			StructTypes:     []string{"Item"},
			ContentTypes:    []string{"ContentString"},
			DeleteSet:       map[uint64]int{},
			Hash:            "5f2c",
		},
		{
			Timestamp:       time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC).UnixMilli(),
			AuthorAddress:   "bob|ops",
			Size:            6,
			StructCount:     0,
			StructClientIDs: []uint64{},
			StructTypes:     []string{},
			ContentTypes:    []string{},
			DeleteSet:       map[uint64]int{7: 1, 3: 4},
			Hash:            "9a1e",
			Compressed:      true,
		},
	}
	return internal.NewTimeline("doc-1", entries, internal.HasherSHA1)
}

func emptyTimeline() *internal.Timeline {
	return internal.NewTimeline("doc-empty", nil, internal.HasherSHA1)
}
