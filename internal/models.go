package internal

import (
	"time"
)

// Message is one unit of change inside a commit
type Message struct {
	Content       []byte `json:"content"` // possibly compressed
	Timestamp     int64  `json:"timestamp"`
	AuthorAddress string `json:"author_address"`
}

// Commit is an ordered batch of messages for one document
type Commit struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Seq        int64     `json:"seq"`
	CreatedAt  int64     `json:"created_at"`
	Messages   []Message `json:"messages"`
}

// Document is a stored document and the size of its commit log
type Document struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	CreatedAt   int64  `json:"created_at" yaml:"created_at"`
	CommitCount int    `json:"commit_count" yaml:"commit_count"`
}

// VersionHistoryUpdate is the normalized form of a message. Content is
// always canonical.
type VersionHistoryUpdate struct {
	Content       []byte `json:"content"`
	Timestamp     int64  `json:"timestamp"`
	AuthorAddress string `json:"author_address"`
	Compressed    bool   `json:"compressed,omitempty"` // source message was compressed
}

// UpdateTimelineEntry is the analytical summary of one update
type UpdateTimelineEntry struct {
	Timestamp       int64          `json:"timestamp" yaml:"timestamp"`
	AuthorAddress   string         `json:"author_address" yaml:"author_address"`
	Size            int            `json:"size" yaml:"size"`
	StructCount     int            `json:"struct_count" yaml:"struct_count"`
	StructClientIDs []uint64       `json:"struct_client_ids" yaml:"struct_client_ids"`
	StructTypes     []string       `json:"struct_types" yaml:"struct_types"`
	ContentTypes    []string       `json:"content_types" yaml:"content_types"`
	DeleteSet       map[uint64]int `json:"delete_set" yaml:"delete_set"`
	Hash            string         `json:"hash" yaml:"hash"`
	Compressed      bool           `json:"compressed" yaml:"compressed"`
}

// Time returns the entry timestamp as a time.Time
func (e *UpdateTimelineEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// VersionHistoryBatch is a run of consecutive updates by one author
type VersionHistoryBatch struct {
	AuthorAddress string                 `json:"author_address"`
	Start         int64                  `json:"start"`
	End           int64                  `json:"end"`
	Updates       []VersionHistoryUpdate `json:"updates"`
}

// TimelineMetadata describes how a timeline was produced
type TimelineMetadata struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	EntryCount  int       `json:"entry_count" yaml:"entry_count"`
	TotalSize   int       `json:"total_size" yaml:"total_size"`
	Hasher      string    `json:"hasher" yaml:"hasher"`
}

// Timeline is the chronological list of entries for one document
type Timeline struct {
	DocumentID string                `json:"document_id" yaml:"document_id"`
	Entries    []UpdateTimelineEntry `json:"entries" yaml:"entries"`
	Metadata   TimelineMetadata      `json:"metadata" yaml:"metadata"`
}

// NewTimeline assembles a timeline and fills its metadata
func NewTimeline(documentID string, entries []UpdateTimelineEntry, hasher string) *Timeline {
	total := 0
	for i := range entries {
		total += entries[i].Size
	}
	return &Timeline{
		DocumentID: documentID,
		Entries:    entries,
		Metadata: TimelineMetadata{
			GeneratedAt: time.Now(),
			EntryCount:  len(entries),
			TotalSize:   total,
			Hasher:      hasher,
		},
	}
}

// Authors returns the distinct authors of the timeline in first-seen order
func (t *Timeline) Authors() []string {
	seen := make(map[string]bool)
	var authors []string
	for _, e := range t.Entries {
		if !seen[e.AuthorAddress] {
			seen[e.AuthorAddress] = true
			authors = append(authors, e.AuthorAddress)
		}
	}
	return authors
}
