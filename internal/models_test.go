package internal

import (
	"reflect"
	"testing"
	"time"
)

func TestNewTimeline(t *testing.T) {
	entries := []UpdateTimelineEntry{
		{Timestamp: 1000, AuthorAddress: "alice", Size: 14},
		{Timestamp: 1100, AuthorAddress: "bob", Size: 6},
		{Timestamp: 1200, AuthorAddress: "alice", Size: 10},
	}

	before := time.Now()
	timeline := NewTimeline("doc-1", entries, HasherSHA256)

	if timeline.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, want doc-1", timeline.DocumentID)
	}
	if timeline.Metadata.EntryCount != 3 {
		t.Errorf("EntryCount = %d, want 3", timeline.Metadata.EntryCount)
	}
	if timeline.Metadata.TotalSize != 30 {
		t.Errorf("TotalSize = %d, want 30", timeline.Metadata.TotalSize)
	}
	if timeline.Metadata.Hasher != HasherSHA256 {
		t.Errorf("Hasher = %q, want %q", timeline.Metadata.Hasher, HasherSHA256)
	}
	if timeline.Metadata.GeneratedAt.Before(before) {
		t.Errorf("GeneratedAt = %v, want at or after %v", timeline.Metadata.GeneratedAt, before)
	}
}

func TestNewTimeline_Empty(t *testing.T) {
	timeline := NewTimeline("doc-1", nil, HasherSHA1)
	if timeline.Metadata.EntryCount != 0 || timeline.Metadata.TotalSize != 0 {
		t.Errorf("Metadata = %+v, want zero counts", timeline.Metadata)
	}
	if authors := timeline.Authors(); len(authors) != 0 {
		t.Errorf("Authors() = %v, want none", authors)
	}
}

func TestTimeline_Authors(t *testing.T) {
	timeline := &Timeline{Entries: []UpdateTimelineEntry{
		{AuthorAddress: "carol"},
		{AuthorAddress: "alice"},
		{AuthorAddress: "carol"},
		{AuthorAddress: "bob"},
	}}

	want := []string{"carol", "alice", "bob"}
	if got := timeline.Authors(); !reflect.DeepEqual(got, want) {
		t.Errorf("Authors() = %v, want %v", got, want)
	}
}

func TestUpdateTimelineEntry_Time(t *testing.T) {
	entry := UpdateTimelineEntry{Timestamp: 1700000000123}
	got := entry.Time()
	if got.UnixMilli() != 1700000000123 {
		t.Errorf("Time().UnixMilli() = %d, want 1700000000123", got.UnixMilli())
	}
}
