package internal

// Deduplicator removes timeline entries whose canonical content was already seen
type Deduplicator struct {
	seen map[string]bool
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]bool)}
}

// Deduplicate keeps the first entry for each hash. The deduplicator
// remembers hashes across calls, so a document's commits can be fed in turn.
func (d *Deduplicator) Deduplicate(entries []UpdateTimelineEntry) []UpdateTimelineEntry {
	unique := make([]UpdateTimelineEntry, 0, len(entries))
	for _, entry := range entries {
		if d.seen[entry.Hash] {
			LogDebug("Dropping duplicate update %s by %s", entry.Hash, entry.AuthorAddress)
			continue
		}
		d.seen[entry.Hash] = true
		unique = append(unique, entry)
	}
	return unique
}

// Seen returns the number of distinct hashes observed
func (d *Deduplicator) Seen() int {
	return len(d.seen)
}
