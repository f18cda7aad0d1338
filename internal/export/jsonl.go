package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/doc-history/internal"
)

// JSONLExporter exports timelines in JSONL format (one entry per line)
type JSONLExporter struct{}

type jsonlEntry struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	internal.UpdateTimelineEntry
}

// Export exports a timeline to JSONL format
func (e *JSONLExporter) Export(timeline *internal.Timeline, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, entry := range timeline.Entries {
		line := jsonlEntry{
			DocumentID:          timeline.DocumentID,
			Index:               i,
			UpdateTimelineEntry: entry,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
