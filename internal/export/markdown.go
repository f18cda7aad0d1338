package export

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/iksnae/doc-history/internal"
)

// MarkdownExporter exports timelines as a Markdown table
type MarkdownExporter struct{}

// Export exports a timeline to Markdown format
func (e *MarkdownExporter) Export(timeline *internal.Timeline, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Timeline %s\n\n", escapeCell(timeline.DocumentID))

	_, _ = fmt.Fprintf(w, "**Entries:** %d  \n", len(timeline.Entries))
	_, _ = fmt.Fprintf(w, "**Total size:** %s  \n", internal.FormatBytes(timeline.Metadata.TotalSize))
	if timeline.Metadata.Hasher != "" {
		_, _ = fmt.Fprintf(w, "**Hasher:** %s  \n", timeline.Metadata.Hasher)
	}
	if authors := timeline.Authors(); len(authors) > 0 {
		escaped := make([]string, len(authors))
		for i, a := range authors {
			escaped[i] = escapeCell(a)
		}
		_, _ = fmt.Fprintf(w, "**Authors:** %s\n\n", strings.Join(escaped, ", "))
	} else {
		_, _ = fmt.Fprintf(w, "\n")
	}

	if len(timeline.Entries) == 0 {
		_, _ = fmt.Fprintf(w, "_No updates._\n")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| # | Time | Author | Size | Structs | Clients | Content | Deletes | Hash |\n")
	_, _ = fmt.Fprintf(w, "|---|------|--------|------|---------|---------|---------|---------|------|\n")

	for i, entry := range timeline.Entries {
		size := fmt.Sprintf("%d", entry.Size)
		if entry.Compressed {
			size += " (z)"
		}
		_, err := fmt.Fprintf(w, "| %d | %s | %s | %s | %d | %s | %s | %s | `%s` |\n",
			i,
			entry.Time().UTC().Format(time.RFC3339),
			escapeCell(entry.AuthorAddress),
			size,
			entry.StructCount,
			joinClients(entry.StructClientIDs),
			strings.Join(entry.ContentTypes, ", "),
			formatDeleteSet(entry.DeleteSet),
			entry.Hash,
		)
		if err != nil {
			return fmt.Errorf("failed to write entry %d: %w", i, err)
		}
	}

	return nil
}

// escapeCell escapes characters that would break a table row
func escapeCell(text string) string {
	text = strings.ReplaceAll(text, "|", "\\|")
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	text = strings.ReplaceAll(text, "\n", " ")
	return text
}

func joinClients(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

// formatDeleteSet renders client:count pairs ordered by client
func formatDeleteSet(ds map[uint64]int) string {
	if len(ds) == 0 {
		return "-"
	}
	clients := make([]uint64, 0, len(ds))
	for c := range ds {
		clients = append(clients, c)
	}
	slices.Sort(clients)

	parts := make([]string, len(clients))
	for i, c := range clients {
		parts[i] = fmt.Sprintf("%d:%d", c, ds[c])
	}
	return strings.Join(parts, ", ")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
