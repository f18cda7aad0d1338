package export

import (
	"fmt"
	"io"
	"os"

	"github.com/iksnae/doc-history/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(timeline *internal.Timeline, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, &internal.ExportError{
			Format: format,
			Err:    fmt.Errorf("unsupported format (supported: jsonl, md, yaml, json)"),
		}
	}
}

// WriteFile exports timeline to path, replacing any existing file
func WriteFile(e Exporter, timeline *internal.Timeline, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &internal.ExportError{Format: e.Extension(), Path: path, Err: cerr}
		}
	}()

	if err := e.Export(timeline, f); err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	return nil
}
