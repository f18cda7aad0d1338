package export

import (
	"io"

	"github.com/iksnae/doc-history/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports timelines in YAML format
type YAMLExporter struct{}

// Export exports a timeline to YAML format
func (e *YAMLExporter) Export(timeline *internal.Timeline, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(timeline)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
