package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/iksnae/doc-history/internal"
	"github.com/iksnae/doc-history/internal/export"
	"github.com/spf13/cobra"
)

var (
	format        string
	outputDir     string
	exportDedupe  bool
	exportLenient bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Export a timeline to file",
	Long: `Export a document's timeline to one of several formats (jsonl, md, yaml, json).

The file is written to the output directory as timeline_<document-id>.<ext>.
Use --out - to write to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		documentID := args[0]

		// Create exporter first so a bad format fails before any work
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := loadTimeline(cmd.Context(), cfg, documentID, timelineOptions{
			dedupe:  exportDedupe,
			lenient: exportLenient,
		})
		if err != nil {
			return err
		}
		for _, s := range result.skipped {
			internal.PrintWarning(fmt.Sprintf("Skipped update %d by %s: %v", s.Index, s.AuthorAddress, s.Err))
		}

		if outputDir == "-" {
			if err := exporter.Export(result.timeline, cmd.OutOrStdout()); err != nil {
				return &internal.ExportError{Format: exporter.Extension(), Path: "-", Err: err}
			}
			return nil
		}

		// Ensure output directory exists
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		filename := fmt.Sprintf("timeline_%s.%s", url.PathEscape(documentID), exporter.Extension())
		path := filepath.Join(outputDir, filename)
		if err := export.WriteFile(exporter, result.timeline, path); err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d update(s) written to %s", len(result.timeline.Entries), path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory, or - for stdout")
	exportCmd.Flags().BoolVar(&exportDedupe, "dedupe", false, "Drop updates whose content repeats an earlier one")
	exportCmd.Flags().BoolVar(&exportLenient, "lenient", false, "Skip updates that fail to decode instead of failing")
}
