package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/iksnae/doc-history/internal"
	"github.com/spf13/cobra"
)

var (
	batchOutput string
	batchWindow time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <document-id>",
	Short: "Group updates into per-author batches and write replay bundles",
	Long: `Extract a document's updates, group consecutive updates by the same author
into batches, and write each batch as a replay bundle.

A new batch starts when the author changes or when the gap to the previous
update exceeds the window. A window of 0 splits on author changes only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		documentID := args[0]

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		window := cfg.BatchWindow.Duration
		if cmd.Flags().Changed("window") {
			window = batchWindow
		}

		store, err := openStore(cfg, true, false)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		updates, err := internal.LoadDocumentUpdates(store, documentID)
		if err != nil {
			return err
		}
		batches := internal.GroupBatches(updates, window)

		// Ensure output directory exists
		if err := os.MkdirAll(batchOutput, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("File")+"\t"+titleStyle.Render("Author")+"\t"+titleStyle.Render("Updates")+"\t"+titleStyle.Render("Start")+"\t"+titleStyle.Render("End")+"\t")

		internal.LogInfo("Writing %d batch(es) of %s to %s", len(batches), documentID, batchOutput)
		for i, batch := range batches {
			filename := fmt.Sprintf("batch_%04d.ybundle", i)
			path := filepath.Join(batchOutput, filename)
			if err := os.WriteFile(path, internal.MergeBatch(batch), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
				filename,
				authorStyle.Render(truncate(batch.AuthorAddress, 30)),
				countStyle.Render(fmt.Sprintf("%d", len(batch.Updates))),
				dateStyle.Render(formatTime(time.UnixMilli(batch.Start))),
				dateStyle.Render(formatTime(time.UnixMilli(batch.End))),
			)
		}
		_ = w.Flush()

		internal.PrintSuccess(fmt.Sprintf("Wrote %d batch(es) from %d update(s) to %s", len(batches), len(updates), batchOutput))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchOutput, "out", "o", "./batches", "Output directory for replay bundles")
	batchCmd.Flags().DurationVar(&batchWindow, "window", internal.DefaultBatchWindow, "Maximum gap between updates of one batch (default: config value)")
}
