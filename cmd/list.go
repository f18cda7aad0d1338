package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/doc-history/internal"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Long:  `List all documents in the commit store with their commit counts.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openStore(cfg, true, false)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		docs, err := store.ListDocuments()
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		displayDocuments(cmd.OutOrStdout(), docs)
		return nil
	},
}

func displayDocuments(out io.Writer, docs []internal.Document) {
	if len(docs) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No documents found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d document(s)", len(docs)))
	_, _ = fmt.Fprintln(out, header)
	_, _ = fmt.Fprintln(out)

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Commits")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	for _, doc := range docs {
		name := doc.Name
		if name == "" {
			name = "Untitled"
		}
		name = nameStyle.Render(truncate(name, 40))

		created := dateStyle.Render("—")
		if doc.CreatedAt > 0 {
			created = dateStyle.Render(formatTime(time.UnixMilli(doc.CreatedAt)))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(doc.ID), name, countStyle.Render(strconv.Itoa(doc.CommitCount)), created)
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(docs[0].ID)+
		idStyle.Render(") with `doc-history timeline <id>`"))
}

func init() {
	rootCmd.AddCommand(listCmd)
}
