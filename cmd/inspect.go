package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/iksnae/doc-history/internal"
	"github.com/iksnae/doc-history/internal/yupdate"
	"github.com/spf13/cobra"
)

var (
	inspectFormat     string
	inspectMaxStructs int
)

// inspectReport is the decoded view of a single update file
type inspectReport struct {
	File     string                        `json:"file"`
	Entry    *internal.UpdateTimelineEntry `json:"entry"`
	Hasher   string                        `json:"hasher"`
	Update   *yupdate.Update               `json:"update"`
	Envelope string                        `json:"envelope,omitempty"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <update-file>",
	Short: "Decode a single update file",
	Long: `Decode one raw v1 update, compressed or not, and print its structs,
delete set and content hash.

This command is useful for debugging updates that fail to build into a
timeline.

Examples:
  doc-history inspect update.bin                 # Human-readable summary
  doc-history inspect update.bin --format json   # Full decoded update as JSON`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		builder, err := newBuilder(cfg)
		if err != nil {
			return err
		}

		report, err := inspectFile(cmd, builder, args[0])
		if err != nil {
			return err
		}

		switch inspectFormat {
		case "json":
			finiteValues(report.Update)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "text":
			printReport(cmd.OutOrStdout(), report)
			return nil
		default:
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}
	},
}

func inspectFile(cmd *cobra.Command, builder *internal.TimelineBuilder, path string) (*inspectReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read update file: %w", err)
	}

	entry, err := builder.BuildEntry(cmd.Context(), internal.VersionHistoryUpdate{Content: content})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	canonical := content
	report := &inspectReport{File: path, Entry: entry, Hasher: builder.HasherName()}
	if internal.IsCompressed(content) {
		report.Envelope = "zstd"
		if canonical, err = internal.Decompress(content); err != nil {
			return nil, err
		}
	}

	report.Update, err = yupdate.Decode(canonical)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func printReport(out io.Writer, r *inspectReport) {
	entry := r.Entry

	_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 "+r.File))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "📦 Size: %s", internal.FormatBytes(entry.Size))
	if r.Envelope != "" {
		_, _ = fmt.Fprintf(out, " (decompressed from %s envelope)", r.Envelope)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "🔑 Hash (%s): %s\n", r.Hasher, entry.Hash)
	_, _ = fmt.Fprintf(out, "📊 Structs: %d  Clients: %s\n", entry.StructCount, joinIDs(entry.StructClientIDs))
	if len(entry.ContentTypes) > 0 {
		_, _ = fmt.Fprintf(out, "🧩 Content: %s\n", strings.Join(entry.ContentTypes, ", "))
	}
	_, _ = fmt.Fprintln(out)

	if len(r.Update.Structs) > 0 {
		_, _ = fmt.Fprintln(out, infoStyle.Render("Structs:"))
		for i, s := range r.Update.Structs {
			if inspectMaxStructs > 0 && i >= inspectMaxStructs {
				_, _ = fmt.Fprintf(out, "  ... and %d more\n", len(r.Update.Structs)-i)
				break
			}
			_, _ = fmt.Fprintf(out, "  • %s %d:%d len %d%s\n", s.Kind, s.Client, s.Clock, s.Length, describeItem(s.Item))
		}
		_, _ = fmt.Fprintln(out)
	}

	if len(r.Update.DeleteSet) > 0 {
		_, _ = fmt.Fprintln(out, infoStyle.Render("Delete set:"))
		clients := make([]uint64, 0, len(r.Update.DeleteSet))
		for c := range r.Update.DeleteSet {
			clients = append(clients, c)
		}
		slices.Sort(clients)
		for _, c := range clients {
			ranges := make([]string, len(r.Update.DeleteSet[c]))
			for i, d := range r.Update.DeleteSet[c] {
				ranges[i] = fmt.Sprintf("[%d,%d)", d.Clock, d.Clock+d.Length)
			}
			if len(ranges) == 0 {
				ranges = append(ranges, "(empty)")
			}
			_, _ = fmt.Fprintf(out, "  • client %d: %s\n", c, strings.Join(ranges, " "))
		}
	} else {
		_, _ = fmt.Fprintln(out, dateStyle.Render("No deletions"))
	}
}

func describeItem(item *yupdate.Item) string {
	if item == nil {
		return ""
	}

	var b strings.Builder
	switch {
	case item.ParentKey != "":
		fmt.Fprintf(&b, " in %q", item.ParentKey)
	case item.ParentID != nil:
		fmt.Fprintf(&b, " in %d:%d", item.ParentID.Client, item.ParentID.Clock)
	}
	if item.ParentSub != nil {
		fmt.Fprintf(&b, ".%s", *item.ParentSub)
	}
	if item.Origin != nil {
		fmt.Fprintf(&b, " after %d:%d", item.Origin.Client, item.Origin.Clock)
	}
	if item.Content != nil {
		fmt.Fprintf(&b, " %s", item.Content.Name())
		if s, ok := item.Content.(*yupdate.ContentString); ok {
			fmt.Fprintf(&b, " %q", truncate(s.Str, 40))
		}
	}
	return b.String()
}

// finiteValues replaces NaN and infinities, which JSON cannot carry, with
// their string form
func finiteValues(u *yupdate.Update) {
	for _, s := range u.Structs {
		if s.Item == nil {
			continue
		}
		switch c := s.Item.Content.(type) {
		case *yupdate.ContentAny:
			for i, v := range c.Values {
				c.Values[i] = finiteValue(v)
			}
		case *yupdate.ContentFormat:
			c.Value = finiteValue(c.Value)
		case *yupdate.ContentEmbed:
			c.Embed = finiteValue(c.Embed)
		case *yupdate.ContentDoc:
			c.Opts = finiteValue(c.Opts)
		}
	}
}

func finiteValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 32)
		}
	case []interface{}:
		for i := range x {
			x[i] = finiteValue(x[i])
		}
	case map[string]interface{}:
		for k, e := range x {
			x[k] = finiteValue(e)
		}
	}
	return v
}

func joinIDs(ids []uint64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
	inspectCmd.Flags().IntVar(&inspectMaxStructs, "max-structs", 50, "Maximum number of structs to list (0 for all)")
}
