package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/doc-history/internal"
	"github.com/spf13/cobra"
)

var (
	timelineDedupe     bool
	timelineLenient    bool
	timelineWorkers    int
	timelineClearCache bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

// timelineOptions controls how a timeline is produced
type timelineOptions struct {
	dedupe     bool
	lenient    bool
	workers    int
	clearCache bool
}

// timelineResult is a built or cached timeline
type timelineResult struct {
	timeline  *internal.Timeline
	skipped   []internal.SkippedUpdate
	fromCache bool
	dropped   int // entries removed by deduplication
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <document-id>",
	Short: "Show a document's update timeline",
	Long: `Decode every update of a document and show one row per update: time,
author, size, struct count, touched clients, deletions and content hash.

Timelines are cached per document and rebuilt when new commits arrive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := loadTimeline(cmd.Context(), cfg, args[0], timelineOptions{
			dedupe:     timelineDedupe,
			lenient:    timelineLenient,
			workers:    timelineWorkers,
			clearCache: timelineClearCache,
		})
		if err != nil {
			return err
		}

		displayTimeline(cmd.OutOrStdout(), result)
		return nil
	},
}

// loadTimeline returns the timeline of documentID, from the cache when it
// still matches the store
func loadTimeline(ctx context.Context, cfg *internal.Config, documentID string, opts timelineOptions) (*timelineResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(cfg, true, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	doc, err := findDocument(store, documentID)
	if err != nil {
		return nil, err
	}

	builder, err := newBuilder(cfg)
	if err != nil {
		return nil, err
	}

	var cacheManager *internal.CacheManager
	if cfg.Cache.Enabled {
		cacheManager = internal.NewCacheManager(cfg.Cache.Dir)
		if opts.clearCache {
			if err := cacheManager.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}
	}

	result := &timelineResult{}
	if cacheManager != nil && cacheManager.IsCacheValid(store.Path(), doc, builder.HasherName()) {
		internal.LogInfo("Loading timeline from cache...")
		timeline, err := cacheManager.LoadTimeline(documentID)
		if err == nil {
			result.timeline = timeline
			result.fromCache = true
		} else {
			internal.LogWarn("Failed to load cache: %v, rebuilding...", err)
		}
	}

	if result.timeline == nil {
		workers := opts.workers
		if workers == 0 {
			workers = cfg.Workers
		}

		var updates []internal.VersionHistoryUpdate
		var entries []internal.UpdateTimelineEntry
		steps := []internal.ProgressStep{
			{
				Message: fmt.Sprintf("Loading commits of %s", documentID),
				Fn: func() error {
					var loadErr error
					updates, loadErr = internal.LoadDocumentUpdates(store, documentID)
					return loadErr
				},
			},
			{
				Message: "Building timeline",
				Fn: func() error {
					var buildErr error
					if opts.lenient {
						entries, result.skipped, buildErr = builder.BuildTimelineLenient(ctx, updates, workers)
					} else {
						entries, buildErr = builder.BuildTimeline(ctx, updates, workers)
					}
					return buildErr
				},
			},
		}
		if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
			return nil, err
		}

		result.timeline = internal.NewTimeline(documentID, entries, builder.HasherName())

		// a lenient build with skipped updates is incomplete
		if cacheManager != nil && len(result.skipped) == 0 {
			if err := cacheManager.SaveTimeline(result.timeline, store.Path(), doc.CommitCount); err != nil {
				internal.LogWarn("Failed to save cache: %v", err)
			}
		}
	}

	if opts.dedupe {
		before := len(result.timeline.Entries)
		deduped := internal.NewDeduplicator().Deduplicate(result.timeline.Entries)
		result.timeline = internal.NewTimeline(documentID, deduped, result.timeline.Metadata.Hasher)
		result.dropped = before - len(deduped)
	}

	return result, nil
}

// findDocument looks up a document and its commit count
func findDocument(store internal.StorageBackend, documentID string) (internal.Document, error) {
	docs, err := store.ListDocuments()
	if err != nil {
		return internal.Document{}, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if doc.ID == documentID {
			return doc, nil
		}
	}
	return internal.Document{}, fmt.Errorf("%w: %s (use 'doc-history list' to see available documents)", internal.ErrDocumentNotFound, documentID)
}

func displayTimeline(out io.Writer, result *timelineResult) {
	timeline := result.timeline
	if len(timeline.Entries) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📜 No updates in %s", timeline.DocumentID)))
		return
	}

	source := "built"
	if result.fromCache {
		source = "cached"
	}
	header := headerStyle.Render(fmt.Sprintf("📜 %d update(s) in %s (%s, %s)",
		len(timeline.Entries), timeline.DocumentID, internal.FormatBytes(timeline.Metadata.TotalSize), source))
	_, _ = fmt.Fprintln(out, header)
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, strings.Join([]string{
		titleStyle.Render("#"),
		titleStyle.Render("Time"),
		titleStyle.Render("Author"),
		titleStyle.Render("Size"),
		titleStyle.Render("Structs"),
		titleStyle.Render("Clients"),
		titleStyle.Render("Deletes"),
		titleStyle.Render("Hash"),
	}, "\t")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for i, entry := range timeline.Entries {
		size := internal.FormatBytes(entry.Size)
		if entry.Compressed {
			size += " z"
		}

		clients := make([]string, len(entry.StructClientIDs))
		for j, id := range entry.StructClientIDs {
			clients[j] = fmt.Sprintf("%d", id)
		}

		deletes := 0
		for _, n := range entry.DeleteSet {
			deletes += n
		}

		hash := entry.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(fmt.Sprintf("%d", i)),
			dateStyle.Render(formatTime(entry.Time())),
			authorStyle.Render(truncate(entry.AuthorAddress, 30)),
			size,
			countStyle.Render(fmt.Sprintf("%d", entry.StructCount)),
			truncate(strings.Join(clients, ","), 24),
			fmt.Sprintf("%d", deletes),
			idStyle.Render(hash),
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("Authors: %s  Hasher: %s",
		strings.Join(timeline.Authors(), ", "), timeline.Metadata.Hasher)))
	if result.dropped > 0 {
		_, _ = fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("%d duplicate update(s) hidden", result.dropped)))
	}
	for _, s := range result.skipped {
		_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Skipped update %d by %s: %v", s.Index, s.AuthorAddress, s.Err)))
	}
}

// formatTime renders t relative to now the way the list view does
func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 0:
		return t.Format("2006-01-02 15:04")
	case diff < 24*time.Hour:
		return t.Format("Today 15:04:05")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

// truncate shortens s to max runes
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().BoolVar(&timelineDedupe, "dedupe", false, "Hide updates whose content repeats an earlier one")
	timelineCmd.Flags().BoolVar(&timelineLenient, "lenient", false, "Skip updates that fail to decode instead of failing")
	timelineCmd.Flags().IntVarP(&timelineWorkers, "workers", "w", 0, "Concurrent decoders (default: config value, then CPU count)")
	timelineCmd.Flags().BoolVar(&timelineClearCache, "clear-cache", false, "Clear the cache before running")
}
