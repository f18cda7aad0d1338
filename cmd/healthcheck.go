package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/doc-history/internal"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that doc-history can read its config, store and cache",
	Long: `Check the health of doc-history by verifying:
  • Config file loading and validation
  • Commit store availability and access
  • Encryption identity, when configured
  • Cache directory access

This command is useful for debugging setup issues, especially in CI/CD environments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthcheck(cmd.OutOrStdout())
	},
}

func runHealthcheck(out io.Writer) error {
	say := func(a ...interface{}) { _, _ = fmt.Fprintln(out, a...) }
	detail := func(format string, a ...interface{}) {
		if verbose {
			_, _ = fmt.Fprintf(out, "   "+format+"\n", a...)
		}
	}

	say(sectionStyle.Render("🔍 doc-history Health Check"))
	say()

	// Step 1: Config
	say(infoStyle.Render("Step 1: Loading configuration..."))
	cfg, paths, err := loadConfig()
	if err != nil {
		say(errorStyle.Render("❌ Configuration is invalid:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	say(successStyle.Render("✅ Configuration loaded"))
	detail("Config dir: %s", paths.ConfigDir)
	detail("Store: %s (%s)", cfg.Store.Path, cfg.Store.Type)
	detail("Hasher: %s  Workers: %d  Batch window: %s", cfg.Hasher, cfg.Workers, cfg.BatchWindow)
	say()

	// Step 2: Identity
	say(infoStyle.Render("Step 2: Checking encryption identity..."))
	if cfg.Encryption.IdentityPath == "" {
		say(warningStyle.Render("⚠️  No identity configured (sealed messages cannot be read)"))
	} else if _, err := internal.LoadAgeOpener(cfg.Encryption.IdentityPath); err != nil {
		say(errorStyle.Render("❌ Failed to load identity:"), err)
		return fmt.Errorf("health check failed: %w", err)
	} else {
		say(successStyle.Render("✅ Identity loaded"))
		detail("Identity: %s", cfg.Encryption.IdentityPath)
	}
	say()

	// Step 3: Store
	say(infoStyle.Render("Step 3: Testing commit store access..."))
	if !internal.StoreExists(cfg.Store.Path) {
		say(warningStyle.Render("⚠️  Commit store not found"))
		detail("Expected: %s", cfg.Store.Path)
		detail("The store is created by the first 'doc-history import'")
		say()
		printSummary(say, false, 0)
		return nil
	}

	store, err := openStore(cfg, true, false)
	if err != nil {
		say(errorStyle.Render("❌ Failed to open commit store"))
		say()
		say("Error details:")
		say(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	docs, err := store.ListDocuments()
	if err != nil {
		say(errorStyle.Render("❌ Failed to list documents:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	say(successStyle.Render(fmt.Sprintf("✅ Commit store readable (%d document(s))", len(docs))))
	for i, doc := range docs {
		if i == 5 {
			detail("... and %d more", len(docs)-5)
			break
		}
		detail("[%d] %s (%d commits)", i+1, doc.ID, doc.CommitCount)
	}
	say()

	// Step 4: Cache
	say(infoStyle.Render("Step 4: Checking cache directory..."))
	if !cfg.Cache.Enabled {
		say(warningStyle.Render("⚠️  Cache disabled"))
	} else if err := internal.NewCacheManager(cfg.Cache.Dir).EnsureCacheDir(); err != nil {
		say(errorStyle.Render("❌ Cache directory is not writable:"), err)
		return fmt.Errorf("health check failed: %w", err)
	} else {
		say(successStyle.Render("✅ Cache directory available"))
		detail("Cache: %s", cfg.Cache.Dir)
	}
	say()

	printSummary(say, true, len(docs))
	return nil
}

func printSummary(say func(...interface{}), storeFound bool, documents int) {
	say(sectionStyle.Render("📊 Summary"))
	say()

	switch {
	case storeFound && documents > 0:
		say(successStyle.Render("✅ Health check passed!"))
		say(successStyle.Render("   • Store: Available"))
		say(successStyle.Render(fmt.Sprintf("   • Documents: %d found", documents)))
	case storeFound:
		say(warningStyle.Render("⚠️  Store available but no documents found"))
	default:
		say(warningStyle.Render("⚠️  Setup is valid but no commit store exists yet"))
		if os.Getenv("CI") != "" {
			say("   Note: This is expected in CI before any import has run.")
		}
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
