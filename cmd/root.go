package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/doc-history/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	storePath  string
	storeType  string
	hasherName string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "doc-history",
	Short: "Inspect the version history of collaborative documents",
	Long: `A CLI tool to inspect the version history of Yjs documents.

Each document is stored as an append-only log of commits, each holding the
binary updates sent by its authors. doc-history decodes those updates and
builds a per-update timeline: who changed the document, when, which clients
and content types were touched, what was deleted, and a content hash.

Features:
  • List stored documents with their commit counts
  • Build timelines concurrently, with caching and deduplication
  • Export timelines as JSONL, JSON, YAML or Markdown
  • Group updates into per-author batches and write replay bundles
  • Decode a single update file for debugging
  • SQLite or Pebble commit stores, with optional age encryption

Quick Start:
  doc-history list                       # List all documents
  doc-history timeline <document-id>     # Show a document's timeline
  doc-history export <document-id> -f md # Export as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer internal.SyncLogger()
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		internal.SyncLogger()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <config dir>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Commit store location (database file or pebble directory)")
	rootCmd.PersistentFlags().StringVar(&storeType, "store-type", "", "Commit store type (sqlite, pebble)")
	rootCmd.PersistentFlags().StringVar(&hasherName, "hasher", "", "Content hash algorithm (sha1, sha256, blake2b)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads the config file and applies the global flag overrides
func loadConfig() (*internal.Config, internal.Paths, error) {
	paths, err := internal.DetectPaths()
	if err != nil {
		return nil, internal.Paths{}, fmt.Errorf("failed to detect paths: %w", err)
	}

	path := configPath
	if path == "" {
		path = paths.ConfigPath()
	}
	cfg, err := internal.LoadConfig(path, paths)
	if err != nil {
		return nil, paths, err
	}

	if storeType != "" && storeType != cfg.Store.Type {
		cfg.Store.Type = storeType
		cfg.Store.Path = paths.StorePath(storeType)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if hasherName != "" {
		cfg.Hasher = hasherName
	}

	if err := cfg.Validate(); err != nil {
		return nil, paths, err
	}
	return cfg, paths, nil
}

// openStore opens the configured commit store. Sealing on append is only
// enabled when seal is set; opening sealed messages only needs an identity.
func openStore(cfg *internal.Config, readOnly, seal bool) (internal.StorageBackend, error) {
	opts := internal.StoreOptions{ReadOnly: readOnly}

	if cfg.Encryption.IdentityPath != "" {
		opener, err := internal.LoadAgeOpener(cfg.Encryption.IdentityPath)
		if err != nil {
			return nil, &internal.ConfigError{Key: "encryption.identity_path", Err: err}
		}
		opts.Opener = opener
		if seal {
			sealer, err := opener.Sealer()
			if err != nil {
				return nil, &internal.ConfigError{Key: "encryption.identity_path", Err: err}
			}
			opts.Sealer = sealer
		}
	} else if seal {
		return nil, &internal.ConfigError{Key: "encryption.identity_path", Err: fmt.Errorf("sealing requires an identity (run 'doc-history init --identity')")}
	}

	if readOnly && !internal.StoreExists(cfg.Store.Path) {
		return nil, fmt.Errorf("no commit store at %s (use 'doc-history import' to create one)", cfg.Store.Path)
	}

	store, err := internal.NewStorageBackend(cfg.Store, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// newBuilder creates a timeline builder using the configured hasher
func newBuilder(cfg *internal.Config) (*internal.TimelineBuilder, error) {
	h, err := internal.NewHasher(cfg.Hasher)
	if err != nil {
		return nil, err
	}
	return internal.NewTimelineBuilder(internal.WithHasher(h)), nil
}
