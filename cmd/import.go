package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iksnae/doc-history/internal"
	"github.com/iksnae/doc-history/internal/yupdate"
	"github.com/spf13/cobra"
)

var (
	importCompress bool
	importAuthor   string
	importName     string
	importSeal     bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <document-id> <update-file>...",
	Short: "Append update files to a document as one commit",
	Long: `Append one or more raw v1 update files to a document. All files become
messages of a single new commit, in argument order.

Each file is decoded before anything is written, so a corrupt file aborts the
import without touching the store. The store is created on first import.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		documentID, files := args[0], args[1:]

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		messages, err := readUpdateFiles(files, importAuthor, importCompress)
		if err != nil {
			return err
		}

		store, err := openStore(cfg, false, importSeal)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if importName != "" {
			if err := store.PutDocument(internal.Document{ID: documentID, Name: importName}); err != nil {
				return err
			}
		}

		commit := &internal.Commit{DocumentID: documentID, Messages: messages}
		if err := store.AppendCommit(commit); err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Imported %d update(s) into %s as commit %d (%s)",
			len(messages), documentID, commit.Seq, commit.ID))
		return nil
	},
}

// readUpdateFiles loads and validates update files as commit messages.
// Messages get consecutive millisecond timestamps to keep their order.
func readUpdateFiles(files []string, author string, compress bool) ([]internal.Message, error) {
	if author == "" {
		return nil, errors.New("an author is required (--author)")
	}

	now := time.Now().UnixMilli()
	messages := make([]internal.Message, 0, len(files))
	for i, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read update file: %w", err)
		}

		canonical := content
		if internal.IsCompressed(content) {
			if canonical, err = internal.Decompress(content); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		if _, err := yupdate.Decode(canonical); err != nil {
			return nil, fmt.Errorf("%s: %w", path, &internal.DecodingError{Stage: "decode", Offset: formatOffset(err), Err: err})
		}

		if compress && !internal.IsCompressed(content) {
			if content, err = internal.Compress(content); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}

		messages = append(messages, internal.Message{
			Content:       content,
			Timestamp:     now + int64(i),
			AuthorAddress: author,
		})
		internal.LogDebug("Read %s (%d bytes)", path, len(content))
	}
	return messages, nil
}

func formatOffset(err error) int {
	var fe *yupdate.FormatError
	if errors.As(err, &fe) {
		return fe.Offset
	}
	return -1
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importCompress, "compress", false, "Store updates in the zstd compression envelope")
	importCmd.Flags().StringVarP(&importAuthor, "author", "a", os.Getenv("USER"), "Author address recorded on every message")
	importCmd.Flags().StringVar(&importName, "name", "", "Set the document's display name")
	importCmd.Flags().BoolVar(&importSeal, "seal", false, "Encrypt messages to the configured age identity")
}
