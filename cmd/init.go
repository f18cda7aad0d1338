package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/doc-history/internal"
	"github.com/spf13/cobra"
)

var (
	initIdentity bool
	initForce    bool
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Long: `Write the effective configuration (defaults plus global flags) to the
config file. With --identity, also generate an age identity used to seal
imported updates and point the config at it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := loadConfig()
		if err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = paths.ConfigPath()
		}
		if internal.StoreExists(path) && !initForce {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}

		if initIdentity {
			identityPath := filepath.Join(filepath.Dir(path), "identity.txt")
			if internal.StoreExists(identityPath) && !initForce {
				return fmt.Errorf("identity file %s already exists (use --force to overwrite)", identityPath)
			}
			if err := os.MkdirAll(filepath.Dir(identityPath), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			identity, err := internal.GenerateIdentityFile(identityPath)
			if err != nil {
				return err
			}
			cfg.Encryption.IdentityPath = identityPath
			internal.PrintInfo(fmt.Sprintf("Generated identity %s (recipient %s)", identityPath, identity.Recipient()))
		}

		if err := internal.WriteConfig(path, cfg); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Wrote config to %s", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initIdentity, "identity", false, "Generate an age identity for sealing updates")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}
