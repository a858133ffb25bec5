package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/airdraw/internal/config"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if global.dataDir != "" {
				cfg.DataDir = global.dataDir
			}
			path := global.configPath
			if path == "" {
				path = filepath.Join(cfg.DataDir, config.FileName)
			}
			if err := writeConfig(path, cfg); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "wrote %s", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print where the configuration is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printKeyValue(w, "data dir", cfg.DataDir)
			printKeyValue(w, "database", cfg.DatabasePath())
			printKeyValue(w, "drawings", cfg.SaveDir())
			printKeyValue(w, "plugins", cfg.PluginDir())
			return nil
		},
	})

	return cmd
}

// writeConfig refuses to overwrite an existing file.
func writeConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists", path)
		}
		return err
	}
	if err := cfg.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
