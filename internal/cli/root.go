package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/airdraw/internal/config"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. It is
// called from main with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	verbose    bool
	configPath string
	dataDir    string
}

// Execute runs the airdraw CLI.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "airdraw",
		Short:         "Draw in the air with hand gestures",
		Long:          `airdraw tracks one hand through a webcam and turns finger poses into drawing, erasing and color changes on a canvas overlaid on the live video.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("airdraw %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default <data-dir>/config.toml)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default ~/.airdraw)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newDrawingsCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

// loadConfig reads the config file named by --config, or the optional one
// in the data directory, and applies --data-dir.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	optional := path == ""
	if optional {
		dir := o.dataDir
		if dir == "" {
			dir = config.DefaultDir()
		}
		path = filepath.Join(dir, config.FileName)
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	return cfg, nil
}
