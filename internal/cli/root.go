// Package cli implements the fxscalper command tree.
package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/fxscalper/internal/config"
)

const defaultConfigPath = "config.toml"

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the fxscalper command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "fxscalper",
		Short: "Signal-driven forex trading bot",
		Long: `fxscalper polls trading signals, filters them, sizes and places market
orders on a forex venue, and reports performance over HTTP and WebSocket.

Subcommands:
  run      - Start the bot and its API server
  config   - Validate or print the effective configuration
  ledger   - Query the trade journal and ledger archives
  events   - Read the bot event stream from Redis
  vault    - Manage encrypted account passwords
  version  - Print the version`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to TOML or YAML config file")

	cmd.AddCommand(
		newRunCmd(opts),
		newConfigCmd(opts),
		newLedgerCmd(opts),
		newEventsCmd(opts),
		newVaultCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// load reads the configuration. A missing default config file is not an
// error; defaults and FXSCALPER_* variables apply.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	path := o.configPath
	if path == defaultConfigPath && !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}
