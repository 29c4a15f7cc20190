// Package commands implements the ledgercore command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercore/internal/buildinfo"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	repo    string
	envFile string
	debug   bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "ledgercore",
		Short:   "Double-entry transaction ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.repo, "repo", ".", "ledger repository directory")
	pf.StringVar(&g.envFile, "env-file", "", "env file with LEDGER_* overrides (default <repo>/.env)")
	pf.BoolVar(&g.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountsCommand(g),
		newPostCommand(g),
		newReverseCommand(g),
		newLedgerCommand(g),
		newTrialBalanceCommand(g),
		newImportCommand(g),
		newExportCommand(g),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledgercore %s\n", buildinfo.String())
		},
	}
}
