package admin

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the CLI. A nil open uses OpenServerBackend.
func NewRootCommand(open Opener) *cobra.Command {
	var configFlag string
	var verbose bool

	if open == nil {
		open = OpenServerBackend
	}
	ctx := &commandContext{configFlag: &configFlag, verbose: &verbose, open: open}

	rootCmd := &cobra.Command{
		Use:           "mangakeeper-cli",
		Short:         "Operate a mangakeeper catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log service activity to stderr")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newVerifyCommand(ctx))
	rootCmd.AddCommand(newResyncCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
