// Package internal wires the cobra/viper command tree for the
// dataengine binary, grounded on the teacher's cmd.NewRootCommand /
// cmd.NewServeCmd conventions.
package internal

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

// NewRootCommand builds the dataengine root command and attaches its
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dataengine",
		Short: "Run the dynamic data access engine.",
		Long: `dataengine serves the multi-tenant data access layer: an HTTP
ingest/query surface and an optional bus consumer, both backed by a
runtime tenant registry over a wide-column store cluster.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dataengine version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "dataengine (dev)")
			return nil
		},
	}
}

// bindFlags mirrors the teacher's setAllConfig: every persistent and
// local flag is bound to a viper key of the same name. The serve
// command does not read its config back out of viper; the config file
// is loaded by config.Load and only --bind overrides it.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return v.BindPFlags(cmd.PersistentFlags())
}
