package commands

import (
	"github.com/spf13/cobra"
)

// list: вывести все сегменты и аудитории.
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all defined audiences and segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return appCtx.admin().List(cmd.Context())
		},
	}
}

// usage: вывести статистику использования продукта.
func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Get usage data for the audience API product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return appCtx.admin().Usage(cmd.Context())
		},
	}
}
