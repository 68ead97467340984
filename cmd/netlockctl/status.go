package main

import (
	"github.com/spf13/cobra"
)

var statusCMD = &cobra.Command{
	Use:   "status",
	Short: "Show the network state of every room",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		rec := newReconciler()
		if err := rec.Poll(ctx); err != nil {
			return fail(cmd, err)
		}
		renderRooms(cmd.OutOrStdout(), rec.Snapshot())
		return nil
	},
}

func init() {
	rootCMD.AddCommand(statusCMD)
}
