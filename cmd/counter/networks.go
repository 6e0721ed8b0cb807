package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var networksCmd = &cobra.Command{
	Use:     "networks",
	Short:   "List networks and their package ids",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := counterClient.ListNetworks(context.Background())
		if err != nil {
			return fmt.Errorf("listing networks: %w", err)
		}
		if jsonOutput {
			return printJSON(resp)
		}
		printNetworks(resp)
		return nil
	},
}
