package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/spf13/cobra"
)

var panelCmd = &cobra.Command{
	Use:     "panel",
	Short:   "Mount and inspect counter panels",
	GroupID: "counter",
}

var panelMountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount a fresh counter panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		network, _ := cmd.Flags().GetString("network")
		snap, err := counterClient.MountPanel(context.Background(), model.Network(network))
		if err != nil {
			return fmt.Errorf("mounting panel: %w", err)
		}
		if jsonOutput {
			return printJSON(snap)
		}
		printPanel(snap)
		return nil
	},
}

var panelShowCmd = &cobra.Command{
	Use:   "show <panel-id>",
	Short: "Show a panel's counter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := counterClient.GetPanel(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting panel %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(snap)
		}
		printPanel(snap)
		return nil
	},
}

var panelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mounted panels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		panels, err := counterClient.ListPanels(context.Background())
		if err != nil {
			return fmt.Errorf("listing panels: %w", err)
		}
		if jsonOutput {
			return printJSON(panels)
		}
		printPanelList(panels)
		return nil
	},
}

func init() {
	panelMountCmd.Flags().String("network", "", "network to mount with (devnet, testnet, mainnet)")
	panelCmd.AddCommand(panelMountCmd, panelShowCmd, panelListCmd)
}
