package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var walletCmd = &cobra.Command{
	Use:     "wallet",
	Short:   "Manage the development wallet session",
	GroupID: "wallet",
}

var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open a wallet session",
	Long: `Open a wallet session. Pass the printed session id with --wallet
(or COUNTER_WALLET_SESSION) to run operations as that wallet.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := counterClient.ConnectWallet(context.Background())
		if err != nil {
			return fmt.Errorf("connecting wallet: %w", err)
		}
		if jsonOutput {
			return printJSON(sess)
		}
		printWallet(sess)
		return nil
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the wallet session given by --wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := counterClient.GetWallet(context.Background())
		if err != nil {
			return fmt.Errorf("getting wallet: %w", err)
		}
		if jsonOutput {
			return printJSON(sess)
		}
		printWallet(sess)
		return nil
	},
}

var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Close the wallet session given by --wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if counterClient.Session() == "" {
			return fmt.Errorf("no wallet session: pass --wallet")
		}
		if err := counterClient.DisconnectWallet(context.Background()); err != nil {
			return fmt.Errorf("disconnecting wallet: %w", err)
		}
		if !jsonOutput {
			fmt.Println("Wallet disconnected")
		}
		return nil
	},
}

func init() {
	walletCmd.AddCommand(walletConnectCmd, walletShowCmd, walletDisconnectCmd)
}
