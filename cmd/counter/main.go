package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/suicounter/internal/client"
	"github.com/alfredjeanlab/suicounter/internal/ui"
	"github.com/spf13/cobra"
)

var (
	httpURL    string
	grpcAddr   string
	authToken  string
	walletID   string
	jsonOutput bool
	noColor    bool

	counterClient *client.HTTPClient
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var rootCmd = &cobra.Command{
	Use:           "counter <command>",
	Short:         "Server and CLI for the Sui counter dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		counterClient = client.NewHTTPClient(httpURL, authToken)
		counterClient.SetSession(walletID)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if counterClient != nil {
			counterClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", envOr("COUNTER_HTTP_URL", "http://localhost:8080"), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&grpcAddr, "grpc-addr", envOr("COUNTER_GRPC_TARGET", "localhost:9090"), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("COUNTER_AUTH_TOKEN"), "bearer token for the API")
	rootCmd.PersistentFlags().StringVar(&walletID, "wallet", os.Getenv("COUNTER_WALLET_SESSION"), "wallet session id")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "counter", Title: "Counter:"},
		&cobra.Group{ID: "wallet", Title: "Wallet:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(helpFunc)

	// Counter
	rootCmd.AddCommand(panelCmd)
	for _, cmd := range operationCmds() {
		rootCmd.AddCommand(cmd)
	}

	// Wallet
	rootCmd.AddCommand(walletCmd)

	// Views
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
