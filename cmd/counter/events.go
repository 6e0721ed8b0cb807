package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/client"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:     "events <panel-id>",
	Short:   "Show a panel's event journal",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")

		req := &client.GetEventsRequest{PanelID: args[0], Topic: topic, Limit: limit}
		if since > 0 {
			req.Since = time.Now().Add(-since)
		}
		evts, err := counterClient.GetEvents(context.Background(), req)
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
		if jsonOutput {
			return printJSON(evts)
		}
		printEventList(evts)
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("topic", "", "only events with this topic")
	eventsCmd.Flags().Int("limit", 0, "maximum number of events (0 = all)")
	eventsCmd.Flags().Duration("since", 0, "only events newer than this (e.g. 10m)")
}
