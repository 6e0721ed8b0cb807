package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/client"
	"github.com/alfredjeanlab/suicounter/internal/events"
	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow counter events as they happen",
	GroupID: "views",
	Long: `Follow counter events. Events come from the server's SSE stream, or
straight from NATS when --nats-url (or COUNTER_NATS_URL) is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		panelID, _ := cmd.Flags().GetString("panel")
		topics, _ := cmd.Flags().GetStringSlice("topics")
		natsURL, _ := cmd.Flags().GetString("nats-url")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, natsURL, topics, panelID)
		}
		err := counterClient.StreamEvents(ctx, &client.StreamRequest{Topics: topics, PanelID: panelID}, func(e client.StreamEvent) error {
			printStreamEvent(e.Topic, e.Data)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// watchNATS subscribes to counter subjects on NATS and prints each event.
func watchNATS(ctx context.Context, natsURL string, topics []string, panelID string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	if len(topics) == 0 {
		topics = []string{events.TopicAll}
	}
	merged := make(chan events.Message, 64)
	for _, topic := range topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		defer cancel()
		go func() {
			for msg := range ch {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-merged:
			if panelID != "" && !eventForPanel(msg.Data, panelID) {
				continue
			}
			printStreamEvent(msg.Topic, msg.Data)
		}
	}
}

func eventForPanel(data []byte, panelID string) bool {
	var v struct {
		PanelID string `json:"panel_id"`
	}
	return json.Unmarshal(data, &v) == nil && v.PanelID == panelID
}

// printStreamEvent prints one event line. Operation outcomes show their
// notification and the resulting count.
func printStreamEvent(topic string, data []byte) {
	if jsonOutput {
		fmt.Printf("{\"topic\":%q,\"data\":%s}\n", topic, data)
		return
	}
	stamp := ui.RenderMuted(time.Now().Format("15:04:05"))

	var op events.OperationCompleted
	if json.Unmarshal(data, &op) == nil && op.Notification.Kind != "" {
		who := "-"
		if op.Address != "" {
			who = model.ShortAddress(op.Address)
		}
		fmt.Printf("%s %s %s %s %s (count %d, by %s)\n",
			stamp, op.PanelID, ui.RenderKind(op.Notification.Kind, op.Notification.Title+":"),
			op.Notification.Description, ui.RenderMuted(string(op.Network)), op.Counter.Count, who)
		return
	}
	fmt.Printf("%s %s %s\n", stamp, ui.RenderAccent(topic), data)
}

func init() {
	watchCmd.Flags().String("panel", "", "only events for this panel")
	watchCmd.Flags().StringSlice("topics", nil, "topic patterns, e.g. counter.op.* (default all)")
	watchCmd.Flags().String("nats-url", os.Getenv("COUNTER_NATS_URL"), "read events from NATS instead of the server")
}
