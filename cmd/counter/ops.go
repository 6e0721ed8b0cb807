package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/spf13/cobra"
)

var opShort = map[model.Operation]string{
	model.OpIncrement: "Increase the counter by one",
	model.OpDecrement: "Decrease the counter by one, stopping at zero",
	model.OpReset:     "Set the counter to zero",
	model.OpCreate:    "Replace the counter with a fresh one",
}

// operationCmds returns one command per counter operation.
func operationCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(model.Operations))
	for _, op := range model.Operations {
		cmds = append(cmds, &cobra.Command{
			Use:     string(op) + " <panel-id>",
			Short:   opShort[op],
			GroupID: "counter",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(args[0], op)
			},
		})
	}
	return cmds
}

func runOperation(panelID string, op model.Operation) error {
	res, err := counterClient.RunOperation(context.Background(), panelID, op)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if jsonOutput {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printNotification(res.Notification)
		fmt.Printf("Count: %d\n", res.Panel.Counter.Count)
	}
	if res.Notification.Kind == model.KindError {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}
