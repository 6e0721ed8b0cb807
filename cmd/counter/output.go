package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/suicounter/internal/client"
	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
	"github.com/alfredjeanlab/suicounter/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printPanel(snap *panel.Snapshot) {
	fmt.Printf("Panel:       %s\n", snap.ID)
	fmt.Printf("Network:     %s\n", snap.Network)
	fmt.Printf("Package ID:  %s\n", snap.PackageID)
	fmt.Printf("Contract ID: %s\n", snap.Counter.ID)
	fmt.Printf("Count:       %s\n", ui.RenderAccent(fmt.Sprint(snap.Counter.Count)))
	if snap.InFlight != model.OpNone {
		fmt.Printf("In Flight:   %s\n", snap.InFlight)
	}
	if !snap.LastSeen.IsZero() {
		fmt.Printf("Last Seen:   %s\n", snap.LastSeen.Local().Format(timeLayout))
	}
}

func printPanelList(panels []panel.Snapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNETWORK\tCOUNT\tCONTRACT\tLAST SEEN")
	for _, p := range panels {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			p.ID,
			p.Network,
			p.Counter.Count,
			p.Counter.ID,
			p.LastSeen.Local().Format(timeLayout),
		)
	}
	w.Flush()
	fmt.Printf("\n%d panels\n", len(panels))
}

func printNotification(n model.Notification) {
	fmt.Printf("%s %s\n", ui.RenderKind(n.Kind, n.Title+":"), n.Description)
}

func printWallet(sess *model.WalletSession) {
	fmt.Printf("Session:   %s\n", sess.ID)
	fmt.Printf("Address:   %s\n", sess.Address)
	fmt.Printf("Connected: %s\n", sess.ConnectedAt.Local().Format(timeLayout))
}

func printNetworks(resp *client.NetworksResponse) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tPACKAGE ID")
	for _, n := range resp.Networks {
		name := string(n.Network)
		if n.Network == resp.Default {
			name += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, n.PackageID)
	}
	w.Flush()
}

func printEventList(evts []*model.Event) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTOPIC\tACTOR")
	for _, e := range evts {
		actor := e.Actor
		if actor != "" {
			actor = model.ShortAddress(actor)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format(timeLayout), e.Topic, actor)
	}
	w.Flush()
	fmt.Printf("\n%d events\n", len(evts))
}
