package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alfredjeanlab/suicounter/internal/export"
	"github.com/alfredjeanlab/suicounter/internal/store/postgres"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write the event journal as JSONL",
	GroupID: "system",
	Long: `Read the event journal from Postgres (COUNTER_DATABASE_URL or
--database-url) and write it as JSONL to stdout or --out.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		dbURL, _ := cmd.Flags().GetString("database-url")
		out, _ := cmd.Flags().GetString("out")
		if dbURL == "" {
			return fmt.Errorf("no database: set COUNTER_DATABASE_URL or --database-url")
		}

		st, err := postgres.New(dbURL)
		if err != nil {
			return err
		}
		defer st.Close()

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		n, err := export.WriteJSONL(context.Background(), st, w)
		if err != nil {
			return fmt.Errorf("exporting journal: %w", err)
		}
		if out != "" {
			fmt.Fprintf(os.Stderr, "Exported %d events to %s\n", n, out)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("database-url", os.Getenv("COUNTER_DATABASE_URL"), "Postgres connection URL")
	exportCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
}
