package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/cafe-importer/internal/container"
)

func newImportsCmd(c *cli) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "imports",
		Short: "List recorded invoice imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := container.ProvideDatabase(c.cfg.Database, c.logger)
			if err != nil {
				return err
			}
			defer db.DB.Close()

			records, err := container.ProvideRepositories(db, c.logger).ImportRecords.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "IMPORTED AT\tCUFE\tSESSION\n")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ImportedAt.Local().Format(time.DateTime), r.CUFE, r.SessionID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}
