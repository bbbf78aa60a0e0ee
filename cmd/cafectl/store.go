package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/cafe-importer/internal/application/service"
	"github.com/garyjia/cafe-importer/internal/container"
	"github.com/garyjia/cafe-importer/pkg/utils"
)

func newStoreCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage known stores matched by issuer RUC",
	}

	var verified bool
	add := &cobra.Command{
		Use:     "add <ruc> <name>",
		Short:   "Register or rename a store",
		Example: `  cafectl store add 155612345-2-2019 "Supermercado El Ahorro" --verified`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruc := utils.SanitizeString(args[0])
			if err := utils.ValidateRUC(ruc); err != nil {
				return err
			}
			name := utils.SanitizeString(args[1])
			if name == "" {
				return fmt.Errorf("store name is required")
			}

			db, err := container.ProvideDatabase(c.cfg.Database, c.logger)
			if err != nil {
				return err
			}
			defer db.DB.Close()

			repos := container.ProvideRepositories(db, c.logger)
			matcher := service.NewStoreMatcher(repos.Stores, utils.NewKVLogger(c.logger))

			store, err := matcher.Register(cmd.Context(), ruc, name, verified)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(store)
		},
	}
	add.Flags().BoolVar(&verified, "verified", false, "mark the store as verified")

	get := &cobra.Command{
		Use:   "get <ruc>",
		Short: "Show the store registered for a RUC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := container.ProvideDatabase(c.cfg.Database, c.logger)
			if err != nil {
				return err
			}
			defer db.DB.Close()

			repos := container.ProvideRepositories(db, c.logger)
			match, err := service.NewStoreMatcher(repos.Stores, utils.NewKVLogger(c.logger)).
				MatchByTaxID(cmd.Context(), utils.SanitizeString(args[0]))
			if err != nil {
				return err
			}
			if match == nil {
				return fmt.Errorf("no store registered for %s", args[0])
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tNAME\tVERIFIED\n")
			fmt.Fprintf(w, "%s\t%s\t%t\n", match.StoreID, match.StoreName, match.IsVerified)
			return w.Flush()
		},
	}

	cmd.AddCommand(add, get)
	return cmd
}
