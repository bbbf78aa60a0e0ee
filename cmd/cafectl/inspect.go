package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/application/service"
	"github.com/garyjia/cafe-importer/internal/container"
	"github.com/garyjia/cafe-importer/internal/invoice"
	"github.com/garyjia/cafe-importer/pkg/utils"
)

func newInspectCmd(c *cli) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "inspect <cufe|qr-url>",
		Short: "Fetch and decode one invoice and print it as JSON",
		Example: `  cafectl inspect FE0120000155612345-2-2019-0001202401150000000123001011234567890
  cafectl inspect "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorQR?chFE=FE01..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := port.FetchRequest{Identifier: args[0]}
			if invoice.LooksLikeQRLink(args[0]) {
				req = port.FetchRequest{QRURL: args[0]}
			}

			client := container.ProvideRegistryClient(c.cfg.Registry, nil, c.logger)
			invoices := service.NewInvoiceService(client, nil, utils.NewKVLogger(c.logger))
			outcome := invoices.Fetch(cmd.Context(), req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(outcome); err != nil {
				return fmt.Errorf("encode outcome: %w", err)
			}

			if !outcome.Success {
				return fmt.Errorf("%s: %s (%s)", outcome.ErrorCode, outcome.Error, outcome.Detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on one line")
	return cmd
}
