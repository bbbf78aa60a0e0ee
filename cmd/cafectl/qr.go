package main

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/invoice"
)

func newQRCmd(c *cli) *cobra.Command {
	var (
		output string
		size   int
	)

	cmd := &cobra.Command{
		Use:     "qr <cufe>",
		Short:   "Write a QR code linking to the invoice in the registry",
		Example: `  cafectl qr FE0120000155612345-2-2019-0001202401150000000123001011234567890 -o factura.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cufe := invoice.NormalizeCUFE(args[0])
			if !invoice.IsWellFormed(cufe) {
				return entity.NewImportError(entity.ErrorCodeInvalidCUFE, "malformed CUFE "+args[0], nil)
			}

			link := invoice.BuildQRLink(c.cfg.Registry.QRBaseURL, cufe)
			if err := qrcode.WriteFile(link, qrcode.Medium, size, output); err != nil {
				return fmt.Errorf("write QR code: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", output, link)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "cufe-qr.png", "PNG file to write")
	cmd.Flags().IntVar(&size, "size", 256, "image size in pixels")
	return cmd
}
