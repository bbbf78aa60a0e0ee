package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/application/service"
	"github.com/garyjia/cafe-importer/internal/container"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/invoice"
)

func newArchiveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Read or remove the raw XML archived for imported invoices",
	}

	show := &cobra.Command{
		Use:   "show <cufe>",
		Short: "Print the archived XML of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, path, err := c.archiveEntry(args[0])
			if err != nil {
				return err
			}
			if !archive.Exists(cmd.Context(), path) {
				return fmt.Errorf("no archived XML at %s", archive.GetFullPath(path))
			}

			content, err := archive.Read(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}

	rm := &cobra.Command{
		Use:   "rm <cufe>",
		Short: "Delete the archived XML of an invoice; the import record is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, path, err := c.archiveEntry(args[0])
			if err != nil {
				return err
			}
			if err := archive.Delete(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", archive.GetFullPath(path))
			return nil
		},
	}

	cmd.AddCommand(show, rm)
	return cmd
}

func (c *cli) archiveEntry(raw string) (port.FileStorage, string, error) {
	cufe := invoice.NormalizeCUFE(raw)
	if !invoice.IsWellFormed(cufe) {
		return nil, "", entity.NewImportError(entity.ErrorCodeInvalidCUFE, "malformed CUFE "+raw, nil)
	}

	archive := container.ProvideArchive(c.cfg.Archive, c.logger)
	if archive == nil {
		return nil, "", fmt.Errorf("archiving is disabled (archive.enabled)")
	}
	return archive, service.ArchivePath(cufe), nil
}
