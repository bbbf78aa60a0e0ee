package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/config"
	"github.com/garyjia/cafe-importer/pkg/utils"
)

var version = "1.0.0"

// cli carries state shared by all subcommands
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "cafectl",
		Short: "Inspect electronic invoices and manage the CAFE importer",
		Long: `cafectl talks to the tax registry and the importer database.

It fetches and decodes invoices by CUFE or QR link, renders QR deep links,
lists recorded imports, reads the raw XML archive and registers known stores.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default $CAFE_CONFIG or "+config.DefaultPath+" when present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newInspectCmd(c),
		newQRCmd(c),
		newImportsCmd(c),
		newStoreCmd(c),
		newArchiveCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	path := c.configPath
	if path == "" {
		path = os.Getenv("CAFE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", config.DefaultPath, err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      c.logLevel,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger
	return nil
}
