package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/pkg/config"
	"github.com/noah-isme/stages-admin/pkg/logger"
)

// app is what every subcommand gets once the configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "stages-admin",
		Short:         "Internship administration console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return err
			}
			if cfg.Env == config.EnvProduction {
				gin.SetMode(gin.ReleaseMode)
			}
			a.cfg, a.logger = cfg, logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newExportCommand(a))

	return cmd
}
