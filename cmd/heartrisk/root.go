package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/heartrisk/internal/config"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
)

// cli carries state shared by the subcommands
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *monitoring.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "heartrisk",
		Short:         "Heart disease risk estimation",
		Long:          `Estimates a binary heart disease risk label from age, maximum heart rate, sex and chest pain type using a bundled ONNX model.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("HEARTRISK_CONFIG"), "Path to the YAML config file (or set HEARTRISK_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newAssessCmd(c))
	root.AddCommand(newManifestCmd(c))
	root.AddCommand(newConfigCmd())

	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	c.cfg = cfg
	c.logger = monitoring.NewLogger(os.Stderr, monitoring.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(c.logger.Logger)

	if monitoring.ParseLevel(cfg.Logging.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}
