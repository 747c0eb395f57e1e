package main

import (
	"collection-route-service/internal/config"
	"collection-route-service/internal/platform/logger"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Waste collection route service",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "configuration file (yaml or json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Logging.Level)

	app, err := newApp(ctx, cfg)
	if err != nil {
		logger.New("main").Errorf("startup: %v", err)
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}
