package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pharmafirst/careline"
	"github.com/pharmafirst/careline/pkg/config"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "careline",
		Short:        "Pharmacy First triage assistant",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configFile  string
		port        int
		metricsPort int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and observability servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if metricsPort != 0 {
				cfg.Server.MetricsPort = metricsPort
			}

			log.Printf("starting careline v%s", Version)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return careline.Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "path to the YAML config file")
	cmd.Flags().IntVar(&port, "port", 0, "webhook port (overrides config)")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "metrics and health port (overrides config)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("careline v%s\n", Version)
		},
	}
}
