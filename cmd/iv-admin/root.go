package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheBlueOompaLoompa/iv-admin/client"
	"github.com/TheBlueOompaLoompa/iv-admin/controller"
)

var (
	debug   bool
	envFile string

	cfg    controller.Config
	logger *zap.Logger
)

// rootCmd represents the root command
var rootCmd = &cobra.Command{
	Use:   "iv-admin",
	Short: "iv-admin runs and operates the IV infusion pump",
	Long: `iv-admin bridges the pump's serial link to an HTTP API (serve), and controls a pump through
that API from the command line or a desktop console (ui).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var envFiles []string
		if envFile != "" {
			envFiles = append(envFiles, envFile)
		}

		var err error
		cfg, err = controller.ConfigFromEnv(envFiles...)
		if err != nil {
			return err
		}

		if debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("error creating logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this file instead of .env")
}

// Execute runs the command line. Commands see a context that is canceled on SIGINT or SIGTERM.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// newClient uses --server when set, otherwise IV_ADMIN_SERVER
func newClient(cmd *cobra.Command) *client.Client {
	addr := cfg.ServerAddr
	if cmd.Flags().Changed("server") {
		addr, _ = cmd.Flags().GetString("server")
	}
	return client.New(addr)
}

func addServerFlag(cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.Flags().String("server", controller.DefaultServer, "address of the iv-admin API, overrides "+controller.EnvServer)
	}
}
