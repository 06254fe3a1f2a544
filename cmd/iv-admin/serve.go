package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheBlueOompaLoompa/iv-admin/controller"
	"github.com/TheBlueOompaLoompa/iv-admin/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, forwarding requests to the pump over serial",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applySerialFlags(cmd)
		if cmd.Flags().Changed("listen") {
			cfg.ListenAddr, _ = cmd.Flags().GetString("listen")
		}

		c, err := controller.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()

		err = server.New(c, logger).ListenAndServe(ctx, cfg.ListenAddr)
		if err != nil {
			logger.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Type raw serial commands to the pump, 'H' lists them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applySerialFlags(cmd)

		c, err := controller.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()

		return c.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List USB serial ports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := controller.GetSerialPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			cmd.Println(p)
		}
		return nil
	},
}

func applySerialFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("port") {
		cfg.SerialPort, _ = cmd.Flags().GetString("port")
	}
	if cmd.Flags().Changed("baud") {
		cfg.BaudRate, _ = cmd.Flags().GetString("baud")
	}
}

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, consoleCmd} {
		cmd.Flags().String("port", "", "serial port of the pump, overrides "+controller.EnvSerialPort)
		cmd.Flags().String("baud", controller.DefaultBaudRate, "baud rate, overrides "+controller.EnvBaudRate)
	}
	serveCmd.Flags().String("listen", controller.DefaultListenAddr, "address to serve the API on, overrides "+controller.EnvListenAddr)

	rootCmd.AddCommand(serveCmd, consoleCmd, portsCmd)
}
