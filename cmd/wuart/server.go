package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bigbag/wuart/internal/bridge"
	"github.com/bigbag/wuart/internal/config"
	"github.com/bigbag/wuart/internal/logging"
	"github.com/bigbag/wuart/internal/serial"
	"github.com/bigbag/wuart/internal/supervisor"
)

var (
	serverHostFlag string
	serverPortFlag int
)

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept clients and bridge them to local serial ports",
		Long: `Run the responder. Each client connection gets its own session; the
client chooses the serial device and baud rate to open on this machine.`,
		Args: cobra.NoArgs,
		RunE: runServer,
	}
	cmd.Flags().StringVarP(&serverHostFlag, "host", "i", "0.0.0.0", "Listen host")
	cmd.Flags().IntVarP(&serverPortFlag, "port", "p", 58266, "Listen port")
	return cmd
}

func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Name() != "server" {
		return
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHostFlag
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPortFlag
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log, os.Stderr)
	logger.Info().Str("version", version).Msg("wuart server")
	logger.Debug().Interface("config", cfg).Msg("configuration loaded")

	hook, finish := newMeter(meterFlag, "bridged")
	defer finish()

	readTimeout := cfg.Link.SerialRead
	srv := &supervisor.Server{
		Addr:       cfg.ServerAddr(),
		BufferSize: cfg.Link.BufferSize,
		Session: bridge.Options{
			Codec:       cfg.Codec(),
			PollTimeout: cfg.Link.PollTimeout,
			ReadSize:    cfg.Link.ReadSize,
			Open: func(path string, baud int) (bridge.Device, error) {
				port, err := serial.Open(path, baud, readTimeout)
				if err != nil {
					return nil, err
				}
				return port, nil
			},
			OnTraffic: hook,
		},
		Logger: logger,
	}

	return srv.ListenAndServe(cmd.Context())
}
