package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigbag/wuart/internal/bridge"
	"github.com/bigbag/wuart/internal/config"
	"github.com/bigbag/wuart/internal/detect"
	"github.com/bigbag/wuart/internal/logging"
	"github.com/bigbag/wuart/internal/supervisor"
)

var (
	clientHostFlag string
	clientPortFlag int
	localPathFlag  string
	localBaudFlag  int
	remotePathFlag string
	remoteBaudFlag int
	retryFlag      time.Duration
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Bridge a local serial port to a server",
		Long: `Run the initiator. The local serial device is opened, the server is
dialed and told which device to open on its side, then bytes flow both ways.
On any failure the client waits and starts over, forever.

Use --local-path auto to pick the first serial port that opens.`,
		Args: cobra.NoArgs,
		RunE: runClient,
	}
	f := cmd.Flags()
	f.StringVarP(&clientHostFlag, "host", "i", "127.0.0.1", "Server host")
	f.IntVarP(&clientPortFlag, "port", "p", 58266, "Server port")
	f.StringVar(&localPathFlag, "local-path", "/dev/ttyUSB0", "Local serial device, or auto")
	f.IntVar(&localBaudFlag, "local-baud", 115200, "Local baud rate")
	f.StringVar(&remotePathFlag, "remote-path", "COM826", "Serial device opened by the server")
	f.IntVar(&remoteBaudFlag, "remote-baud", 115200, "Remote baud rate")
	f.DurationVar(&retryFlag, "retry", 10*time.Second, "Wait between reconnect attempts")
	return cmd
}

func applyClientFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Name() != "client" {
		return
	}
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Client.Host = clientHostFlag
	}
	if f.Changed("port") {
		cfg.Client.Port = clientPortFlag
	}
	if f.Changed("local-path") {
		cfg.Client.LocalPath = localPathFlag
	}
	if f.Changed("local-baud") {
		cfg.Client.LocalBaud = localBaudFlag
	}
	if f.Changed("remote-path") {
		cfg.Client.RemotePath = remotePathFlag
	}
	if f.Changed("remote-baud") {
		cfg.Client.RemoteBaud = remoteBaudFlag
	}
	if f.Changed("retry") {
		cfg.Client.RetryInterval = retryFlag
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log, os.Stderr)
	logger.Info().Str("version", version).Msg("wuart client")
	logger.Debug().Interface("config", cfg).Msg("configuration loaded")

	hook, finish := newMeter(meterFlag, "bridged")
	defer finish()

	readTimeout := cfg.Link.SerialRead
	c := &supervisor.Client{
		Addr:          cfg.ClientAddr(),
		DialTimeout:   cfg.Client.DialTimeout,
		RetryInterval: cfg.Client.RetryInterval,
		BufferSize:    cfg.Link.BufferSize,
		LocalPath:     cfg.Client.LocalPath,
		LocalBaud:     cfg.Client.LocalBaud,
		Session: bridge.Options{
			Codec:       cfg.Codec(),
			PollTimeout: cfg.Link.PollTimeout,
			ReadSize:    cfg.Link.ReadSize,
			Path:        cfg.Client.RemotePath,
			Baud:        cfg.Client.RemoteBaud,
			OnTraffic:   hook,
		},
		Open: func(path string, baud int) (bridge.Device, error) {
			port, err := detect.OpenDevice(path, baud, readTimeout)
			if err != nil {
				return nil, err
			}
			if path == detect.Auto {
				logger.Info().Str("device", port.PortName()).Msg("serial port detected")
			}
			return port, nil
		},
		Logger: logger,
	}

	return c.Run(cmd.Context())
}
