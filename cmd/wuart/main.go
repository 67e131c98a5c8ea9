package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigbag/wuart/embedded"
	"github.com/bigbag/wuart/internal/config"
	"github.com/bigbag/wuart/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag      string
	debugFlag       bool
	logLevelFlag    string
	protocolFlag    int
	escapeFlag      bool
	bufferSizeFlag  int
	recvTimeoutFlag time.Duration
	meterFlag       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wuart",
		Short: "Bridge a serial port over TCP",
		Long: `wuart forwards a UART between two machines over a single TCP connection.

The server (responder) accepts connections and opens the serial device the
client asks for. The client (initiator) owns a local serial device, dials
the server, pushes the remote device path and baud rate, then forwards
bytes in both directions. The client reconnects forever with a fixed delay.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFlag, "config", "c", "", "Config file (.toml, .yaml or .yml)")
	pf.BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	pf.StringVar(&logLevelFlag, "log-level", "info", "Log level")
	pf.IntVar(&protocolFlag, "protocol", 1, "Frame format version (1 or 2)")
	pf.BoolVar(&escapeFlag, "escape", false, "Escape non-printable value bytes")
	pf.IntVarP(&bufferSizeFlag, "buffer-size", "b", 4096, "Socket receive buffer size")
	pf.DurationVarP(&recvTimeoutFlag, "recv-timeout", "t", 10*time.Millisecond, "Socket receive timeout")
	pf.BoolVar(&meterFlag, "meter", false, "Show a live traffic meter")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wuart %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default config file",
		Run: func(cmd *cobra.Command, args []string) {
			os.Stdout.Write(embedded.DefaultConfig())
		},
	}

	rootCmd.AddCommand(
		newServerCmd(),
		newClientCmd(),
		newPacketCmd(),
		listCmd,
		configCmd,
		versionCmd,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file, then applies the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configFlag != "" {
		loaded, err := config.Load(configFlag)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Log.Debug = debugFlag
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevelFlag
	}
	if flags.Changed("protocol") {
		cfg.Link.Protocol = protocolFlag
	}
	if flags.Changed("escape") {
		cfg.Link.Escape = escapeFlag
	}
	if flags.Changed("buffer-size") {
		cfg.Link.BufferSize = bufferSizeFlag
	}
	if flags.Changed("recv-timeout") {
		cfg.Link.PollTimeout = recvTimeoutFlag
	}

	applyServerFlags(cmd, &cfg)
	applyClientFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPortDetails()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		if !p.IsUSB {
			fmt.Printf("  %s\n", p.Name)
			continue
		}
		fmt.Printf("  %s  USB %s:%s", p.Name, p.VID, p.PID)
		if p.Product != "" {
			fmt.Printf("  %s", p.Product)
		}
		if p.SerialNumber != "" {
			fmt.Printf("  (serial %s)", p.SerialNumber)
		}
		fmt.Println()
	}

	return nil
}
