package config

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/bigbag/wuart/internal/protocol"
)

// Config holds the settings of both bridge roles.
type Config struct {
	Server ServerConfig `toml:"server" yaml:"server"`
	Client ClientConfig `toml:"client" yaml:"client"`
	Link   LinkConfig   `toml:"link" yaml:"link"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ServerConfig is the listening side.
type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

// ClientConfig is the dialing side and the devices it bridges.
type ClientConfig struct {
	Host          string        `toml:"host" yaml:"host"`
	Port          int           `toml:"port" yaml:"port"`
	LocalPath     string        `toml:"local_path" yaml:"local_path"`
	LocalBaud     int           `toml:"local_baud" yaml:"local_baud"`
	RemotePath    string        `toml:"remote_path" yaml:"remote_path"`
	RemoteBaud    int           `toml:"remote_baud" yaml:"remote_baud"`
	RetryInterval time.Duration `toml:"retry_interval" yaml:"retry_interval"`
	DialTimeout   time.Duration `toml:"dial_timeout" yaml:"dial_timeout"`
}

// LinkConfig is shared by both roles and must match on both ends.
type LinkConfig struct {
	Protocol    int           `toml:"protocol" yaml:"protocol"`
	Escape      bool          `toml:"escape" yaml:"escape"`
	BufferSize  int           `toml:"buffer_size" yaml:"buffer_size"`
	PollTimeout time.Duration `toml:"poll_timeout" yaml:"poll_timeout"`
	ReadSize    int           `toml:"read_size" yaml:"read_size"`
	MaxPayload  uint32        `toml:"max_payload" yaml:"max_payload"`
	SerialRead  time.Duration `toml:"serial_read_timeout" yaml:"serial_read_timeout"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	Format  string `toml:"format" yaml:"format"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
	Debug   bool   `toml:"debug" yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: protocol.DefaultPort,
		},
		Client: ClientConfig{
			Host:          "127.0.0.1",
			Port:          protocol.DefaultPort,
			LocalPath:     "/dev/ttyUSB0",
			LocalBaud:     protocol.DefaultBaudRate,
			RemotePath:    "COM826",
			RemoteBaud:    protocol.DefaultBaudRate,
			RetryInterval: 10 * time.Second,
			DialTimeout:   5 * time.Second,
		},
		Link: LinkConfig{
			Protocol:    int(protocol.V1),
			BufferSize:  4096,
			PollTimeout: 10 * time.Millisecond,
			ReadSize:    4096,
			SerialRead:  time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. The format follows the file extension.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = decodeTOML(data, &cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	default:
		return Config{}, errors.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "load %s", path)
	}

	return cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validPort("server.port", c.Server.Port); err != nil {
		return err
	}
	if err := validPort("client.port", c.Client.Port); err != nil {
		return err
	}
	if strings.TrimSpace(c.Client.LocalPath) == "" {
		return errors.New("config: client.local_path is empty")
	}
	if strings.TrimSpace(c.Client.RemotePath) == "" {
		return errors.New("config: client.remote_path is empty")
	}
	if c.Client.LocalBaud <= 0 {
		return errors.Errorf("config: client.local_baud must be positive, got %d", c.Client.LocalBaud)
	}
	if c.Client.RemoteBaud <= 0 {
		return errors.Errorf("config: client.remote_baud must be positive, got %d", c.Client.RemoteBaud)
	}
	if c.Client.RetryInterval <= 0 {
		return errors.Errorf("config: client.retry_interval must be positive, got %s", c.Client.RetryInterval)
	}
	if c.Client.DialTimeout < 0 {
		return errors.Errorf("config: client.dial_timeout must not be negative, got %s", c.Client.DialTimeout)
	}
	if _, err := protocol.ParseVersion(c.Link.Protocol); err != nil {
		return errors.Wrap(err, "config: link.protocol")
	}
	if c.Link.BufferSize <= 0 {
		return errors.Errorf("config: link.buffer_size must be positive, got %d", c.Link.BufferSize)
	}
	if c.Link.ReadSize <= 0 {
		return errors.Errorf("config: link.read_size must be positive, got %d", c.Link.ReadSize)
	}
	if c.Link.PollTimeout <= 0 {
		return errors.Errorf("config: link.poll_timeout must be positive, got %s", c.Link.PollTimeout)
	}
	if c.Link.SerialRead <= 0 {
		return errors.Errorf("config: link.serial_read_timeout must be positive, got %s", c.Link.SerialRead)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return errors.Errorf("config: %s out of range: %d", name, port)
	}
	return nil
}

// ServerAddr returns the listen address.
func (c Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ClientAddr returns the address the client dials.
func (c Config) ClientAddr() string {
	return net.JoinHostPort(c.Client.Host, strconv.Itoa(c.Client.Port))
}

// Codec returns the frame codec both ends must share.
func (c Config) Codec() protocol.Codec {
	return protocol.Codec{
		Version:    protocol.Version(c.Link.Protocol),
		MaxPayload: c.Link.MaxPayload,
		Escape:     c.Link.Escape,
	}
}
