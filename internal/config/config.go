// Package config loads pplctl settings from YAML or TOML files and PPL_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/internal/observability"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML
// nor TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the complete pplctl configuration.
type Config struct {
	Logging logging.Config              `yaml:"logging" toml:"logging"`
	Tracing observability.TracingConfig `yaml:"tracing" toml:"tracing"`
	Metrics MetricsConfig               `yaml:"metrics" toml:"metrics"`
	Server  ServerConfig                `yaml:"server" toml:"server"`
	Parser  ParserConfig                `yaml:"parser" toml:"parser"`
	Export  ExportConfig                `yaml:"export" toml:"export"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// ServerConfig controls the gRPC server started by pplctl serve.
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
	// MaxMessageBytes bounds an inbound request; PPL files are sent whole.
	MaxMessageBytes int           `yaml:"max_message_bytes" toml:"max_message_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// ParserConfig tunes the parse pipeline.
type ParserConfig struct {
	SequentialDecode bool `yaml:"sequential_decode" toml:"sequential_decode"`
}

// ExportConfig sets where convert and the Export RPC write.
type ExportConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: logging.Config{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
		Server: ServerConfig{
			GRPCAddr:        ":50061",
			MaxMessageBytes: 256 << 20,
			ShutdownTimeout: 5 * time.Second,
		},
		Export: ExportConfig{Path: "ppl.db"},
	}
}

// Load reads path over the defaults. The format follows the file
// extension: .yaml/.yml or .toml. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return cfg, nil
}

// ApplyEnv overlays PPL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PPL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PPL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	c.Tracing = observability.TracingConfigFromEnv(c.Tracing)
	if v := os.Getenv("PPL_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PPL_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("PPL_GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv("PPL_MAX_MESSAGE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.MaxMessageBytes = n
		}
	}
	if v := os.Getenv("PPL_SEQUENTIAL_DECODE"); v != "" {
		c.Parser.SequentialDecode = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PPL_EXPORT_PATH"); v != "" {
		c.Export.Path = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not text or json", c.Logging.Format)
	}

	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("config: tracing.exporter %q is not stdout or otlp", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("config: tracing.sample_ratio %v is outside [0, 1]", c.Tracing.SampleRatio)
	}

	if c.Metrics.Enabled {
		if err := checkAddr("metrics.addr", c.Metrics.Addr); err != nil {
			return err
		}
	}
	if err := checkAddr("server.grpc_addr", c.Server.GRPCAddr); err != nil {
		return err
	}
	if c.Server.MaxMessageBytes <= 0 {
		return fmt.Errorf("config: server.max_message_bytes must be positive, got %d", c.Server.MaxMessageBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("config: server.shutdown_timeout must not be negative")
	}
	return nil
}

func checkAddr(field, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("config: %s %q: %w", field, addr, err)
	}
	return nil
}
