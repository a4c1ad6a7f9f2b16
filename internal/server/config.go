package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Server timeouts used when the configuration leaves them empty.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address         string               `yaml:"address"`
	MaxUploadSize   string               `yaml:"maxUploadSize"`
	ReadTimeout     string               `yaml:"readTimeout,omitempty"`
	WriteTimeout    string               `yaml:"writeTimeout,omitempty"`
	ShutdownTimeout string               `yaml:"shutdownTimeout,omitempty"`
	Logging         config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = strconv.FormatInt(size, 10)
	}
}

// Timeouts returns the read, write and graceful shutdown timeouts.
func (c *Config) Timeouts() (read, write, shutdown time.Duration) {
	return c.readTimeout, c.writeTimeout, c.shutdownTimeout
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	bytes, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	if bytes <= 0 {
		bytes = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = bytes
	c.MaxUploadSize = strconv.FormatInt(bytes, 10)

	durations := []struct {
		name  string
		value string
		def   time.Duration
		dst   *time.Duration
	}{
		{"readTimeout", c.ReadTimeout, DefaultReadTimeout, &c.readTimeout},
		{"writeTimeout", c.WriteTimeout, DefaultWriteTimeout, &c.writeTimeout},
		{"shutdownTimeout", c.ShutdownTimeout, DefaultShutdownTimeout, &c.shutdownTimeout},
	}
	for _, d := range durations {
		*d.dst = d.def
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		if parsed > 0 {
			*d.dst = parsed
		}
	}
	return nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper[:idx]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch strings.TrimSpace(upper[idx:]) {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", upper[idx:])
	}

	result := n * multiplier
	if result < 0 || (n != 0 && result/multiplier != n) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
