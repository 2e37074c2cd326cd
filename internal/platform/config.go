package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cone387/cone/pkg/core"
	"github.com/cone387/cone/pkg/notify"
	"github.com/cone387/cone/pkg/registry"
)

// Config is the content of a cone.yaml file.
type Config struct {
	Notify     NotifyConfig     `yaml:"notify"`
	Registries []RegistryConfig `yaml:"registries" validate:"dive"`

	// Dir is the directory the file was read from. Relative registry paths
	// are taken from it.
	Dir string `yaml:"-"`
}

// NotifyConfig configures the webhook notifier.
type NotifyConfig struct {
	Endpoint string         `yaml:"endpoint" validate:"omitempty,url"`
	Message  string         `yaml:"message"`
	Timeout  time.Duration  `yaml:"timeout" validate:"gte=0"`
	Robots   []notify.Robot `yaml:"robots" validate:"dive"`
}

// RegistryConfig describes one registry manager.
type RegistryConfig struct {
	Name       string   `yaml:"name" validate:"required"`
	Paths      []string `yaml:"paths"`
	UniqueKeys []string `yaml:"unique_keys" validate:"min=1,dive,required"`
	Patterns   []string `yaml:"patterns"`
}

// LoadConfig reads and validates the config file at path. An empty path means
// FindConfig from the working directory; when nothing is found the defaults are
// returned.
func LoadConfig(path string) (*Config, error) {
	const op = "platform.LoadConfig"

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, core.E(core.KindConfig, op, err)
		}
		found, err := FindConfig(wd)
		if errors.Is(err, ErrConfigNotFound) {
			slog.Debug("configuration file not found, using defaults")
			return &Config{Dir: wd}, nil
		}
		if err != nil {
			return nil, core.E(core.KindConfig, op, err)
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.E(core.KindConfig, op, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, core.E(core.KindConfig, op, fmt.Errorf("%s: %w", path, err))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, core.E(core.KindConfig, op, err)
	}
	cfg.Dir = filepath.Dir(abs)

	slog.Debug("configuration loaded", "path", abs, "robots", len(cfg.Notify.Robots), "registries", len(cfg.Registries))
	return cfg, nil
}

// ParseConfig decodes and validates YAML config data.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ErrUnknownRobot is returned by Robot for names the config does not list.
var ErrUnknownRobot = errors.New("unknown robot")

// Robot returns the robot called name.
func (c NotifyConfig) Robot(name string) (notify.Robot, error) {
	for _, r := range c.Robots {
		if r.Name == name {
			return r, nil
		}
	}
	return notify.Robot{}, core.E(core.KindConfig, "platform.Robot", fmt.Errorf("%w: %q", ErrUnknownRobot, name))
}

// ClientOptions turns the config into notifier options.
func (c NotifyConfig) ClientOptions(logger *slog.Logger) []notify.Option {
	opts := []notify.Option{notify.WithLogger(logger)}
	if c.Endpoint != "" {
		opts = append(opts, notify.WithEndpoint(c.Endpoint))
	}
	if c.Timeout > 0 {
		opts = append(opts, notify.WithHTTPClient(&http.Client{Timeout: c.Timeout}))
	}
	return opts
}

// ErrUnknownRegistry is returned by Registry for names the config does not list.
var ErrUnknownRegistry = errors.New("unknown registry")

// Registry returns the registry called name. An empty name picks the first one.
func (c *Config) Registry(name string) (RegistryConfig, error) {
	for _, r := range c.Registries {
		if name == "" || r.Name == name {
			return r, nil
		}
	}
	if name == "" {
		return RegistryConfig{}, core.E(core.KindConfig, "platform.Registry", errors.New("no registries configured"))
	}
	return RegistryConfig{}, core.E(core.KindConfig, "platform.Registry", fmt.Errorf("%w: %q", ErrUnknownRegistry, name))
}

// ManagerOptions turns the registry config into manager options rooted at dir.
func (r RegistryConfig) ManagerOptions(dir string, logger *slog.Logger) []registry.Option {
	opts := []registry.Option{
		registry.WithName(r.Name),
		registry.WithRoot(dir),
		registry.WithUniqueKeys(r.UniqueKeys...),
		registry.WithLogger(logger),
	}
	if len(r.Paths) > 0 {
		opts = append(opts, registry.WithPaths(r.Paths...))
	}
	if len(r.Patterns) > 0 {
		opts = append(opts, registry.WithPatterns(r.Patterns...))
	}
	return opts
}
