package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/execkit/process"
)

// EnvPrefix prefixes every environment override, e.g. EXECKIT_PROCESS_TIMEOUT.
const EnvPrefix = "EXECKIT"

const configFileName = "execkit.yml"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	ConfigDir() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) ConfigDir() (string, error) {
	return os.UserConfigDir()
}

// Resolver handles finding config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths if provided, otherwise searches for them.
func (cr *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.findConfigFile()
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.findEnvFile()
	}
	return resolved
}

// SearchPaths lists config file candidates in priority order.
func (cr *Resolver) SearchPaths() []string {
	paths := []string{
		"./" + configFileName,
		"./config/" + configFileName,
	}
	if dir, err := cr.FileSystem.ConfigDir(); err == nil && dir != "" {
		paths = append(paths, filepath.Join(dir, "execkit", configFileName))
	}
	return paths
}

func (cr *Resolver) findConfigFile() string {
	for _, path := range cr.SearchPaths() {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

func (cr *Resolver) findEnvFile() string {
	for _, path := range []string{"./.env.execkit", "./.env"} {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load resolves execkit.yml and .env, applies EXECKIT_* environment
// overrides, fills defaults and validates the result.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(lc)

	cfg, err := loadFromResolvedFiles(files, lc)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromResolvedFiles(files ResolvedFiles, lc LoaderConfig) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 1. .env first so its values are visible to AutomaticEnv.
	if files.EnvFile != "" {
		if !lc.FileSystem.Exists(files.EnvFile) {
			if lc.EnvFile != "" {
				return nil, fmt.Errorf("env file %s not found", files.EnvFile)
			}
		} else if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", files.EnvFile, err)
		}
	}

	// 2. YAML config.
	if files.ConfigFile != "" {
		if !lc.FileSystem.Exists(files.ConfigFile) {
			if lc.ConfigFile != "" {
				return nil, fmt.Errorf("config file %s not found", files.ConfigFile)
			}
		} else {
			v.SetConfigFile(files.ConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
			}
		}
	}

	// 3. EXECKIT_SECTION_KEY environment overrides.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", DefaultName)
	v.SetDefault("environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.timestamp", true)
	v.SetDefault("logging.caller", false)

	v.SetDefault("process.name", "process")
	v.SetDefault("process.timeout", "0s")
	v.SetDefault("process.grace_period", process.DefaultGracePeriod.String())
	v.SetDefault("process.kill_wait", process.DefaultKillWait.String())
	v.SetDefault("process.drain_timeout", process.DefaultDrainTimeout.String())
	v.SetDefault("process.max_capture_bytes", 0)
	v.SetDefault("process.capture_mode", string(process.CaptureTail))
	v.SetDefault("process.single_process", false)
	v.SetDefault("process.log_output_limit", process.DefaultLogOutputLimit)

	v.SetDefault("observability.tracing", false)
	v.SetDefault("observability.metrics", false)
	v.SetDefault("observability.endpoint", "localhost:4318")
	v.SetDefault("observability.insecure", false)
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.interval", "15s")
}
