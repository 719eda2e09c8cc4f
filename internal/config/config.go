package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. LENSBRIDGE_LOG_LEVEL
// or LENSBRIDGE_WASM_MEMORY_PAGES.
const EnvPrefix = "LENSBRIDGE"

// Output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds the lensbridge configuration.
type Config struct {
	AddonPaths []string   `mapstructure:"addon_paths"`
	LogLevel   string     `mapstructure:"log_level"`
	Output     string     `mapstructure:"output"`
	Wasm       WasmConfig `mapstructure:"wasm"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty disables the on-disk cache.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Module execution timeout (seconds, 0 for none).
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// Timeout returns ExecutionTimeout as a duration.
func (w WasmConfig) Timeout() time.Duration {
	return time.Duration(w.ExecutionTimeout) * time.Second
}

// Flag names bound to configuration keys.
var flagKeys = map[string]string{
	"addon-path":        "addon_paths",
	"log-level":         "log_level",
	"output":            "output",
	"memory-pages":      "wasm.memory_pages",
	"wasm-debug":        "wasm.debug",
	"cache-dir":         "wasm.cache_dir",
	"execution-timeout": "wasm.execution_timeout",
}

// RegisterFlags adds the configuration flags to fs.
// Flag values only override the file and environment when set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSlice("addon-path", nil, "Directory to scan for add-ons (repeatable)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringP("output", "o", OutputJSON, "Output format (json, yaml)")
	fs.Uint32("memory-pages", 256, "Memory limit per module in 64KB pages")
	fs.Bool("wasm-debug", false, "Enable Wasm debug logging")
	fs.String("cache-dir", "", "Compilation cache directory")
	fs.Int("execution-timeout", 30, "Guest call timeout in seconds (0 for none)")
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// LENSBRIDGE_* environment variables and flags, in increasing precedence.
// fs may be nil.
func LoadConfig(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("addon_paths", []string{"./addons"})
	v.SetDefault("log_level", "info")
	v.SetDefault("output", OutputJSON)

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges viper cannot express.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unsupported output format %q (must be json or yaml)", c.Output)
	}
	if c.Wasm.ExecutionTimeout < 0 {
		return fmt.Errorf("wasm.execution_timeout must not be negative: %d", c.Wasm.ExecutionTimeout)
	}
	if c.Wasm.MaxInstances < 0 {
		return fmt.Errorf("wasm.max_instances must not be negative: %d", c.Wasm.MaxInstances)
	}
	return nil
}
