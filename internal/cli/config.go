package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	toml "github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/catalog"
	"github.com/hupe1980/wah/codec"
	"github.com/hupe1980/wah/resource"
)

const envPrefix = "WAHCTL"

// Config holds the settings shared by all commands. The toml keys equal the
// flag names.
type Config struct {
	Store          string `toml:"store"`
	DDBTable       string `toml:"ddb-table"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	MinIOAccessKey string `toml:"minio-access-key"`
	MinIOSecretKey string `toml:"minio-secret-key"`
	MinIOSecure    bool   `toml:"minio-secure"`
	Compressor     string `toml:"compressor"`
	CacheSize      int64  `toml:"cache-size"`
	MemoryLimit    int64  `toml:"memory-limit"`
	ReadRate       int64  `toml:"read-rate"`
	Concurrency    int    `toml:"concurrency"`
	Verify         bool   `toml:"verify"`
	LogLevel       string `toml:"log-level"`
	LogFormat      string `toml:"log-format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Store:       "file://wahdata",
		Compressor:  "lz4",
		CacheSize:   catalog.DefaultCacheSize,
		Concurrency: 4,
		LogLevel:    "warn",
		LogFormat:   "text",
	}
}

func (c *Config) registerFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringVar(&c.Store, "store", d.Store, "Blob store URL: file://DIR, mem://NAME, s3://BUCKET/PREFIX or minio://HOST/BUCKET/PREFIX.")
	fs.StringVar(&c.DDBTable, "ddb-table", d.DDBTable, "DynamoDB table that serializes commits to an s3:// store.")
	fs.StringVar(&c.Region, "region", d.Region, "AWS region; empty uses the SDK default chain.")
	fs.StringVar(&c.Endpoint, "endpoint", d.Endpoint, "Custom S3/DynamoDB endpoint URL.")
	fs.StringVar(&c.MinIOAccessKey, "minio-access-key", d.MinIOAccessKey, "MinIO access key.")
	fs.StringVar(&c.MinIOSecretKey, "minio-secret-key", d.MinIOSecretKey, "MinIO secret key.")
	fs.BoolVar(&c.MinIOSecure, "minio-secure", d.MinIOSecure, "Use TLS for MinIO.")
	fs.StringVar(&c.Compressor, "compressor", d.Compressor, "Blob compressor: none, lz4 or zstd.")
	fs.Int64Var(&c.CacheSize, "cache-size", d.CacheSize, "Decoded bitmap cache budget in bytes; 0 disables the cache.")
	fs.Int64Var(&c.MemoryLimit, "memory-limit", d.MemoryLimit, "Memory budget for cached bitmaps in bytes; 0 is unlimited.")
	fs.Int64Var(&c.ReadRate, "read-rate", d.ReadRate, "Blob read limit in bytes per second; 0 is unlimited.")
	fs.IntVar(&c.Concurrency, "concurrency", d.Concurrency, "Parallel bitmap loads.")
	fs.BoolVar(&c.Verify, "verify", d.Verify, "Validate every loaded bitmap.")
	fs.StringVar(&c.LogLevel, "log-level", d.LogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&c.LogFormat, "log-format", d.LogFormat, "Log format: text or json.")
}

// setAllConfig fills every flag not given on the command line from the
// environment or the config file named by the "config" flag.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading configuration file %q: %w", path, err)
		}

		for _, key := range v.AllKeys() {
			if flags.Lookup(key) == nil {
				return fmt.Errorf("invalid option in configuration file: %s", key)
			}
		}
	}

	var flagErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}

		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
		}
	})

	return flagErr
}

func (c *Config) logger(w io.Writer) (*wah.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "", "text":
		return wah.NewTextLogger(w, level), nil
	case "json":
		return wah.NewJSONLogger(w, level), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
}

func (c *Config) catalogOptions(logger *wah.Logger) ([]catalog.Option, error) {
	comp, err := codec.CompressorByName(c.Compressor)
	if err != nil {
		return nil, err
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes: c.MemoryLimit,
		MaxParallelLoads: int64(c.Concurrency),
		ReadBytesPerSec:  c.ReadRate,
	})

	return []catalog.Option{
		catalog.WithCompressor(comp),
		catalog.WithCacheSize(c.CacheSize),
		catalog.WithConcurrency(c.Concurrency),
		catalog.WithVerify(c.Verify),
		catalog.WithResourceController(rc),
		catalog.WithLogger(logger),
	}, nil
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cfg.MinIOSecretKey != "" {
				cfg.MinIOSecretKey = "<redacted>"
			}

			buf, err := toml.Marshal(cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(a.stdout, string(buf))

			return err
		},
	}
}
