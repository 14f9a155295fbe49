// Package config loads server settings from defaults, an optional TOML file
// and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	DB      DBConfig      `toml:"db"`
	Log     LogConfig     `toml:"log"`
	Karma   KarmaConfig   `toml:"karma"`
	Mail    MailConfig    `toml:"mail"`
	Storage StorageConfig `toml:"storage"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Path  string     `toml:"path"`
	Level slog.Level `toml:"level"`
}

type KarmaConfig struct {
	Points    int      `toml:"points"`
	CacheSize int      `toml:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// MailConfig configures outbound email. An empty Host logs messages instead
// of sending them.
type MailConfig struct {
	Host                   string   `toml:"host"`
	Port                   int      `toml:"port"`
	Username               string   `toml:"username"`
	Password               string   `toml:"password"`
	From                   string   `toml:"from"`
	IncludeContactOnAccept bool     `toml:"include_contact_on_accept"`
	MaxInFlight            int64    `toml:"max_in_flight"`
	Timeout                Duration `toml:"timeout"`
}

// Storage backends for rendered QR images.
const (
	StorageInline = "inline"
	StorageS3     = "s3"
)

// StorageConfig selects where QR images go. inline embeds them as data URLs.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PublicURL string `toml:"public_url"`
	PathStyle bool   `toml:"path_style"`
}

// Duration is a time.Duration that reads as "30s" in TOML and on the command
// line.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(5 * time.Second),
		},
		DB:  DBConfig{Path: "campuslf.sqlite3"},
		Log: LogConfig{Level: slog.LevelInfo},
		Karma: KarmaConfig{
			Points:    50,
			CacheSize: 128,
			CacheTTL:  Duration(30 * time.Second),
		},
		Mail: MailConfig{
			Port:        587,
			From:        "lostfound@campus.local",
			MaxInFlight: 8,
			Timeout:     Duration(10 * time.Second),
		},
		Storage: StorageConfig{Backend: StorageInline},
	}
}

// Bind registers the shared flags on fs, writing into c. Each flag has a long
// and a short spelling.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.DB.Path, "db", c.DB.Path, "")
	fs.StringVar(&c.DB.Path, "d", c.DB.Path, "")

	fs.StringVar(&c.Server.Addr, "addr", c.Server.Addr, "")
	fs.StringVar(&c.Server.Addr, "a", c.Server.Addr, "")

	fs.StringVar(&c.Log.Path, "log", c.Log.Path, "")
	fs.StringVar(&c.Log.Path, "l", c.Log.Path, "")

	fs.TextVar(&c.Log.Level, "log-level", c.Log.Level, "")

	fs.IntVar(&c.Karma.Points, "karma-points", c.Karma.Points, "")

	fs.StringVar(&c.Mail.Host, "smtp-host", c.Mail.Host, "")
	fs.IntVar(&c.Mail.Port, "smtp-port", c.Mail.Port, "")
	fs.BoolVar(&c.Mail.IncludeContactOnAccept, "include-contact", c.Mail.IncludeContactOnAccept, "")

	fs.StringVar(&c.Storage.Backend, "storage", c.Storage.Backend, "")
}

// Load parses args with fs and returns the resulting configuration. Callers
// may register extra flags on fs beforehand.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	var path string
	fs.StringVar(&path, "config", "", "")
	fs.StringVar(&path, "c", "", "")
	cfg.Bind(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path != "" {
		// Remember explicit flags so they win over the file.
		explicit := map[string]string{}
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("reapplying -%s: %w", name, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the TOML file at path onto c. Keys missing from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s: %s", path, strict.String())
		}
		return fmt.Errorf("decoding config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server address is required")
	case c.DB.Path == "":
		return errors.New("database path is required")
	case c.Karma.Points < 0:
		return errors.New("karma points must not be negative")
	case c.Karma.CacheSize < 1:
		return errors.New("karma cache size must be positive")
	case c.Mail.MaxInFlight < 1:
		return errors.New("mail max_in_flight must be positive")
	case c.Mail.Host != "" && (c.Mail.Port < 1 || c.Mail.Port > 65535):
		return fmt.Errorf("invalid SMTP port %d", c.Mail.Port)
	}

	switch c.Storage.Backend {
	case StorageInline:
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
