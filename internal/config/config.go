// Package config loads the YAML configuration shared by the rgddl commands.
//
// Every section is optional. Values absent from the file keep their
// defaults, and command-line flags override both.
package config

import (
	"errors"
	"io"
	"os"

	"github.com/koustreak/rgddl/internal/database"
	"github.com/koustreak/rgddl/internal/ddl"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/filestore"
	"github.com/koustreak/rgddl/internal/logger"
	"go.yaml.in/yaml/v3"
)

// Config is the root of an rgddl configuration file.
type Config struct {
	Log      logger.Config    `yaml:"log"`
	DDL      DDLConfig        `yaml:"ddl"`
	Store    filestore.Config `yaml:"store"`
	Database database.Config  `yaml:"database"`
	Server   ServerConfig     `yaml:"server"`
}

// DDLConfig tunes compilation.
type DDLConfig struct {
	// Directory is the Oracle directory object named by staging tables.
	Directory string `yaml:"directory"`

	// Strict turns on template validation before compiling.
	Strict bool `yaml:"strict"`
}

// ServerConfig configures rgddl-server.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// MaxBodyBytes caps the size of a template posted to the service.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// JWTSecret, when set, requires an HS256 bearer token on /v1 routes.
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: *logger.DefaultConfig(),
		DDL: DDLConfig{
			Directory: ddl.DefaultDirectory,
		},
		Store:    filestore.Config{Provider: filestore.ProviderMinIO},
		Database: *database.DefaultConfig(""),
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 8 << 20,
		},
	}
}

// Load reads the file at path over Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "config file "+path+" not found", err)
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "cannot open config file "+path, err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errs.Wrap(errs.ErrKindInvalidInput, "malformed config", err)
	}
	return c.Validate()
}

// Validate checks values a YAML decoder cannot.
func (c *Config) Validate() error {
	if c.DDL.Directory == "" {
		return errs.New(errs.ErrKindInvalidInput, "ddl.directory must not be empty")
	}
	if !ddl.ValidDirectory(c.DDL.Directory) {
		return errs.Newf(errs.ErrKindInvalidInput, "ddl.directory %q is not an Oracle identifier", c.DDL.Directory)
	}
	switch c.Store.Provider {
	case "", filestore.ProviderMinIO, filestore.ProviderS3:
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "store.provider %q is not supported", c.Store.Provider)
	}
	switch c.Database.Driver {
	case "", database.DriverPostgres, database.DriverMySQL, database.DriverSQLite:
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "database.driver %q is not supported", c.Database.Driver)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "server.max_body_bytes must be positive")
	}
	return nil
}
