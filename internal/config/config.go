// Package config resolves libcat settings.
//
// Precedence, lowest to highest:
//
//	defaults -> YAML file -> .env file -> process environment -> CLI flags
//
// Flags are applied by the CLI after Load returns.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvDatabase  = "LIBCAT_DB"
	EnvFormat    = "LIBCAT_FORMAT"
	EnvVerbose   = "LIBCAT_VERBOSE"
	EnvImportDir = "LIBCAT_IMPORT_DIR"
)

// Defaults.
const (
	DefaultDatabase = "library.db"
	DefaultFormat   = "text"
	DefaultEnvFile  = ".env"
)

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Config holds resolved settings.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Format is the CLI output format: text or json.
	Format string `yaml:"format"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`

	// ImportDir is the base directory for relative import paths.
	ImportDir string `yaml:"import_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database: DefaultDatabase,
		Format:   DefaultFormat,
	}
}

// Loader reads configuration from its sources.
type Loader struct {
	// ConfigPath is an optional YAML file. When set, the file must exist.
	ConfigPath string

	// EnvFile is an optional dotenv file. A missing file is ignored.
	EnvFile string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves settings from the YAML file at path, ./.env and the process
// environment.
func Load(path string) (Config, error) {
	return Loader{ConfigPath: path, EnvFile: DefaultEnvFile}.Load()
}

// Load resolves settings from every configured source and validates them.
func (l Loader) Load() (Config, error) {
	cfg := Default()

	if l.ConfigPath != "" {
		if err := readYAML(l.ConfigPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if l.EnvFile != "" {
		values, err := godotenv.Read(l.EnvFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.EnvFile, err)
		}
	}

	lookupEnv := l.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if v, ok := lookup(EnvDatabase); ok && v != "" {
		cfg.Database = v
	}
	if v, ok := lookup(EnvFormat); ok && v != "" {
		cfg.Format = v
	}
	if v, ok := lookup(EnvImportDir); ok && v != "" {
		cfg.ImportDir = v
	}
	if v, ok := lookup(EnvVerbose); ok && v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvVerbose, err)
		}
		cfg.Verbose = verbose
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database path must not be empty")
	}
	if !IsValidFormat(c.Format) {
		return fmt.Errorf("config: invalid format %q (must be one of: %v)", c.Format, ValidFormats)
	}
	return nil
}

// IsValidFormat reports whether f is one of ValidFormats.
func IsValidFormat(f string) bool {
	for _, v := range ValidFormats {
		if f == v {
			return true
		}
	}
	return false
}
