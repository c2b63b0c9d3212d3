// Package config provides the configuration loader for incr.
package config

import (
	"os"
	"path/filepath"

	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds incr.yaml in cwd or its parents. Without one, the defaults rooted
// at cwd are used.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	configPath, found := findConfiguration(cwd)
	if !found {
		l.Logger.Debug("no " + domain.ConfigFileName + " found, using defaults")
		cfg := domain.DefaultConfig(filepath.Clean(cwd))
		return cfg, nil
	}
	return l.LoadFile(configPath)
}

// LoadFile reads the configuration from an explicit path.
func (l *Loader) LoadFile(configPath string) (*domain.Config, error) {
	var file Incrfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	l.Logger.Debug("using configuration " + configPath)
	cfg, err := resolve(configPath, &file)
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return cfg, nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		configPath := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

// resolve applies file over the defaults and makes every path absolute.
// Relative paths are relative to the root, the root relative to the file.
func resolve(configPath string, file *Incrfile) (*domain.Config, error) {
	root := resolvePath(filepath.Dir(configPath), file.Root)
	cfg := domain.DefaultConfig(root)

	if file.Index != "" {
		cfg.Index = resolvePath(root, file.Index)
	}
	if file.LayoutIndex != "" {
		cfg.LayoutIndex = resolvePath(root, file.LayoutIndex)
	}
	if file.Include != nil {
		cfg.Include = file.Include
	}
	if file.Exclude != nil {
		cfg.Exclude = file.Exclude
	}
	if file.FlushEvery != nil {
		cfg.FlushEvery = *file.FlushEvery
	}
	if file.ContinueOnError != nil {
		cfg.ContinueOnError = *file.ContinueOnError
	}
	if file.Parallelism != nil {
		cfg.Parallelism = *file.Parallelism
	}
	if file.Compression != "" {
		cfg.Compression = domain.Compression(file.Compression)
	}
	cfg.TrustMetadata = file.TrustMetadata
	if file.MemoSize > 0 {
		cfg.MemoSize = file.MemoSize
	}
	if file.LogFile != nil {
		cfg.LogFile = ""
		if *file.LogFile != "" {
			cfg.LogFile = resolvePath(root, *file.LogFile)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a user can set on the command line or in incr.yaml.
func Validate(cfg *domain.Config) error {
	if !cfg.Compression.Valid() {
		return zerr.With(domain.ErrInvalidCompression, "compression", string(cfg.Compression))
	}
	if cfg.FlushEvery <= 0 {
		return zerr.With(domain.ErrInvalidFlushEvery, "flush_every", cfg.FlushEvery)
	}
	if cfg.Parallelism <= 0 {
		return zerr.With(domain.ErrInvalidParallelism, "parallelism", cfg.Parallelism)
	}
	if bad, ok := fs.ValidatePatterns(cfg.Include); !ok {
		return zerr.With(domain.ErrInvalidPattern, "pattern", bad)
	}
	if bad, ok := fs.ValidatePatterns(cfg.Exclude); !ok {
		return zerr.With(domain.ErrInvalidPattern, "pattern", bad)
	}
	return nil
}

func resolvePath(base, p string) string {
	if p == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is validated by caller
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
