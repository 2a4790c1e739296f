package config

import (
	"errors"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option customises a single Load call.
type Option func(*loadOptions)

type loadOptions struct {
	files       []string
	requireFile bool
	prefix      string
	environment map[string]string
}

// WithEnvFiles loads the given .env files before parsing. Missing files are
// skipped unless WithRequiredEnvFiles is also set. Variables already present
// in the process environment are never overridden.
func WithEnvFiles(paths ...string) Option {
	return func(o *loadOptions) {
		o.files = append(o.files, paths...)
	}
}

// WithRequiredEnvFiles makes a missing env file an error.
func WithRequiredEnvFiles() Option {
	return func(o *loadOptions) { o.requireFile = true }
}

// WithPrefix prepends prefix to every env tag, e.g. "SUBLIFE_".
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// WithEnvironment parses from vars instead of the process environment.
// Env files are merged into vars without overriding existing keys.
func WithEnvironment(vars map[string]string) Option {
	return func(o *loadOptions) {
		o.environment = make(map[string]string, len(vars))
		for k, v := range vars {
			o.environment[k] = v
		}
	}
}

// Load parses environment variables into v using `env` struct tags.
//
//	type HTTPConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg HTTPConfig
//	err := config.Load(&cfg, config.WithPrefix("SUBLIFE_"), config.WithEnvFiles(".env"))
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := loadFiles(o); err != nil {
		return err
	}

	envOpts := env.Options{Prefix: o.prefix}
	if o.environment != nil {
		envOpts.Environment = o.environment
	}
	if err := env.ParseWithOptions(v, envOpts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func loadFiles(o *loadOptions) error {
	for _, path := range o.files {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) && !o.requireFile {
				continue
			}
			return errors.Join(ErrLoadingEnvFile, err)
		}

		if o.environment == nil {
			if err := godotenv.Load(path); err != nil {
				return errors.Join(ErrLoadingEnvFile, err)
			}
			continue
		}

		vars, err := godotenv.Read(path)
		if err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
		for k, val := range vars {
			if _, ok := o.environment[k]; !ok {
				o.environment[k] = val
			}
		}
	}
	return nil
}
