// Package config loads application configuration from environment variables
// into tagged structs.
//
// It wraps github.com/joho/godotenv for optional .env files and
// github.com/caarlos0/env/v11 for struct parsing. Options add env files,
// a variable name prefix, or an explicit variable map for tests:
//
//	var cfg struct {
//		DatabaseURL string `env:"DATABASE_URL,required"`
//	}
//	if err := config.Load(&cfg, config.WithPrefix("SUBLIFE_"), config.WithEnvFiles(".env")); err != nil {
//		return err
//	}
//
// Parsing failures are wrapped with ErrParsingConfig; file errors with
// ErrLoadingEnvFile.
package config
