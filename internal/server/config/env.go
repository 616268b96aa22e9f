package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "FEEDHUB_"

// parseEnv overlays FEEDHUB_* variables. Unset variables leave the field
// untouched. A .env file is loaded first when present; variables already set
// in the process environment win over it.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		panic(err)
	}
}
