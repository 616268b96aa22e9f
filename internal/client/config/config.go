// Package config loads runtime configuration for the feedhub CLI.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// (-c/-config), FEEDHUB_* environment variables, then the global flags
// given before the command name.
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "token_file": "/home/me/.feedhub/token",
//	  "request_timeout": "10s"
//	}
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the feedhub CLI.
type Config struct {
	ServerEndpointAddr string `env:"SERVER_ADDR"`
	// TokenFile keeps the access token between invocations.
	TokenFile      string        `env:"TOKEN_FILE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

const envPrefix = "FEEDHUB_"

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.TokenFile = defaultTokenFile()
	c.RequestTimeout = 10 * time.Second
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".feedhub", "token")
	}
	return filepath.Join(home, ".feedhub", "token")
}

// LoadConfig builds a Config from args, which must hold only the global
// flags (see SplitArgs).
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}

func parseEnv(cfg *Config) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		panic(err)
	}
}

// SplitArgs separates the leading global flags from the command and its
// own arguments: "-a host:1 post -title hi" gives ["-a" "host:1"] and
// ["post" "-title" "hi"]. Every global flag takes a value.
func SplitArgs(args []string) (global, rest []string) {
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		if strings.Contains(arg, "=") {
			i++
			continue
		}
		i += 2
	}
	if i > len(args) {
		i = len(args)
	}
	return args[:i], args[i:]
}
