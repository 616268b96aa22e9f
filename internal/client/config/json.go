package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/feedhub/internal/flagx"
	"github.com/dmitrijs2005/feedhub/internal/timex"
)

type jsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	TokenFile          string         `json:"token_file"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJSON overlays values from the file named by -c/-config. Panics if
// the file cannot be read or decoded.
func parseJSON(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.TokenFile != "" {
		cfg.TokenFile = jc.TokenFile
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
