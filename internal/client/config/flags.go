package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/feedhub/internal/flagx"
)

// parseFlags overlays the global flags:
//
//	-a string   address and port of the feedhub server
//	-t string   token file
//	-w int      request timeout, seconds
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("feedhub-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.TokenFile, "t", cfg.TokenFile, "file keeping the access token")
	timeout := fs.Int("w", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-t", "-w"})); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "w" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
}
