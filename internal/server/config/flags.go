package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/feedhub/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-m", "-s", "-t", "-k", "-u", "-p", "-b", "-g", "-e", "-w", "-l", "-f", "-r", "-x"}

// parseFlags overlays command-line flags:
//
//	-a string   gRPC bind address
//	-d string   PostgreSQL DSN
//	-m int      max DB connections
//	-s string   JWT HMAC secret
//	-t int      access token validity, minutes
//	-k int      bcrypt cost
//	-u/-p       S3 user / password
//	-b/-g/-e    S3 bucket / region / endpoint
//	-w string   public base URL for pictures
//	-l/-f       log level / format
//	-r string   repair cron schedule ("" disables)
//	-x int      max gRPC request size, bytes
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("feedhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	maxConns := fs.Int("m", int(cfg.DatabaseMaxConns), "max database connections")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	validity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.IntVar(&cfg.BcryptCost, "k", cfg.BcryptCost, "bcrypt cost")
	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3PublicBaseURL, "w", cfg.S3PublicBaseURL, "public base URL for post pictures")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (json|text)")
	fs.StringVar(&cfg.RepairSchedule, "r", cfg.RepairSchedule, "mirror repair cron schedule")
	fs.IntVar(&cfg.GRPCMaxRecvBytes, "x", cfg.GRPCMaxRecvBytes, "max gRPC request size in bytes")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		panic(err)
	}

	// only explicit flags replace the typed values, so "90s" from JSON survives
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			cfg.DatabaseMaxConns = int32(*maxConns)
		case "t":
			cfg.AccessTokenValidityDuration = time.Duration(*validity) * time.Minute
		}
	})
}
