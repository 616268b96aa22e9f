package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/feedhub/internal/flagx"
	"github.com/dmitrijs2005/feedhub/internal/timex"
)

// jsonConfig is the on-disk shape of the config file. Durations accept
// either "1m" style strings or integer nanoseconds.
type jsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	GRPCMaxRecvBytes            int            `json:"grpc_max_recv_bytes"`
	DatabaseDSN                 string         `json:"database_dsn"`
	DatabaseMaxConns            int32          `json:"database_max_conns"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3PublicBaseURL             string         `json:"s3_public_base_url"`
	LogLevel                    string         `json:"log_level"`
	LogFormat                   string         `json:"log_format"`
	RepairSchedule              *string        `json:"repair_schedule"`
}

// parseJSON overlays values from the file named by -c/-config. Keys that are
// missing from the file keep their current value. Panics if the file cannot
// be read or decoded.
func parseJSON(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		panic(err)
	}

	setString(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.GRPCMaxRecvBytes > 0 {
		cfg.GRPCMaxRecvBytes = c.GRPCMaxRecvBytes
	}
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	if c.DatabaseMaxConns > 0 {
		cfg.DatabaseMaxConns = c.DatabaseMaxConns
	}
	setString(&cfg.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.BcryptCost > 0 {
		cfg.BcryptCost = c.BcryptCost
	}
	setString(&cfg.S3RootUser, c.S3RootUser)
	setString(&cfg.S3RootPassword, c.S3RootPassword)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&cfg.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.LogFormat, c.LogFormat)
	// an explicit "" turns the repair job off
	if c.RepairSchedule != nil {
		cfg.RepairSchedule = *c.RepairSchedule
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
