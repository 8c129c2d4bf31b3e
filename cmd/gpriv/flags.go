package main

import (
	"strings"

	"github.com/tos-network/gpriv/enclave"
	"github.com/tos-network/gpriv/internal/flags"
	"github.com/tos-network/gpriv/metrics"
	"github.com/tos-network/gpriv/privacy"
	"github.com/urfave/cli/v2"
)

var (
	// Privacy settings
	userIDFlag = &cli.StringFlag{
		Name:     "privacy.userid",
		Usage:    "Base64 enclave public key the node acts for",
		EnvVars:  []string{"GPRIV_PRIVACY_USERID"},
		Category: flags.PrivacyCategory,
	}
	dataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Directory of the extended privacy store (in memory if empty)",
		Category: flags.StorageCategory,
	}
	cacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to the extended privacy store",
		Value:    privacy.DefaultConfig.DatabaseCache,
		Category: flags.StorageCategory,
	}

	// Enclave settings
	enclaveURLFlag = &cli.StringFlag{
		Name:     "enclave.url",
		Usage:    "URL of the enclave REST API",
		Value:    enclave.DefaultConfig.URL,
		EnvVars:  []string{"GPRIV_ENCLAVE_URL"},
		Category: flags.EnclaveCategory,
	}
	enclaveJWTFlag = &cli.StringFlag{
		Name:     "enclave.jwtsecret",
		Usage:    "Path to a hex encoded 32 byte secret used to authenticate enclave requests",
		Category: flags.EnclaveCategory,
	}
	enclaveTimeoutFlag = &cli.DurationFlag{
		Name:     "enclave.timeout",
		Usage:    "Timeout of a single enclave request",
		Value:    enclave.DefaultConfig.RequestTimeout,
		Category: flags.EnclaveCategory,
	}

	// RPC settings
	rpcAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "HTTP-RPC server listening interface",
		Value:    defaultRPCConfig.Host,
		Category: flags.APICategory,
	}
	rpcPortFlag = &cli.IntFlag{
		Name:     "http.port",
		Usage:    "HTTP-RPC server listening port",
		Value:    defaultRPCConfig.Port,
		Category: flags.APICategory,
	}
	rpcCorsFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
		Category: flags.APICategory,
	}
	wsOriginsFlag = &cli.StringFlag{
		Name:     "ws.origins",
		Usage:    "Origins from which to accept websockets requests",
		Category: flags.APICategory,
	}
	stateRPCFlag = &cli.StringFlag{
		Name:     "state.rpc",
		Usage:    "Execution node endpoint serving eth_getStorageAt (disabled if empty)",
		Category: flags.APICategory,
	}

	// Metrics settings
	metricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and reporting",
		Category: flags.MetricsCategory,
	}
	metricsHTTPFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Enable stand-alone metrics HTTP server listening interface",
		Category: flags.MetricsCategory,
	}
	metricsPortFlag = &cli.IntFlag{
		Name:     "metrics.port",
		Usage:    "Metrics HTTP server listening port",
		Value:    metrics.DefaultConfig.Port,
		Category: flags.MetricsCategory,
	}
	metricsInfluxDBFlag = &cli.BoolFlag{
		Name:     "metrics.influxdb",
		Usage:    "Enable metrics export/push to an external InfluxDB database",
		Category: flags.MetricsCategory,
	}
	metricsInfluxDBEndpointFlag = &cli.StringFlag{
		Name:     "metrics.influxdb.endpoint",
		Usage:    "InfluxDB API endpoint to report metrics to",
		Value:    metrics.DefaultConfig.InfluxDBEndpoint,
		Category: flags.MetricsCategory,
	}
	metricsInfluxDBTagsFlag = &cli.StringFlag{
		Name:     "metrics.influxdb.tags",
		Usage:    "Comma-separated InfluxDB tags (key/values) attached to all measurements",
		Value:    metrics.DefaultConfig.InfluxDBTags,
		Category: flags.MetricsCategory,
	}
)

var serveFlags = []cli.Flag{
	configFileFlag,
	userIDFlag,
	dataDirFlag,
	cacheFlag,
	enclaveURLFlag,
	enclaveJWTFlag,
	enclaveTimeoutFlag,
	rpcAddrFlag,
	rpcPortFlag,
	rpcCorsFlag,
	wsOriginsFlag,
	stateRPCFlag,
	metricsEnabledFlag,
	metricsHTTPFlag,
	metricsPortFlag,
	metricsInfluxDBFlag,
	metricsInfluxDBEndpointFlag,
	metricsInfluxDBTagsFlag,
}

// splitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func splitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

func applyPrivacyFlags(ctx *cli.Context, cfg *privacy.Config) {
	if ctx.IsSet(userIDFlag.Name) {
		cfg.UserID = ctx.String(userIDFlag.Name)
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.ExtendedStoreDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(cacheFlag.Name) {
		cfg.DatabaseCache = ctx.Int(cacheFlag.Name)
	}
}

func applyEnclaveFlags(ctx *cli.Context, cfg *enclave.Config) {
	if ctx.IsSet(enclaveURLFlag.Name) {
		cfg.URL = ctx.String(enclaveURLFlag.Name)
	}
	if ctx.IsSet(enclaveJWTFlag.Name) {
		cfg.JWTSecretFile = ctx.String(enclaveJWTFlag.Name)
	}
	if ctx.IsSet(enclaveTimeoutFlag.Name) {
		cfg.RequestTimeout = ctx.Duration(enclaveTimeoutFlag.Name)
	}
}

func applyRPCFlags(ctx *cli.Context, cfg *RPCConfig) {
	if ctx.IsSet(rpcAddrFlag.Name) {
		cfg.Host = ctx.String(rpcAddrFlag.Name)
	}
	if ctx.IsSet(rpcPortFlag.Name) {
		cfg.Port = ctx.Int(rpcPortFlag.Name)
	}
	if ctx.IsSet(rpcCorsFlag.Name) {
		cfg.CorsDomains = splitAndTrim(ctx.String(rpcCorsFlag.Name))
	}
	if ctx.IsSet(wsOriginsFlag.Name) {
		cfg.WSOrigins = splitAndTrim(ctx.String(wsOriginsFlag.Name))
	}
	if ctx.IsSet(stateRPCFlag.Name) {
		cfg.StateRPC = ctx.String(stateRPCFlag.Name)
	}
}

func applyMetricsFlags(ctx *cli.Context, cfg *metrics.Config) {
	if ctx.IsSet(metricsEnabledFlag.Name) {
		cfg.Enabled = ctx.Bool(metricsEnabledFlag.Name)
	}
	if ctx.IsSet(metricsHTTPFlag.Name) {
		cfg.HTTP = ctx.String(metricsHTTPFlag.Name)
	}
	if ctx.IsSet(metricsPortFlag.Name) {
		cfg.Port = ctx.Int(metricsPortFlag.Name)
	}
	if ctx.IsSet(metricsInfluxDBFlag.Name) {
		cfg.EnableInfluxDB = ctx.Bool(metricsInfluxDBFlag.Name)
	}
	if ctx.IsSet(metricsInfluxDBEndpointFlag.Name) {
		cfg.InfluxDBEndpoint = ctx.String(metricsInfluxDBEndpointFlag.Name)
	}
	if ctx.IsSet(metricsInfluxDBTagsFlag.Name) {
		cfg.InfluxDBTags = ctx.String(metricsInfluxDBTagsFlag.Name)
	}
}
