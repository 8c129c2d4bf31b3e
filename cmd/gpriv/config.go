package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/naoina/toml"
	"github.com/tos-network/gpriv/enclave"
	"github.com/tos-network/gpriv/internal/flags"
	"github.com/tos-network/gpriv/metrics"
	"github.com/tos-network/gpriv/privacy"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "",
		Flags:       serveFlags,
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// RPCConfig is the JSON-RPC endpoint configuration.
type RPCConfig struct {
	Host         string
	Port         int
	CorsDomains  []string `toml:",omitempty"`
	WSOrigins    []string `toml:",omitempty"`
	StateRPC     string   `toml:",omitempty"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Endpoint returns the listen address.
func (c *RPCConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var defaultRPCConfig = RPCConfig{
	Host:         "127.0.0.1",
	Port:         8645,
	ReadTimeout:  30 * time.Second,
	WriteTimeout: 30 * time.Second,
}

type gprivConfig struct {
	Privacy privacy.Config
	Enclave enclave.Config
	RPC     RPCConfig
	Metrics metrics.Config
}

func defaultConfig() gprivConfig {
	return gprivConfig{
		Privacy: privacy.DefaultConfig,
		Enclave: enclave.DefaultConfig,
		RPC:     defaultRPCConfig,
		Metrics: metrics.DefaultConfig,
	}
}

func loadConfig(file string, cfg *gprivConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top of it.
func makeConfig(ctx *cli.Context) (gprivConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	applyPrivacyFlags(ctx, &cfg.Privacy)
	applyEnclaveFlags(ctx, &cfg.Enclave)
	applyRPCFlags(ctx, &cfg.RPC)
	applyMetricsFlags(ctx, &cfg.Metrics)
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	return nil
}
