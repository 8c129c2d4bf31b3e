// Package metrics configures metric collection and reporting of the privacy
// node. Collectors are registered in the go-ethereum metrics registry.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	"github.com/ethereum/go-ethereum/metrics/influxdb"
)

// Config contains the configuration for the metric collection.
type Config struct {
	Enabled          bool   `toml:",omitempty"`
	HTTP             string `toml:",omitempty"` // stand-alone endpoint interface, disabled if empty
	Port             int    `toml:",omitempty"`
	EnableInfluxDB   bool   `toml:",omitempty"`
	InfluxDBEndpoint string `toml:",omitempty"`
	InfluxDBDatabase string `toml:",omitempty"`
	InfluxDBUsername string `toml:",omitempty"`
	InfluxDBPassword string `toml:",omitempty"`
	InfluxDBTags     string `toml:",omitempty"`

	EnableInfluxDBV2     bool   `toml:",omitempty"`
	InfluxDBToken        string `toml:",omitempty"`
	InfluxDBBucket       string `toml:",omitempty"`
	InfluxDBOrganization string `toml:",omitempty"`
}

// DefaultConfig is the default config for metrics used in gpriv.
var DefaultConfig = Config{
	Enabled:          false,
	Port:             6061,
	InfluxDBEndpoint: "http://localhost:8086",
	InfluxDBDatabase: "gpriv",
	InfluxDBUsername: "test",
	InfluxDBPassword: "test",
	InfluxDBTags:     "host=localhost",

	// influxdbv2-specific settings
	InfluxDBToken:        "test",
	InfluxDBBucket:       "gpriv",
	InfluxDBOrganization: "gpriv",
}

const reportInterval = 10 * time.Second

// Validate reports conflicting reporting settings.
func (c *Config) Validate() error {
	if c.EnableInfluxDB && c.EnableInfluxDBV2 {
		return fmt.Errorf("influxdb v1 and v2 reporting are mutually exclusive")
	}
	return nil
}

// Setup starts the configured metric reporters. It does nothing unless
// collection was enabled at startup.
func Setup(c *Config) error {
	if !gethmetrics.Enabled {
		return nil
	}
	if err := c.Validate(); err != nil {
		return err
	}
	log.Info("Enabling metrics collection")
	go gethmetrics.CollectProcessMetrics(3 * time.Second)

	tags := SplitTags(c.InfluxDBTags)
	switch {
	case c.EnableInfluxDB:
		log.Info("Enabling metrics export to InfluxDB", "endpoint", c.InfluxDBEndpoint)
		go influxdb.InfluxDBWithTags(gethmetrics.DefaultRegistry, reportInterval, c.InfluxDBEndpoint, c.InfluxDBDatabase, c.InfluxDBUsername, c.InfluxDBPassword, "gpriv.", tags)
	case c.EnableInfluxDBV2:
		log.Info("Enabling metrics export to InfluxDB (v2)", "endpoint", c.InfluxDBEndpoint)
		go influxdb.InfluxDBV2WithTags(gethmetrics.DefaultRegistry, reportInterval, c.InfluxDBEndpoint, c.InfluxDBToken, c.InfluxDBBucket, c.InfluxDBOrganization, "gpriv.", tags)
	}
	if c.HTTP != "" {
		address := fmt.Sprintf("%s:%d", c.HTTP, c.Port)
		log.Info("Enabling stand-alone metrics HTTP endpoint", "address", address)
		exp.Setup(address)
	}
	return nil
}

// SplitTags parses a comma separated list of key=value influxdb tags.
// Malformed entries are skipped.
func SplitTags(tagsFlag string) map[string]string {
	tags := strings.Split(tagsFlag, ",")
	tagsMap := map[string]string{}

	for _, t := range tags {
		if t != "" {
			kv := strings.Split(t, "=")

			if len(kv) == 2 {
				tagsMap[kv[0]] = kv[1]
			}
		}
	}

	return tagsMap
}
