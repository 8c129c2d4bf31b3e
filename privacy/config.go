package privacy

import (
	"github.com/tos-network/gpriv/privacy/extstore"
)

// Config holds the privacy settings of a node.
type Config struct {
	// UserID is the base64 enclave public key the node acts for.
	UserID string

	// ExtendedStoreDir is the LevelDB directory of the extended privacy
	// store. An empty value keeps the records in memory.
	ExtendedStoreDir string `toml:",omitempty"`
	DatabaseCache    int
	DatabaseHandles  int `toml:"-"`
}

// DefaultConfig contains the default privacy settings.
var DefaultConfig = Config{
	DatabaseCache:   16,
	DatabaseHandles: 64,
}

// OpenStore opens the extended privacy store described by the config.
func (c *Config) OpenStore() (*extstore.Store, error) {
	if c.ExtendedStoreDir == "" {
		return extstore.New(extstore.NewMemoryDatabase()), nil
	}
	db, err := extstore.OpenLevelDB(c.ExtendedStoreDir, c.DatabaseCache, c.DatabaseHandles, false)
	if err != nil {
		return nil, err
	}
	return extstore.New(db), nil
}
