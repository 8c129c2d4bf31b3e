// Package extstore implements the extended privacy store: the auxiliary
// key-value records kept for private contracts that use extended privacy.
package extstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
)

const creatorCacheSize = 1024

var ErrCorruptRecord = errors.New("extstore: corrupt record")

// Database is the backend of the store. Batches must be written atomically.
type Database interface {
	ethdb.KeyValueReader
	ethdb.Batcher
	io.Closer
}

// NewMemoryDatabase returns an in-memory backend.
func NewMemoryDatabase() Database {
	return memorydb.New()
}

// OpenLevelDB opens (or creates) a LevelDB backend at path.
func OpenLevelDB(path string, cache int, handles int, readonly bool) (Database, error) {
	db, err := leveldb.New(path, cache, handles, "privacy/extstore/", readonly)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Store holds, per private contract, the address that created it and its
// accumulated private set.
type Store struct {
	db       Database
	creators *lru.ARCCache // contract address -> creator address
	log      log.Logger
}

// New wraps db into an extended privacy store.
func New(db Database) *Store {
	creators, _ := lru.NewARC(creatorCacheSize)
	return &Store{
		db:       db,
		creators: creators,
		log:      log.New("store", "extprivacy"),
	}
}

// Creator returns the address that created the given private contract.
func (s *Store) Creator(contract common.Address) (common.Address, bool, error) {
	if cached, ok := s.creators.Get(contract); ok {
		return cached.(common.Address), true, nil
	}
	data, ok, err := s.read(creatorKey(contract))
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	if len(data) != common.AddressLength {
		return common.Address{}, false, fmt.Errorf("%w: creator of %x has %d bytes", ErrCorruptRecord, contract, len(data))
	}
	creator := common.BytesToAddress(data)
	s.creators.Add(contract, creator)
	return creator, true, nil
}

// PrivateSet returns the accumulated private set of the given contract.
func (s *Store) PrivateSet(contract common.Address) ([]byte, bool, error) {
	return s.read(privateSetKey(contract))
}

func (s *Store) read(key []byte) ([]byte, bool, error) {
	has, err := s.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Updater starts a new atomic unit of writes.
func (s *Store) Updater() *Updater {
	return &Updater{
		store:    s,
		batch:    s.db.NewBatch(),
		creators: make(map[common.Address]common.Address),
	}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.db.Close()
}

// Updater collects writes and applies them in a single batch on Commit.
// Nothing is visible to readers before Commit returns successfully.
type Updater struct {
	store    *Store
	batch    ethdb.Batch
	creators map[common.Address]common.Address
	sets     int
}

// PutCreator records the creator of a private contract. An existing record
// for the same contract is overwritten.
func (u *Updater) PutCreator(contract, creator common.Address) error {
	if err := u.batch.Put(creatorKey(contract), creator.Bytes()); err != nil {
		return err
	}
	u.creators[contract] = creator
	return nil
}

// PutPrivateSet replaces the private set of a contract. Callers merge with
// the existing value beforehand.
func (u *Updater) PutPrivateSet(contract common.Address, set []byte) error {
	if err := u.batch.Put(privateSetKey(contract), set); err != nil {
		return err
	}
	u.sets++
	return nil
}

// Commit atomically writes all collected records.
func (u *Updater) Commit() error {
	size := u.batch.ValueSize()
	if err := u.batch.Write(); err != nil {
		commitFailureCounter.Inc(1)
		u.store.log.Warn("Failed to commit extended privacy records", "err", err)
		return fmt.Errorf("extstore: commit failed: %w", err)
	}
	for contract, creator := range u.creators {
		u.store.creators.Add(contract, creator)
	}
	creatorWriteCounter.Inc(int64(len(u.creators)))
	privateSetWriteCounter.Inc(int64(u.sets))
	commitSizeMeter.Mark(int64(size))
	u.store.log.Trace("Committed extended privacy records", "creators", len(u.creators), "sets", u.sets, "size", size)
	u.Reset()
	return nil
}

// Reset drops all uncommitted writes.
func (u *Updater) Reset() {
	u.batch.Reset()
	u.creators = make(map[common.Address]common.Address)
	u.sets = 0
}
