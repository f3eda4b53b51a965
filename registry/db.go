package registry

import (
	"encoding/binary"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tcrlabs/curate/ledger"
)

var ErrNotFound = leveldb.ErrNotFound

var (
	itemPrefix    = []byte("item/")
	disputePrefix = []byte("dispute/")
	listPrefix    = []byte("list/")
	paramsKey     = []byte("params")
	countKey      = []byte("count")
)

func itemKey(id ItemID) []byte {
	return append(append([]byte(nil), itemPrefix...), id[:]...)
}

func disputeKey(arb ledger.Account, disputeID uint64) []byte {
	key := append(append([]byte(nil), disputePrefix...), string(arb)...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, disputeID)
}

func listKey(index uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), listPrefix...), index)
}

// database persists items, the dispute index, the item list and the
// parameters of a registry. Decoded items are cached.
type database struct {
	db    *leveldb.DB
	cache *lru.Cache
}

func openDatabase(dbPath string, cacheSize int) (*database, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultConfig().ItemCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating item cache: %w", err)
	}
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database @ %s: %w", dbPath, err)
	}
	return &database{db: db, cache: cache}, nil
}

func (d *database) Close() error {
	return d.db.Close()
}

// Item returns a private copy of a stored item.
func (d *database) Item(id ItemID) (*Item, error) {
	if cached, ok := d.cache.Get(id); ok {
		return cached.(*Item).clone(), nil
	}
	data, err := d.db.Get(itemKey(id), nil)
	if err != nil {
		return nil, err
	}
	item, err := decodeItem(id, data)
	if err != nil {
		return nil, err
	}
	d.cache.Add(id, item.clone())
	return item, nil
}

func (d *database) Params() (Params, error) {
	data, err := d.db.Get(paramsKey, nil)
	if err != nil {
		return Params{}, err
	}
	return decodeParams(data)
}

func (d *database) DisputeRef(arb ledger.Account, disputeID uint64) (disputeRef, error) {
	var ref disputeRef
	data, err := d.db.Get(disputeKey(arb, disputeID), nil)
	if err != nil {
		return ref, err
	}
	return ref, ref.unmarshal(data)
}

func (d *database) ItemCount() (uint64, error) {
	data, err := d.db.Get(countKey, nil)
	switch {
	case errors.Is(err, ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted item count (%d bytes)", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (d *database) ItemAt(index uint64) (ItemID, error) {
	var id ItemID
	data, err := d.db.Get(listKey(index), nil)
	if err != nil {
		return id, err
	}
	if len(data) != len(id) {
		return id, fmt.Errorf("corrupted item list entry %d", index)
	}
	copy(id[:], data)
	return id, nil
}

// Items calls fn for every stored item in ID order.
func (d *database) Items(fn func(*Item) error) error {
	iter := d.db.NewIterator(util.BytesPrefix(itemPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		var id ItemID
		copy(id[:], iter.Key()[len(itemPrefix):])
		item, err := decodeItem(id, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return iter.Error()
}

// changes is the set of writes produced by one operation.
type changes struct {
	items    map[ItemID]*Item
	order    []ItemID
	params   *Params
	disputes map[string][]byte
	listed   []ItemID
}

func (c *changes) empty() bool {
	return len(c.items) == 0 && c.params == nil && len(c.disputes) == 0 && len(c.listed) == 0
}

// Write commits all changes atomically. count is the item count before the
// write, new items are listed after it.
func (d *database) Write(c *changes, count uint64) error {
	batch := new(leveldb.Batch)
	for _, id := range c.order {
		data, err := encodeItem(c.items[id])
		if err != nil {
			return err
		}
		batch.Put(itemKey(id), data)
	}
	for key, ref := range c.disputes {
		batch.Put([]byte(key), ref)
	}
	for i, id := range c.listed {
		batch.Put(listKey(count+uint64(i)), append([]byte(nil), id[:]...))
	}
	if len(c.listed) > 0 {
		batch.Put(countKey, binary.BigEndian.AppendUint64(nil, count+uint64(len(c.listed))))
	}
	if c.params != nil {
		data, err := encodeParams(*c.params)
		if err != nil {
			return err
		}
		batch.Put(paramsKey, data)
	}
	if err := d.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		for _, id := range c.order {
			d.cache.Remove(id)
		}
		return err
	}
	for _, id := range c.order {
		d.cache.Add(id, c.items[id].clone())
	}
	return nil
}
