package state

import (
	"sort"

	"github.com/pkg/errors"

	"farmchain/storage"
)

// overlay buffers writes on top of a database until they are flushed as a
// single batch.
type overlay struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

func newOverlay(db storage.Database) *overlay {
	return &overlay{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// get returns nil when the key is absent.
func (o *overlay) get(key []byte) ([]byte, error) {
	k := string(key)
	if _, ok := o.deletes[k]; ok {
		return nil, nil
	}
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	value, err := o.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "overlay read")
	}
	return value, nil
}

func (o *overlay) put(key, value []byte) {
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
}

func (o *overlay) remove(key []byte) {
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
}

func (o *overlay) dirty() bool {
	return len(o.writes) > 0 || len(o.deletes) > 0
}

// batch renders the pending changes in key order.
func (o *overlay) batch() *storage.Batch {
	keys := make([]string, 0, len(o.writes)+len(o.deletes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	for k := range o.deletes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := new(storage.Batch)
	for _, k := range keys {
		if value, ok := o.writes[k]; ok {
			batch.Put([]byte(k), value)
			continue
		}
		batch.Delete([]byte(k))
	}
	return batch
}

func (o *overlay) reset() {
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
}
