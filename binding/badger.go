package binding

import (
	"bytes"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/hhkbp2/kvbench"
)

const (
	PropertyBadgerDir             = "badger.dir"
	PropertyBadgerDirDefault      = "/tmp/kvbench-badger"
	PropertyBadgerInMemory        = "badger.inmemory"
	PropertyBadgerSyncWrites      = "badger.syncwrites"
	badgerKeySeparator       byte = 0
)

// BadgerDB runs the workload against an embedded Badger store. Records
// are stored under "<table>\x00<key>" with all fields packed into a
// single length-prefixed value, so scans are a prefix iteration.
type BadgerDB struct {
	*kvbench.DBBase
	db *badger.DB
}

func NewBadgerDB() *BadgerDB {
	return &BadgerDB{
		DBBase: kvbench.NewDBBase(),
	}
}

func (self *BadgerDB) Init() error {
	props := self.GetProperties()
	inMemory, err := props.GetBool(PropertyBadgerInMemory, false)
	if err != nil {
		return err
	}
	syncWrites, err := props.GetBool(PropertyBadgerSyncWrites, false)
	if err != nil {
		return err
	}
	dir := props.GetDefault(PropertyBadgerDir, PropertyBadgerDirDefault)
	options := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithSyncWrites(syncWrites)
	if inMemory {
		options = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	self.db, err = badger.Open(options)
	return err
}

func (self *BadgerDB) Cleanup() error {
	if self.db != nil {
		return self.db.Close()
	}
	return nil
}

func badgerKey(table, key string) []byte {
	ret := make([]byte, 0, len(table)+1+len(key))
	ret = append(ret, table...)
	ret = append(ret, badgerKeySeparator)
	ret = append(ret, key...)
	return ret
}

// encodeValues packs a KVMap as a sequence of uvarint-length-prefixed
// name/value pairs.
func encodeValues(values kvbench.KVMap) []byte {
	var buf bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte
	writeChunk := func(chunk []byte) {
		n := binary.PutUvarint(scratch[:], uint64(len(chunk)))
		buf.Write(scratch[:n])
		buf.Write(chunk)
	}
	for name, value := range values {
		writeChunk([]byte(name))
		writeChunk(value)
	}
	return buf.Bytes()
}

func decodeValues(data []byte, fields []string) (kvbench.KVMap, error) {
	var wanted map[string]bool
	if len(fields) > 0 {
		wanted = make(map[string]bool, len(fields))
		for _, f := range fields {
			wanted[f] = true
		}
	}
	ret := make(kvbench.KVMap)
	readChunk := func() ([]byte, error) {
		length, n := binary.Uvarint(data)
		if n <= 0 || uint64(len(data)-n) < length {
			return nil, fmt.Errorf("truncated record value")
		}
		chunk := data[n : n+int(length)]
		data = data[n+int(length):]
		return chunk, nil
	}
	for len(data) > 0 {
		name, err := readChunk()
		if err != nil {
			return nil, err
		}
		value, err := readChunk()
		if err != nil {
			return nil, err
		}
		if wanted != nil && !wanted[string(name)] {
			continue
		}
		ret[string(name)] = append(kvbench.Binary(nil), value...)
	}
	return ret, nil
}

func badgerStatusOf(err error) kvbench.StatusType {
	if err == badger.ErrKeyNotFound {
		return kvbench.StatusNotFound
	}
	return kvbench.StatusError
}

func (self *BadgerDB) Read(table string, key string, fields []string) (kvbench.KVMap, kvbench.StatusType) {
	var ret kvbench.KVMap
	err := self.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(table, key))
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			ret, err = decodeValues(data, fields)
			return err
		})
	})
	if err != nil {
		return nil, badgerStatusOf(err)
	}
	return ret, kvbench.StatusOK
}

func (self *BadgerDB) Scan(table string, startKey string, recordCount int64, fields []string) ([]kvbench.KVMap, kvbench.StatusType) {
	ret := make([]kvbench.KVMap, 0, recordCount)
	prefix := badgerKey(table, "")
	err := self.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = true
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(badgerKey(table, startKey)); it.ValidForPrefix(prefix); it.Next() {
			if int64(len(ret)) >= recordCount {
				break
			}
			err := it.Item().Value(func(data []byte) error {
				m, err := decodeValues(data, fields)
				if err != nil {
					return err
				}
				ret = append(ret, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, badgerStatusOf(err)
	}
	return ret, kvbench.StatusOK
}

func (self *BadgerDB) Update(table string, key string, values kvbench.KVMap) kvbench.StatusType {
	err := self.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(table, key))
		if err != nil {
			return err
		}
		var existing kvbench.KVMap
		err = item.Value(func(data []byte) error {
			existing, err = decodeValues(data, nil)
			return err
		})
		if err != nil {
			return err
		}
		for name, value := range values {
			existing[name] = value
		}
		return txn.Set(badgerKey(table, key), encodeValues(existing))
	})
	if err != nil {
		return badgerStatusOf(err)
	}
	return kvbench.StatusOK
}

func (self *BadgerDB) Insert(table string, key string, values kvbench.KVMap) kvbench.StatusType {
	err := self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(table, key), encodeValues(values))
	})
	if err != nil {
		return badgerStatusOf(err)
	}
	return kvbench.StatusOK
}

func (self *BadgerDB) Delete(table string, key string) kvbench.StatusType {
	err := self.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(table, key)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(table, key))
	})
	if err != nil {
		return badgerStatusOf(err)
	}
	return kvbench.StatusOK
}
