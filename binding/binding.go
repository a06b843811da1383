// Package binding holds the database adapters the benchmark can drive.
package binding

import (
	"github.com/hhkbp2/kvbench"
)

type MakeDBFunc func() kvbench.DB

var Databases = map[string]MakeDBFunc{
	"basic": func() kvbench.DB {
		return kvbench.NewBasicDB()
	},
	"mysql": func() kvbench.DB {
		return NewMysqlDB()
	},
	"redis": func() kvbench.DB {
		return NewRedisDB()
	},
	"badger": func() kvbench.DB {
		return NewBadgerDB()
	},
}

// NewDB builds the adapter registered under name and hands it the run
// properties.
func NewDB(name string, props kvbench.Properties) (kvbench.DB, error) {
	f, ok := Databases[name]
	if !ok {
		return nil, kvbench.NewConfigError(
			kvbench.PropertyDB, "unsupported database %q", name)
	}
	db := f()
	db.SetProperties(props)
	return db, nil
}
