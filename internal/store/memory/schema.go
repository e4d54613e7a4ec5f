package memory

import (
	"printops-snapshot/internal/store"

	"github.com/hashicorp/go-memdb"
)

const tblSettings = "settings"

// record is the row stored for every collection table. Seq records
// insertion order so GetAll returns records the way they were written.
type record struct {
	ID   string
	Seq  uint64
	Data store.Record
}

type setting struct {
	Key   string
	Value any
}

func newSchema() *memdb.DBSchema {
	tables := map[string]*memdb.TableSchema{
		tblSettings: {
			Name: tblSettings,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Key"},
				},
			},
		},
	}

	for _, name := range store.Collections() {
		tables[name] = &memdb.TableSchema{
			Name: name,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
			},
		}
	}

	return &memdb.DBSchema{Tables: tables}
}
