// identity/mapper.go

package identity

import (
	"fmt"

	"github.com/hashicorp/go-memdb"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

const uriTable = "uri"

// ErrURIConflict is returned when a hierarchical URI is already bound
var ErrURIConflict = fmt.Errorf("%w: name already present in the parent collection", echo_errors.ErrConflict)

// URIEntry binds a hierarchical URI to a resource ID
type URIEntry struct {
	URI          string
	ResourceID   string
	ResourceType model.ResourceType
}

// URIMapper is the node-wide hierarchical URI index. Every registration
// runs in its own memdb write transaction; memdb admits one writer at a
// time, which makes Register the serialisation point for sibling names.
type URIMapper struct {
	db *memdb.MemDB
}

func uriSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			uriTable: {
				Name: uriTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "URI"},
					},
					"resource": {
						Name:    "resource",
						Indexer: &memdb.StringFieldIndex{Field: "ResourceID"},
					},
				},
			},
		},
	}
}

func NewURIMapper() (*URIMapper, error) {
	db, err := memdb.NewMemDB(uriSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create URI index: %w", err)
	}
	return &URIMapper{db: db}, nil
}

// Register binds uri to id, failing with ErrURIConflict if uri is taken
func (m *URIMapper) Register(uri, id string, resourceType model.ResourceType) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(uriTable, "id", uri)
	if err != nil {
		return fmt.Errorf("failed to look up URI: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrURIConflict, uri)
	}
	if err := txn.Insert(uriTable, &URIEntry{URI: uri, ResourceID: id, ResourceType: resourceType}); err != nil {
		return fmt.Errorf("failed to register URI: %w", err)
	}
	txn.Commit()
	return nil
}

// Resolve returns the entry bound to uri
func (m *URIMapper) Resolve(uri string) (URIEntry, bool) {
	txn := m.db.Txn(false)
	raw, err := txn.First(uriTable, "id", uri)
	if err != nil || raw == nil {
		return URIEntry{}, false
	}
	return *raw.(*URIEntry), true
}

// Unregister removes a single binding. Removing an unknown URI is a no-op.
func (m *URIMapper) Unregister(uri string) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(uriTable, "id", uri)
	if err != nil {
		return fmt.Errorf("failed to look up URI: %w", err)
	}
	if raw == nil {
		return nil
	}
	if err := txn.Delete(uriTable, raw); err != nil {
		return fmt.Errorf("failed to unregister URI: %w", err)
	}
	txn.Commit()
	return nil
}

// UnregisterTree removes uri and every URI below it, returning the removed
// entries so a failed transaction can put them back.
func (m *URIMapper) UnregisterTree(uri string) ([]URIEntry, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	var doomed []*URIEntry
	raw, err := txn.First(uriTable, "id", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to look up URI: %w", err)
	}
	if raw != nil {
		doomed = append(doomed, raw.(*URIEntry))
	}
	it, err := txn.Get(uriTable, "id_prefix", uri+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to scan URI subtree: %w", err)
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		doomed = append(doomed, obj.(*URIEntry))
	}

	removed := make([]URIEntry, 0, len(doomed))
	for _, entry := range doomed {
		if err := txn.Delete(uriTable, entry); err != nil {
			return nil, fmt.Errorf("failed to unregister URI: %w", err)
		}
		removed = append(removed, *entry)
	}
	txn.Commit()
	return removed, nil
}

// Restore re-registers entries that are not bound to anything else
func (m *URIMapper) Restore(entries []URIEntry) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	for i := range entries {
		existing, err := txn.First(uriTable, "id", entries[i].URI)
		if err != nil || existing != nil {
			continue
		}
		entry := entries[i]
		if err := txn.Insert(uriTable, &entry); err != nil {
			continue
		}
	}
	txn.Commit()
}

// Release removes the binding of uri only while it still points at id
func (m *URIMapper) Release(uri, id string) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(uriTable, "id", uri)
	if err != nil {
		return fmt.Errorf("failed to look up URI: %w", err)
	}
	if raw == nil || raw.(*URIEntry).ResourceID != id {
		return nil
	}
	if err := txn.Delete(uriTable, raw); err != nil {
		return fmt.Errorf("failed to unregister URI: %w", err)
	}
	txn.Commit()
	return nil
}

// Entries lists the bindings of uri and every URI below it
func (m *URIMapper) Entries(uri string) []URIEntry {
	txn := m.db.Txn(false)
	var entries []URIEntry
	if raw, err := txn.First(uriTable, "id", uri); err == nil && raw != nil {
		entries = append(entries, *raw.(*URIEntry))
	}
	it, err := txn.Get(uriTable, "id_prefix", uri+"/")
	if err != nil {
		return entries
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		entries = append(entries, *obj.(*URIEntry))
	}
	return entries
}
