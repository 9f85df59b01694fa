// persistence/memory/store.go

// Package memory is the reference implementation of the persistence port.
// Committed state lives in go-memdb, whose immutable radix trees give every
// transaction a consistent snapshot without read locks. Writes are buffered
// per transaction and applied inside a single memdb write transaction at
// commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

const (
	resourceTable = "resource"
	dacLinkTable  = "daclink"
)

// dacLink is one row of the DAC back-link index
type dacLink struct {
	Key        string
	DACID      string
	ResourceID string
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			resourceTable: {
				Name: resourceTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ResourceID"},
					},
					"parent": {
						Name:         "parent",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "ParentID"},
					},
				},
			},
			dacLinkTable: {
				Name: dacLinkTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
					"dac": {
						Name:    "dac",
						Indexer: &memdb.StringFieldIndex{Field: "DACID"},
					},
					"referrer": {
						Name:    "referrer",
						Indexer: &memdb.StringFieldIndex{Field: "ResourceID"},
					},
				},
			},
		},
	}
}

// Store is the in-memory persistence port
type Store struct {
	db          *memdb.MemDB
	locks       *lockTable
	lockTimeout time.Duration
}

var _ persistence.Store = &Store{}

// NewStore creates an empty store. A positive lockTimeout bounds how long
// Lock waits for a competing holder.
func NewStore(lockTimeout time.Duration) (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	return &Store{db: db, locks: newLockTable(), lockTimeout: lockTimeout}, nil
}

func (s *Store) Begin(ctx context.Context) (persistence.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transaction{
		store:      s,
		snap:       s.db.Txn(false),
		writes:     make(map[string]*model.Resource),
		created:    make(map[string]bool),
		deletedSet: make(map[string]bool),
		held:       make(map[string]bool),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

type transaction struct {
	store      *Store
	snap       *memdb.Txn
	writes     map[string]*model.Resource
	order      []string
	created    map[string]bool
	deleted    []string
	deletedSet map[string]bool
	held       map[string]bool
	done       bool
	hooks      persistence.RollbackHooks
}

func (t *transaction) active(ctx context.Context) error {
	if t.done {
		return persistence.ErrTxDone
	}
	return ctx.Err()
}

// lookup reads through the transaction's own writes, ignoring deletions
func (t *transaction) lookup(id string) *model.Resource {
	if w, ok := t.writes[id]; ok {
		return w
	}
	raw, err := t.snap.First(resourceTable, "id", id)
	if err != nil || raw == nil {
		return nil
	}
	return raw.(*model.Resource)
}

// removed reports whether r or one of its ancestors was deleted in this
// transaction
func (t *transaction) removed(r *model.Resource) bool {
	if len(t.deletedSet) == 0 {
		return false
	}
	if t.deletedSet[r.ResourceID] {
		return true
	}
	for parentID, hops := r.ParentID, 0; parentID != "" && hops < 4096; hops++ {
		if t.deletedSet[parentID] {
			return true
		}
		parent := t.lookup(parentID)
		if parent == nil {
			return false
		}
		parentID = parent.ParentID
	}
	return false
}

func (t *transaction) Find(ctx context.Context, id string) (*model.Resource, error) {
	if err := t.active(ctx); err != nil {
		return nil, err
	}
	r := t.lookup(id)
	if r == nil || t.removed(r) {
		return nil, nil
	}
	return r.Clone(), nil
}

func (t *transaction) Create(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if r.ResourceID == "" {
		return fmt.Errorf("cannot create a resource without an ID")
	}
	if t.lookup(r.ResourceID) != nil {
		return fmt.Errorf("%w: %s", persistence.ErrDuplicateID, r.ResourceID)
	}
	t.write(r)
	t.created[r.ResourceID] = true
	return nil
}

func (t *transaction) Update(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if !t.created[r.ResourceID] && !t.held[r.ResourceID] {
		return fmt.Errorf("%w: %s", persistence.ErrNotLocked, r.ResourceID)
	}
	current := t.lookup(r.ResourceID)
	if current == nil || t.removed(current) {
		return fmt.Errorf("%w: %s", persistence.ErrEntityGone, r.ResourceID)
	}
	t.write(r)
	return nil
}

func (t *transaction) write(r *model.Resource) {
	if _, ok := t.writes[r.ResourceID]; !ok {
		t.order = append(t.order, r.ResourceID)
	}
	t.writes[r.ResourceID] = r.Clone()
}

func (t *transaction) Delete(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if !t.created[r.ResourceID] && !t.held[r.ResourceID] {
		return fmt.Errorf("%w: %s", persistence.ErrNotLocked, r.ResourceID)
	}
	if t.deletedSet[r.ResourceID] {
		return nil
	}
	t.deleted = append(t.deleted, r.ResourceID)
	t.deletedSet[r.ResourceID] = true
	return nil
}

func (t *transaction) Lock(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if t.held[r.ResourceID] {
		return nil
	}

	lockCtx := ctx
	if t.store.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, t.store.lockTimeout)
		defer cancel()
	}
	if err := t.store.locks.acquire(lockCtx, r.ResourceID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", persistence.ErrLockTimeout, r.ResourceID)
		}
		return err
	}
	t.held[r.ResourceID] = true
	// Locked entities must be read at their latest committed state
	t.snap = t.store.db.Txn(false)
	return nil
}

func (t *transaction) BackLinks(ctx context.Context, dacID string) ([]string, error) {
	if err := t.active(ctx); err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	it, err := t.snap.Get(dacLinkTable, "dac", dacID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back-links: %w", err)
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		link := obj.(*dacLink)
		if _, rewritten := t.writes[link.ResourceID]; !rewritten {
			ids[link.ResourceID] = true
		}
	}
	for id, w := range t.writes {
		for _, ref := range w.DynamicAuthorizationConsultationIDs {
			if ref == dacID {
				ids[id] = true
			}
		}
	}

	links := make([]string, 0, len(ids))
	for id := range ids {
		if r := t.lookup(id); r != nil && !t.removed(r) {
			links = append(links, id)
		}
	}
	sort.Strings(links)
	return links, nil
}

func (t *transaction) OnRollback(fn func()) {
	t.hooks.Add(fn)
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return persistence.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		t.finish(false)
		return err
	}

	txn := t.store.db.Txn(true)
	defer txn.Abort()
	if err := t.apply(txn); err != nil {
		t.finish(false)
		return err
	}
	txn.Commit()
	t.finish(true)
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.finish(false)
	return nil
}

func (t *transaction) finish(committed bool) {
	t.done = true
	for id := range t.held {
		t.store.locks.release(id)
	}
	t.held = nil
	t.writes = nil
	t.snap = nil
	if committed {
		t.hooks.Discard()
		return
	}
	t.hooks.Run()
}

// apply replays the buffered work against the latest committed state. The
// memdb writer is exclusive, so the checks below cannot race another commit.
func (t *transaction) apply(txn *memdb.Txn) error {
	removed := make(map[string]bool)
	for _, id := range t.deleted {
		if err := cascade(txn, id, removed); err != nil {
			return err
		}
	}

	for _, id := range t.order {
		r := t.writes[id]
		if removed[id] || removed[r.ParentID] {
			continue
		}
		existing, err := txn.First(resourceTable, "id", id)
		if err != nil {
			return fmt.Errorf("failed to read resource: %w", err)
		}
		if t.created[id] {
			if existing != nil {
				return fmt.Errorf("%w: %s", persistence.ErrDuplicateID, id)
			}
			if r.ParentID != "" {
				parent, err := txn.First(resourceTable, "id", r.ParentID)
				if err != nil {
					return fmt.Errorf("failed to read parent: %w", err)
				}
				if parent == nil {
					return fmt.Errorf("%w: %s", persistence.ErrParentNotFound, r.ParentID)
				}
			}
		} else if existing == nil {
			return fmt.Errorf("%w: %s", persistence.ErrEntityGone, id)
		}

		if err := checkDACRefs(txn, r); err != nil {
			return err
		}
		if err := txn.Insert(resourceTable, r.Clone()); err != nil {
			return fmt.Errorf("failed to write resource: %w", err)
		}
		if err := relink(txn, r); err != nil {
			return err
		}
	}
	return nil
}

// cascade deletes rootID and its whole subtree, then severs back-links of
// any DAC inside it
func cascade(txn *memdb.Txn, rootID string, removed map[string]bool) error {
	raw, err := txn.First(resourceTable, "id", rootID)
	if err != nil {
		return fmt.Errorf("failed to read resource: %w", err)
	}
	if raw == nil {
		return nil
	}

	stack := []*model.Resource{raw.(*model.Resource)}
	var doomed []*model.Resource
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		doomed = append(doomed, current)

		it, err := txn.Get(resourceTable, "parent", current.ResourceID)
		if err != nil {
			return fmt.Errorf("failed to list children: %w", err)
		}
		for obj := it.Next(); obj != nil; obj = it.Next() {
			stack = append(stack, obj.(*model.Resource))
		}
	}

	for _, r := range doomed {
		if err := txn.Delete(resourceTable, r); err != nil {
			return fmt.Errorf("failed to delete resource: %w", err)
		}
		if _, err := txn.DeleteAll(dacLinkTable, "referrer", r.ResourceID); err != nil {
			return fmt.Errorf("failed to delete back-links: %w", err)
		}
		removed[r.ResourceID] = true
	}
	for _, r := range doomed {
		if r.ResourceType == model.TypeDAC {
			if err := sever(txn, r.ResourceID, removed); err != nil {
				return err
			}
		}
	}
	logger.Debug("Cascading delete applied", zap.String("rootID", rootID), zap.Int("count", len(doomed)))
	return nil
}

// sever strips a deleted DAC from every surviving resource that referenced it
func sever(txn *memdb.Txn, dacID string, removed map[string]bool) error {
	it, err := txn.Get(dacLinkTable, "dac", dacID)
	if err != nil {
		return fmt.Errorf("failed to read back-links: %w", err)
	}
	var links []*dacLink
	for obj := it.Next(); obj != nil; obj = it.Next() {
		links = append(links, obj.(*dacLink))
	}

	for _, link := range links {
		if !removed[link.ResourceID] {
			raw, err := txn.First(resourceTable, "id", link.ResourceID)
			if err != nil {
				return fmt.Errorf("failed to read resource: %w", err)
			}
			if raw != nil {
				r := raw.(*model.Resource).Clone()
				r.DynamicAuthorizationConsultationIDs = without(r.DynamicAuthorizationConsultationIDs, dacID)
				if err := txn.Insert(resourceTable, r); err != nil {
					return fmt.Errorf("failed to write resource: %w", err)
				}
			}
		}
		if err := txn.Delete(dacLinkTable, link); err != nil {
			return fmt.Errorf("failed to delete back-link: %w", err)
		}
	}
	return nil
}

func checkDACRefs(txn *memdb.Txn, r *model.Resource) error {
	for _, dacID := range r.DynamicAuthorizationConsultationIDs {
		raw, err := txn.First(resourceTable, "id", dacID)
		if err != nil {
			return fmt.Errorf("failed to read DAC: %w", err)
		}
		if raw == nil || raw.(*model.Resource).ResourceType != model.TypeDAC {
			return fmt.Errorf("%w: %s", persistence.ErrDanglingReference, dacID)
		}
	}
	return nil
}

func relink(txn *memdb.Txn, r *model.Resource) error {
	if _, err := txn.DeleteAll(dacLinkTable, "referrer", r.ResourceID); err != nil {
		return fmt.Errorf("failed to reset back-links: %w", err)
	}
	for _, dacID := range r.DynamicAuthorizationConsultationIDs {
		link := &dacLink{Key: dacID + "|" + r.ResourceID, DACID: dacID, ResourceID: r.ResourceID}
		if err := txn.Insert(dacLinkTable, link); err != nil {
			return fmt.Errorf("failed to write back-link: %w", err)
		}
	}
	return nil
}

func without(ids []string, id string) []string {
	var out []string
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
