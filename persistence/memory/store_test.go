// persistence/memory/store_test.go
package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
	"github.com/dev-mohitbeniwal/echo-cse/persistence/memory"
)

func newStore(t *testing.T, lockTimeout time.Duration) *memory.Store {
	t.Helper()
	store, err := memory.NewStore(lockTimeout)
	require.NoError(t, err)
	return store
}

func seed(t *testing.T, store *memory.Store, resources ...*model.Resource) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	for _, r := range resources {
		require.NoError(t, tx.Create(ctx, r))
	}
	require.NoError(t, tx.Commit(ctx))
}

func find(t *testing.T, store *memory.Store, id string) *model.Resource {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	r, err := tx.Find(ctx, id)
	require.NoError(t, err)
	return r
}

func base() *model.Resource {
	return &model.Resource{ResourceID: "/in-cse", Name: "in-name", ResourceType: model.TypeCSEBase}
}

func TestTransactionVisibility(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Second)
	seed(t, store, base())

	t.Run("UncommittedWritesAreInvisible", func(t *testing.T) {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Create(ctx, &model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE}))

		own, err := tx.Find(ctx, "/in-cse/CAE1")
		require.NoError(t, err)
		assert.NotNil(t, own)
		assert.Nil(t, find(t, store, "/in-cse/CAE1"))

		require.NoError(t, tx.Commit(ctx))
		assert.NotNil(t, find(t, store, "/in-cse/CAE1"))
	})

	t.Run("RollbackRunsHooksAndDiscardsWrites", func(t *testing.T) {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Create(ctx, &model.Resource{ResourceID: "/in-cse/CAE2", ParentID: "/in-cse", ResourceType: model.TypeAE}))
		var calls []int
		tx.OnRollback(func() { calls = append(calls, 1) })
		tx.OnRollback(func() { calls = append(calls, 2) })

		require.NoError(t, tx.Rollback(ctx))
		assert.Equal(t, []int{2, 1}, calls)
		assert.Nil(t, find(t, store, "/in-cse/CAE2"))
		assert.NoError(t, tx.Rollback(ctx))
		assert.ErrorIs(t, tx.Commit(ctx), persistence.ErrTxDone)
	})

	t.Run("FindReturnsClones", func(t *testing.T) {
		r := find(t, store, "/in-cse")
		r.Labels = append(r.Labels, "mutated")
		assert.Empty(t, find(t, store, "/in-cse").Labels)
	})

	t.Run("ReaderKeepsItsSnapshot", func(t *testing.T) {
		reader, err := store.Begin(ctx)
		require.NoError(t, err)
		defer reader.Rollback(ctx)

		seed(t, store, &model.Resource{ResourceID: "/in-cse/CAE3", ParentID: "/in-cse", ResourceType: model.TypeAE})

		r, err := reader.Find(ctx, "/in-cse/CAE3")
		require.NoError(t, err)
		assert.Nil(t, r)
	})
}

func TestMutationRules(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Second)
	ae := &model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE}
	seed(t, store, base(), ae)

	t.Run("UpdateWithoutLock", func(t *testing.T) {
		tx, _ := store.Begin(ctx)
		defer tx.Rollback(ctx)
		assert.ErrorIs(t, tx.Update(ctx, ae), persistence.ErrNotLocked)
		assert.ErrorIs(t, tx.Delete(ctx, ae), persistence.ErrNotLocked)
	})

	t.Run("DuplicateCreate", func(t *testing.T) {
		tx, _ := store.Begin(ctx)
		defer tx.Rollback(ctx)
		err := tx.Create(ctx, ae)
		assert.ErrorIs(t, err, persistence.ErrDuplicateID)
		assert.ErrorIs(t, err, echo_errors.ErrConflict)
	})

	t.Run("UpdateAfterLock", func(t *testing.T) {
		tx, _ := store.Begin(ctx)
		require.NoError(t, tx.Lock(ctx, ae))
		updated := ae.Clone()
		updated.Labels = []string{"x"}
		require.NoError(t, tx.Update(ctx, updated))
		require.NoError(t, tx.Commit(ctx))
		assert.Equal(t, []string{"x"}, find(t, store, ae.ResourceID).Labels)
	})
}

func TestCascadingDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Second)
	seed(t, store, base(),
		&model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE},
		&model.Resource{ResourceID: "/in-cse/cnt-1", ParentID: "/in-cse/CAE1", ResourceType: model.TypeContainer},
		&model.Resource{ResourceID: "/in-cse/cnt-2", ParentID: "/in-cse/cnt-1", ResourceType: model.TypeContainer},
		&model.Resource{ResourceID: "/in-cse/cnt-3", ParentID: "/in-cse/cnt-2", ResourceType: model.TypeContainer},
	)

	tx, _ := store.Begin(ctx)
	ae, err := tx.Find(ctx, "/in-cse/CAE1")
	require.NoError(t, err)
	require.NoError(t, tx.Lock(ctx, ae))
	require.NoError(t, tx.Delete(ctx, ae))

	gone, err := tx.Find(ctx, "/in-cse/cnt-3")
	require.NoError(t, err)
	assert.Nil(t, gone, "descendants disappear inside the deleting transaction")
	require.NoError(t, tx.Commit(ctx))

	for _, id := range []string{"/in-cse/CAE1", "/in-cse/cnt-1", "/in-cse/cnt-2", "/in-cse/cnt-3"} {
		assert.Nil(t, find(t, store, id), id)
	}
	assert.NotNil(t, find(t, store, "/in-cse"))
}

func TestLocking(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondLockWaitsForCommit", func(t *testing.T) {
		store := newStore(t, 5*time.Second)
		ae := &model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE}
		seed(t, store, base(), ae)

		first, _ := store.Begin(ctx)
		require.NoError(t, first.Lock(ctx, ae))

		acquired := make(chan *model.Resource)
		go func() {
			second, _ := store.Begin(ctx)
			defer second.Rollback(ctx)
			if err := second.Lock(ctx, ae); err != nil {
				acquired <- nil
				return
			}
			r, _ := second.Find(ctx, ae.ResourceID)
			acquired <- r
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while still held")
		case <-time.After(50 * time.Millisecond):
		}

		updated := ae.Clone()
		updated.Labels = []string{"first"}
		require.NoError(t, first.Update(ctx, updated))
		require.NoError(t, first.Commit(ctx))

		select {
		case r := <-acquired:
			require.NotNil(t, r)
			assert.Equal(t, []string{"first"}, r.Labels, "lock holder sees the committed state")
		case <-time.After(2 * time.Second):
			t.Fatal("lock was never handed over")
		}
	})

	t.Run("LockTimeout", func(t *testing.T) {
		store := newStore(t, 20*time.Millisecond)
		ae := &model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE}
		seed(t, store, base(), ae)

		first, _ := store.Begin(ctx)
		require.NoError(t, first.Lock(ctx, ae))
		defer first.Rollback(ctx)

		second, _ := store.Begin(ctx)
		defer second.Rollback(ctx)
		err := second.Lock(ctx, ae)
		assert.ErrorIs(t, err, persistence.ErrLockTimeout)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("Commit_CancelledWhileLocked", func(t *testing.T) {
		store := newStore(t, 5*time.Second)
		ae := &model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE, Labels: []string{"before"}}
		seed(t, store, base(), ae)
		uris, err := identity.NewURIMapper()
		require.NoError(t, err)

		reqCtx, cancel := context.WithCancel(ctx)
		first, err := store.Begin(reqCtx)
		require.NoError(t, err)
		require.NoError(t, first.Lock(reqCtx, ae))
		updated := ae.Clone()
		updated.Labels = []string{"after"}
		require.NoError(t, first.Update(reqCtx, updated))
		require.NoError(t, first.Create(reqCtx, &model.Resource{ResourceID: "/in-cse/CAE2", ParentID: "/in-cse", ResourceType: model.TypeAE}))
		require.NoError(t, uris.Register("/in-cse/in-name/second", "/in-cse/CAE2", model.TypeAE))
		first.OnRollback(func() { _ = uris.Release("/in-cse/in-name/second", "/in-cse/CAE2") })

		cancel()
		assert.ErrorIs(t, first.Commit(reqCtx), context.Canceled)
		assert.ErrorIs(t, first.Update(ctx, updated), persistence.ErrTxDone)

		lockCtx, lockCancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer lockCancel()
		second, err := store.Begin(lockCtx)
		require.NoError(t, err)
		defer second.Rollback(ctx)
		require.NoError(t, second.Lock(lockCtx, ae), "cancelled transaction released its lock")

		current, err := second.Find(lockCtx, ae.ResourceID)
		require.NoError(t, err)
		assert.Equal(t, []string{"before"}, current.Labels)
		assert.Nil(t, find(t, store, "/in-cse/CAE2"))
		_, ok := uris.Resolve("/in-cse/in-name/second")
		assert.False(t, ok)
	})
}

func TestCreateUnderConcurrentlyDeletedParent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Second)
	ae := &model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE}
	seed(t, store, base(), ae)

	creator, _ := store.Begin(ctx)
	parent, err := creator.Find(ctx, ae.ResourceID)
	require.NoError(t, err)
	require.NotNil(t, parent)
	require.NoError(t, creator.Create(ctx, &model.Resource{ResourceID: "/in-cse/cnt-1", ParentID: ae.ResourceID, ResourceType: model.TypeContainer}))

	deleter, _ := store.Begin(ctx)
	require.NoError(t, deleter.Lock(ctx, ae))
	require.NoError(t, deleter.Delete(ctx, ae))
	require.NoError(t, deleter.Commit(ctx))

	var hookRan bool
	creator.OnRollback(func() { hookRan = true })
	err = creator.Commit(ctx)
	assert.ErrorIs(t, err, persistence.ErrParentNotFound)
	assert.ErrorIs(t, err, echo_errors.ErrResourceNotFound)
	assert.True(t, hookRan)
	assert.Nil(t, find(t, store, "/in-cse/cnt-1"), "no orphan is left behind")
}

func TestDACBackLinks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Second)
	dac := &model.Resource{ResourceID: "/in-cse/dac-1", ParentID: "/in-cse", ResourceType: model.TypeDAC}
	seed(t, store, base(), dac)

	t.Run("ReferencesAreIndexed", func(t *testing.T) {
		seed(t, store,
			&model.Resource{ResourceID: "/in-cse/CAE1", ParentID: "/in-cse", ResourceType: model.TypeAE, DynamicAuthorizationConsultationIDs: []string{dac.ResourceID}},
			&model.Resource{ResourceID: "/in-cse/CAE2", ParentID: "/in-cse", ResourceType: model.TypeAE, DynamicAuthorizationConsultationIDs: []string{dac.ResourceID}},
		)
		tx, _ := store.Begin(ctx)
		defer tx.Rollback(ctx)
		links, err := tx.BackLinks(ctx, dac.ResourceID)
		require.NoError(t, err)
		assert.Equal(t, []string{"/in-cse/CAE1", "/in-cse/CAE2"}, links)
	})

	t.Run("DanglingReferenceIsRejected", func(t *testing.T) {
		tx, _ := store.Begin(ctx)
		require.NoError(t, tx.Create(ctx, &model.Resource{ResourceID: "/in-cse/CAE3", ParentID: "/in-cse", ResourceType: model.TypeAE, DynamicAuthorizationConsultationIDs: []string{"/in-cse/dac-missing"}}))
		assert.ErrorIs(t, tx.Commit(ctx), persistence.ErrDanglingReference)
	})

	t.Run("DeletingTheDACSeversReferrers", func(t *testing.T) {
		tx, _ := store.Begin(ctx)
		current, err := tx.Find(ctx, dac.ResourceID)
		require.NoError(t, err)
		require.NoError(t, tx.Lock(ctx, current))
		require.NoError(t, tx.Delete(ctx, current))
		require.NoError(t, tx.Commit(ctx))

		assert.Empty(t, find(t, store, "/in-cse/CAE1").DynamicAuthorizationConsultationIDs)
		assert.Empty(t, find(t, store, "/in-cse/CAE2").DynamicAuthorizationConsultationIDs)

		check, _ := store.Begin(ctx)
		defer check.Rollback(ctx)
		links, err := check.BackLinks(ctx, dac.ResourceID)
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}
